package license

// tierCredits is the monthly AI credit grant per AppSumo tier.
var tierCredits = map[int]int{
	1: 100,
	2: 500,
	3: 1000,
	4: 2000,
}

// tierSubLicenses is the number of team seats minted per tier.
var tierSubLicenses = map[int]int{
	1: 0,
	2: 5,
	3: 10,
	4: 20,
}

// tierMaxUsers is the seat count reported on the plan (owner + seats).
var tierMaxUsers = map[int]int{
	1: 1,
	2: 5,
	3: 10,
	4: 20,
}

// ValidateTier clamps a tier to the supported 1-4 range. Vendors have
// shipped payloads with tier 0 and tier 99 before; both fall back to 1.
func ValidateTier(tier int) int {
	if tier < 1 || tier > 4 {
		return 1
	}
	return tier
}

// CreditsForTier returns the credit grant for a (clamped) tier.
func CreditsForTier(tier int) int {
	return tierCredits[ValidateTier(tier)]
}

// SubLicensesForTier returns the seat count for a (clamped) tier.
func SubLicensesForTier(tier int) int {
	return tierSubLicenses[ValidateTier(tier)]
}

// MaxUsersForTier returns the plan seat limit for a (clamped) tier.
func MaxUsersForTier(tier int) int {
	return tierMaxUsers[ValidateTier(tier)]
}
