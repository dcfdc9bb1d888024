package analytics

import "time"

// AppSumo tier-1 price changes. Sales are priced by the breakpoint in
// effect when the license row was created; createdAt stands in for the
// sale time because the vendor does not send one.
var (
	appSumoPriceRise1 = time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)
	appSumoPriceRise2 = time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC)
)

// AppSumoPrice returns the sale price of an AppSumo license.
func AppSumoPrice(tier int, soldAt time.Time) float64 {
	switch tier {
	case 1:
		if soldAt.Before(appSumoPriceRise1) {
			return 3.42
		}
		if soldAt.Before(appSumoPriceRise2) {
			return 6.88
		}
		return 29
	case 2:
		return 29.8
	case 3:
		return 49.8
	default:
		return 29
	}
}

// AppSumoListPrice is the full list price per tier, used by the refund
// and lifetime-revenue reports which ignore the historical discounts.
func AppSumoListPrice(tier int) float64 {
	return float64(tier) * 69
}

// LemonPrice returns the monthly price of a LemonSqueezy product.
func LemonPrice(productID int64) float64 {
	switch {
	case lemonEnterprise[productID]:
		return 799
	case lemonAgency[productID]:
		return 299
	case lemonTeam[productID]:
		return 199
	default:
		return 49.99
	}
}

// LemonPlanLabel names the plan bucket a product belongs to.
func LemonPlanLabel(productID int64) string {
	switch {
	case lemonEnterprise[productID]:
		return "enterprise"
	case lemonAgency[productID]:
		return "agency"
	case lemonTeam[productID]:
		return "team"
	default:
		return "individual"
	}
}

var (
	lemonEnterprise = map[int64]bool{363041: true, 363064: true}
	lemonAgency     = map[int64]bool{363063: true, 321751: true}
	lemonTeam       = map[int64]bool{363062: true, 363040: true}
)
