package analytics

import (
	"testing"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func lemonID(id int64) *int64 { return &id }

func TestRevenueNetSubtractsRefunds(t *testing.T) {
	licenses := []LicenseRow{
		{Vendor: models.VendorAppSumo, Status: models.LicenseActive, Tier: 2, CreatedAt: day(2025, 3, 1)},
		{Vendor: models.VendorAppSumo, Status: models.LicenseInactive, Tier: 2, CreatedAt: day(2025, 3, 2)},
		{Vendor: models.VendorLemonSqueezy, Status: models.LicenseActive, LemonProductID: lemonID(363062), CreatedAt: day(2025, 3, 3)},
	}

	rep := Revenue(licenses)

	assert.Equal(t, round2(29.8+29.8+199), rep.TotalRevenue)
	assert.Equal(t, round2(29.8-29.8+199), rep.NetRevenue)
	assert.Equal(t, 3, rep.Sales)
	assert.Equal(t, 1, rep.Refunds)
	assert.Equal(t, round2(29.8*2), rep.ByVendor["APPSUMO"])
	assert.Equal(t, float64(199), rep.ByVendor["LEMONSQUEEZY"])
}

func TestRevenueTrendZeroFillsQuietDays(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 5, 23, 59, 59, 0, time.UTC)

	licenses := []LicenseRow{
		{Vendor: models.VendorAppSumo, Status: models.LicenseActive, Tier: 3, CreatedAt: day(2025, 3, 2)},
	}

	rep := RevenueTrend(licenses, from, to)

	// Five calendar days, all present even when empty.
	require.Len(t, rep.Daily, 5)
	assert.Equal(t, 49.8, rep.Daily["2025-03-02"])
	assert.Equal(t, float64(0), rep.Daily["2025-03-01"])
	assert.Equal(t, float64(0), rep.Daily["2025-03-05"])
	assert.Equal(t, 49.8, rep.Total)
}

func TestAPIUsageTopListsAndBuckets(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)

	var rows []UsageRow
	for i := 0; i < 12; i++ {
		rows = append(rows, UsageRow{UserEmail: "heavy@example.com", Platform: "linkedin", CreatedAt: day(2025, 3, 4)})
	}
	rows = append(rows,
		UsageRow{UserEmail: "light@example.com", Platform: "twitter", CreatedAt: day(2025, 3, 6)},
	)

	rep := APIUsage(rows, from, to)

	assert.Equal(t, 13, rep.TotalCalls)
	assert.Equal(t, 12, rep.Daily["2025-03-04"])
	assert.Equal(t, 0, rep.Daily["2025-03-01"])

	require.NotEmpty(t, rep.ByPlatform)
	assert.Equal(t, RankedCount{Name: "linkedin", Count: 12}, rep.ByPlatform[0])
	assert.Equal(t, RankedCount{Name: "heavy@example.com", Count: 12}, rep.TopUsers[0])
}

func TestCreditConsumptionSortsBySpend(t *testing.T) {
	rows := []CreditRow{
		{UserEmail: "a@example.com", Type: models.CreditTxSpent, Amount: -50, CreatedAt: day(2025, 3, 1)},
		{UserEmail: "a@example.com", Type: models.CreditTxPurchased, Amount: 100, CreatedAt: day(2025, 3, 2)},
		{UserEmail: "b@example.com", Type: models.CreditTxSpent, Amount: -200, CreatedAt: day(2025, 3, 1)},
	}

	reps := CreditConsumption(rows)

	require.Len(t, reps, 2)
	assert.Equal(t, "b@example.com", reps[0].UserEmail)
	assert.Equal(t, 200, reps[0].TotalSpent)
	assert.Equal(t, "a@example.com", reps[1].UserEmail)
	assert.Equal(t, 50, reps[1].TotalSpent)
	assert.Equal(t, 100, reps[1].TotalEarned)
	assert.Equal(t, -50, reps[1].ByType[models.CreditTxSpent])
}

func TestRefundsRate(t *testing.T) {
	licenses := []LicenseRow{
		{Status: models.LicenseActive},
		{Status: models.LicenseActive},
		{Status: models.LicenseInactive},
		{Status: models.LicenseInactive},
	}

	rep := RefundsRate(licenses)
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 2, rep.Refunded)
	assert.Equal(t, float64(50), rep.RefundRate)

	empty := RefundsRate(nil)
	assert.Equal(t, float64(0), empty.RefundRate)
}

func TestRefundsAllUsesListPrices(t *testing.T) {
	licenses := []LicenseRow{
		{Vendor: models.VendorAppSumo, Status: models.LicenseInactive, Tier: 3, CreatedAt: day(2025, 1, 1)},
		{Vendor: models.VendorLemonSqueezy, Status: models.LicenseInactive, LemonProductID: lemonID(363062), CreatedAt: day(2025, 1, 2)},
		{Vendor: models.VendorAppSumo, Status: models.LicenseActive, Tier: 1, CreatedAt: day(2025, 1, 3)},
	}

	rep := RefundsAll(licenses)

	require.Len(t, rep.Refunds, 2)
	assert.Equal(t, float64(207), rep.Refunds[0].Price) // tier 3 at list
	assert.Equal(t, float64(199), rep.Refunds[1].Price)
	assert.Equal(t, 1, rep.ByVendor["APPSUMO"])
	assert.Equal(t, 1, rep.ByVendor["LEMONSQUEEZY"])
	assert.Equal(t, round2(float64(2)/3*100), rep.RefundRate)
}

func TestUsersAllBucketsAndPlans(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 3, 23, 59, 59, 0, time.UTC)

	appsumo := models.VendorAppSumo
	lemon := models.VendorLemonSqueezy
	users := []UserRow{
		{ID: 1, Email: "a@example.com", CreatedAt: day(2025, 3, 1), Vendor: &appsumo, HasActiveLicense: true},
		{ID: 2, Email: "b@example.com", CreatedAt: day(2025, 3, 1), Vendor: &lemon, LemonProductID: lemonID(363041), HasActiveLicense: true},
		{ID: 3, Email: "c@example.com", CreatedAt: day(2025, 2, 1)},
	}
	licenses := []LicenseRow{
		{Status: models.LicenseActive},
		{Status: models.LicenseInactive},
	}

	rep := UsersAll(users, licenses, from, to)

	assert.Equal(t, 3, rep.TotalUsers)
	assert.Equal(t, 2, rep.ActiveUsers)
	assert.Equal(t, 2, rep.NewUsers)
	assert.Equal(t, 1, rep.ActiveLicenses)
	assert.Equal(t, 1, rep.UsersByVendor["APPSUMO"])
	assert.Equal(t, 1, rep.UsersByVendor["LEMONSQUEEZY"])
	assert.Equal(t, 1, rep.UsersByPlan["enterprise"])

	require.Len(t, rep.DailySignups, 3)
	assert.Equal(t, 1, rep.DailySignups["2025-03-01"]["APPSUMO"])
	assert.Equal(t, 1, rep.DailySignups["2025-03-01"]["LEMONSQUEEZY"])
	assert.Equal(t, 0, rep.DailySignups["2025-03-02"]["APPSUMO"])
}

func TestVendorsAllTrend(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 30, 23, 59, 59, 0, time.UTC)

	licenses := []LicenseRow{
		{Vendor: models.VendorAppSumo, Status: models.LicenseActive, Tier: 1, CreatedAt: day(2025, 3, 10)},
		{Vendor: models.VendorAppSumo, Status: models.LicenseActive, Tier: 2, CreatedAt: day(2025, 4, 2)},
		{Vendor: models.VendorLemonSqueezy, Status: models.LicenseActive, LemonProductID: lemonID(321751), CreatedAt: day(2025, 4, 2)},
	}

	rep := VendorsAll(licenses, from, to)

	assert.Len(t, rep.Monthly, 2)
	assert.Equal(t, 1, rep.Monthly["2025-03"].AppSumoSales)
	assert.Equal(t, 1, rep.Monthly["2025-04"].AppSumoSales)
	assert.Equal(t, 1, rep.Monthly["2025-04"].LemonSqueezySales)
	assert.Equal(t, float64(299), rep.Monthly["2025-04"].LemonSqueezyRevenue)

	assert.Equal(t, 1, rep.AppSumoTiers["tier1"])
	assert.Equal(t, 1, rep.AppSumoTiers["tier2"])
	assert.Equal(t, 1, rep.LemonPlans["agency"])

	assert.Equal(t, 1, rep.Daily["2025-03-10"].AppSumoSales)
	assert.Equal(t, 0, rep.Daily["2025-03-11"].AppSumoSales)
}
