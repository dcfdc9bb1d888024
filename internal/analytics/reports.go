package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// Input rows. The service fetches these with plain SQL; the report
// functions are pure so they can be tested without a database.

type LicenseRow struct {
	Vendor         models.Vendor
	Status         models.LicenseStatus
	Tier           int
	LemonProductID *int64
	CreatedAt      time.Time
}

type UsageRow struct {
	UserEmail string
	Platform  string
	Endpoint  string
	CreatedAt time.Time
}

type CreditRow struct {
	UserID    int64
	UserEmail string
	Type      string
	Amount    int
	CreatedAt time.Time
}

type TrackingRow struct {
	UserID    int64
	UserEmail string
	Feature   string
	Amount    int
	CreatedAt time.Time
}

type UserRow struct {
	ID               int64
	Email            string
	CreatedAt        time.Time
	Vendor           *models.Vendor
	LemonProductID   *int64
	HasActiveLicense bool
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// price of one license sale.
func salePrice(l LicenseRow) float64 {
	if l.Vendor == models.VendorLemonSqueezy {
		if l.LemonProductID != nil {
			return LemonPrice(*l.LemonProductID)
		}
		return LemonPrice(0)
	}
	return AppSumoPrice(l.Tier, l.CreatedAt)
}

// dayKeys returns every calendar day in [from, to] inclusive,
// formatted as YYYY-MM-DD. Reports zero-fill over these keys so charts
// never skip quiet days.
func dayKeys(from, to time.Time) []string {
	var keys []string
	for d := from.Truncate(24 * time.Hour); !d.After(to); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format("2006-01-02"))
	}
	return keys
}

// monthKeys returns every calendar month touched by [from, to],
// formatted as YYYY-MM.
func monthKeys(from, to time.Time) []string {
	var keys []string
	d := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !d.After(end) {
		keys = append(keys, d.Format("2006-01"))
		d = d.AddDate(0, 1, 0)
	}
	return keys
}

func zeroFilled[T int | float64](keys []string) map[string]T {
	m := make(map[string]T, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}

// --- revenue ---

type RevenueReport struct {
	TotalRevenue float64            `json:"totalRevenue"`
	NetRevenue   float64            `json:"netRevenue"`
	ByVendor     map[string]float64 `json:"byVendor"`
	Sales        int                `json:"sales"`
	Refunds      int                `json:"refunds"`
}

// Revenue sums every sale in range; refunded (inactive) licenses count
// into total but subtract from net.
func Revenue(licenses []LicenseRow) RevenueReport {
	r := RevenueReport{ByVendor: map[string]float64{}}
	for _, l := range licenses {
		price := salePrice(l)
		r.TotalRevenue += price
		r.ByVendor[string(l.Vendor)] += price
		r.Sales++
		if l.Status == models.LicenseInactive {
			r.NetRevenue -= price
			r.Refunds++
		} else {
			r.NetRevenue += price
		}
	}
	r.TotalRevenue = round2(r.TotalRevenue)
	r.NetRevenue = round2(r.NetRevenue)
	for k, v := range r.ByVendor {
		r.ByVendor[k] = round2(v)
	}
	return r
}

// --- revenue-trend ---

type RevenueTrendReport struct {
	Daily map[string]float64 `json:"daily"`
	Total float64            `json:"total"`
}

func RevenueTrend(licenses []LicenseRow, from, to time.Time) RevenueTrendReport {
	daily := zeroFilled[float64](dayKeys(from, to))
	var total float64
	for _, l := range licenses {
		key := l.CreatedAt.Format("2006-01-02")
		if _, ok := daily[key]; !ok {
			continue
		}
		price := salePrice(l)
		daily[key] = round2(daily[key] + price)
		total += price
	}
	return RevenueTrendReport{Daily: daily, Total: round2(total)}
}

// --- api-usage ---

type RankedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type APIUsageReport struct {
	TotalCalls int            `json:"totalCalls"`
	Daily      map[string]int `json:"daily"`
	ByPlatform []RankedCount  `json:"byPlatform"`
	Last10Days map[string]int `json:"last10Days"`
	TopUsers   []RankedCount  `json:"topUsers"`
}

func APIUsage(rows []UsageRow, from, to time.Time) APIUsageReport {
	rep := APIUsageReport{
		Daily:      zeroFilled[int](dayKeys(from, to)),
		Last10Days: zeroFilled[int](dayKeys(to.AddDate(0, 0, -9), to)),
	}
	platforms := map[string]int{}
	users := map[string]int{}
	for _, row := range rows {
		rep.TotalCalls++
		key := row.CreatedAt.Format("2006-01-02")
		if _, ok := rep.Daily[key]; ok {
			rep.Daily[key]++
		}
		if _, ok := rep.Last10Days[key]; ok {
			rep.Last10Days[key]++
		}
		if row.Platform != "" {
			platforms[row.Platform]++
		}
		if row.UserEmail != "" {
			users[row.UserEmail]++
		}
	}
	rep.ByPlatform = topN(platforms, 10)
	rep.TopUsers = topN(users, 10)
	return rep
}

func topN(counts map[string]int, n int) []RankedCount {
	ranked := make([]RankedCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, RankedCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// --- credit-consumption ---

type CreditUserReport struct {
	UserEmail   string         `json:"userEmail"`
	TotalSpent  int            `json:"totalSpent"`
	TotalEarned int            `json:"totalEarned"`
	ByType      map[string]int `json:"byType"`
	ByDate      map[string]int `json:"byDate"`
}

func CreditConsumption(rows []CreditRow) []CreditUserReport {
	perUser := map[string]*CreditUserReport{}
	for _, row := range rows {
		rep, ok := perUser[row.UserEmail]
		if !ok {
			rep = &CreditUserReport{
				UserEmail: row.UserEmail,
				ByType:    map[string]int{},
				ByDate:    map[string]int{},
			}
			perUser[row.UserEmail] = rep
		}
		rep.ByType[row.Type] += row.Amount
		rep.ByDate[row.CreatedAt.Format("2006-01-02")] += row.Amount
		if row.Type == models.CreditTxSpent || row.Amount < 0 {
			rep.TotalSpent += abs(row.Amount)
		} else {
			rep.TotalEarned += row.Amount
		}
	}

	reports := make([]CreditUserReport, 0, len(perUser))
	for _, rep := range perUser {
		reports = append(reports, *rep)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].TotalSpent != reports[j].TotalSpent {
			return reports[i].TotalSpent > reports[j].TotalSpent
		}
		return reports[i].UserEmail < reports[j].UserEmail
	})
	return reports
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// --- license-usage ---

type FeatureUserReport struct {
	UserEmail string         `json:"userEmail"`
	Total     int            `json:"total"`
	ByFeature map[string]int `json:"byFeature"`
	ByDate    map[string]int `json:"byDate"`
}

func LicenseUsage(rows []TrackingRow) []FeatureUserReport {
	perUser := map[string]*FeatureUserReport{}
	for _, row := range rows {
		rep, ok := perUser[row.UserEmail]
		if !ok {
			rep = &FeatureUserReport{
				UserEmail: row.UserEmail,
				ByFeature: map[string]int{},
				ByDate:    map[string]int{},
			}
			perUser[row.UserEmail] = rep
		}
		rep.Total += row.Amount
		rep.ByFeature[row.Feature] += row.Amount
		rep.ByDate[row.CreatedAt.Format("2006-01-02")] += row.Amount
	}

	reports := make([]FeatureUserReport, 0, len(perUser))
	for _, rep := range perUser {
		reports = append(reports, *rep)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Total != reports[j].Total {
			return reports[i].Total > reports[j].Total
		}
		return reports[i].UserEmail < reports[j].UserEmail
	})
	return reports
}

// --- sales / vendors / refunds ---

type SalesReport struct {
	ActiveSales int `json:"activeSales"`
	TotalSales  int `json:"totalSales"`
}

func Sales(licenses []LicenseRow) SalesReport {
	rep := SalesReport{TotalSales: len(licenses)}
	for _, l := range licenses {
		if l.Status == models.LicenseActive {
			rep.ActiveSales++
		}
	}
	return rep
}

type VendorsReport struct {
	AppSumo      int `json:"appsumo"`
	LemonSqueezy int `json:"lemonsqueezy"`
}

func Vendors(licenses []LicenseRow) VendorsReport {
	var rep VendorsReport
	for _, l := range licenses {
		if l.Status != models.LicenseActive {
			continue
		}
		switch l.Vendor {
		case models.VendorAppSumo:
			rep.AppSumo++
		case models.VendorLemonSqueezy:
			rep.LemonSqueezy++
		}
	}
	return rep
}

type RefundsRateReport struct {
	Total      int     `json:"total"`
	Refunded   int     `json:"refunded"`
	RefundRate float64 `json:"refundRate"`
}

func RefundsRate(licenses []LicenseRow) RefundsRateReport {
	rep := RefundsRateReport{Total: len(licenses)}
	for _, l := range licenses {
		if l.Status == models.LicenseInactive {
			rep.Refunded++
		}
	}
	if rep.Total > 0 {
		rep.RefundRate = round2(float64(rep.Refunded) / float64(rep.Total) * 100)
	}
	return rep
}

type RefundedLicense struct {
	Vendor    string    `json:"vendor"`
	Tier      int       `json:"tier"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

type RefundsAllReport struct {
	Refunds      []RefundedLicense `json:"refunds"`
	ByVendor     map[string]int    `json:"byVendor"`
	TotalAmount  float64           `json:"totalAmount"`
	RefundRate   float64           `json:"refundRate"`
	TotalRecords int               `json:"totalRecords"`
}

// RefundsAll lists every inactive license priced at list price, not
// the discounted launch pricing.
func RefundsAll(licenses []LicenseRow) RefundsAllReport {
	rep := RefundsAllReport{
		Refunds:      []RefundedLicense{},
		ByVendor:     map[string]int{},
		TotalRecords: len(licenses),
	}
	for _, l := range licenses {
		if l.Status != models.LicenseInactive {
			continue
		}
		price := AppSumoListPrice(l.Tier)
		if l.Vendor == models.VendorLemonSqueezy {
			if l.LemonProductID != nil {
				price = 199
			} else {
				price = 49.99
			}
		}
		rep.Refunds = append(rep.Refunds, RefundedLicense{
			Vendor: string(l.Vendor), Tier: l.Tier, Price: price, CreatedAt: l.CreatedAt,
		})
		rep.ByVendor[string(l.Vendor)]++
		rep.TotalAmount += price
	}
	rep.TotalAmount = round2(rep.TotalAmount)
	if rep.TotalRecords > 0 {
		rep.RefundRate = round2(float64(len(rep.Refunds)) / float64(rep.TotalRecords) * 100)
	}
	return rep
}

// --- users ---

type UsersActiveReport struct {
	TotalUsers  int `json:"totalUsers"`
	ActiveUsers int `json:"activeUsers"`
}

func UsersActive(users []UserRow) UsersActiveReport {
	rep := UsersActiveReport{TotalUsers: len(users)}
	for _, u := range users {
		if u.HasActiveLicense {
			rep.ActiveUsers++
		}
	}
	return rep
}

type UsersAllReport struct {
	TotalUsers     int                       `json:"totalUsers"`
	ActiveUsers    int                       `json:"activeUsers"`
	NewUsers       int                       `json:"newUsers"`
	ActiveLicenses int                       `json:"activeLicenses"`
	UsersByVendor  map[string]int            `json:"usersByVendor"`
	UsersByPlan    map[string]int            `json:"usersByPlan"`
	DailySignups   map[string]map[string]int `json:"dailySignups"`
}

// UsersAll is the admin console's main user breakdown. DailySignups is
// keyed day -> vendor -> count and zero-filled per day.
func UsersAll(users []UserRow, licenses []LicenseRow, from, to time.Time) UsersAllReport {
	rep := UsersAllReport{
		TotalUsers:    len(users),
		UsersByVendor: map[string]int{},
		UsersByPlan:   map[string]int{},
		DailySignups:  map[string]map[string]int{},
	}

	for _, key := range dayKeys(from, to) {
		rep.DailySignups[key] = map[string]int{"APPSUMO": 0, "LEMONSQUEEZY": 0, "NONE": 0}
	}

	for _, u := range users {
		if u.HasActiveLicense {
			rep.ActiveUsers++
		}
		if !u.CreatedAt.Before(from) && !u.CreatedAt.After(to) {
			rep.NewUsers++
		}

		vendor := "NONE"
		if u.Vendor != nil {
			vendor = string(*u.Vendor)
			rep.UsersByVendor[vendor]++
		}
		if day, ok := rep.DailySignups[u.CreatedAt.Format("2006-01-02")]; ok {
			day[vendor]++
		}

		if u.Vendor != nil && *u.Vendor == models.VendorLemonSqueezy && u.LemonProductID != nil {
			rep.UsersByPlan[LemonPlanLabel(*u.LemonProductID)]++
		}
	}

	for _, l := range licenses {
		if l.Status == models.LicenseActive {
			rep.ActiveLicenses++
		}
	}
	return rep
}

// --- revenue-all / vendors-all ---

type RevenueAllReport struct {
	TotalRevenue float64            `json:"totalRevenue"`
	ByVendor     map[string]float64 `json:"byVendor"`
	Daily        map[string]float64 `json:"daily"`
	Monthly      map[string]float64 `json:"monthly"`
}

// RevenueAll prices at list price and covers both day and month
// granularity for the lifetime dashboard.
func RevenueAll(licenses []LicenseRow, from, to time.Time) RevenueAllReport {
	rep := RevenueAllReport{
		ByVendor: map[string]float64{},
		Daily:    zeroFilled[float64](dayKeys(from, to)),
		Monthly:  zeroFilled[float64](monthKeys(from, to)),
	}
	for _, l := range licenses {
		price := AppSumoListPrice(l.Tier)
		if l.Vendor == models.VendorLemonSqueezy {
			if l.LemonProductID != nil {
				price = LemonPrice(*l.LemonProductID)
			} else {
				price = LemonPrice(0)
			}
		}
		rep.TotalRevenue += price
		rep.ByVendor[string(l.Vendor)] += price
		dayKey := l.CreatedAt.Format("2006-01-02")
		if _, ok := rep.Daily[dayKey]; ok {
			rep.Daily[dayKey] = round2(rep.Daily[dayKey] + price)
		}
		monthKey := l.CreatedAt.Format("2006-01")
		if _, ok := rep.Monthly[monthKey]; ok {
			rep.Monthly[monthKey] = round2(rep.Monthly[monthKey] + price)
		}
	}
	rep.TotalRevenue = round2(rep.TotalRevenue)
	for k, v := range rep.ByVendor {
		rep.ByVendor[k] = round2(v)
	}
	return rep
}

type VendorTrendPoint struct {
	AppSumoSales        int     `json:"appsumo_sales"`
	AppSumoRevenue      float64 `json:"appsumo_revenue"`
	LemonSqueezySales   int     `json:"lemonsqueezy_sales"`
	LemonSqueezyRevenue float64 `json:"lemonsqueezy_revenue"`
}

type VendorsAllReport struct {
	Daily        map[string]*VendorTrendPoint `json:"daily"`
	Monthly      map[string]*VendorTrendPoint `json:"monthly"`
	AppSumoTiers map[string]int               `json:"appsumoTiers"`
	LemonPlans   map[string]int               `json:"lemonPlans"`
}

func VendorsAll(licenses []LicenseRow, from, to time.Time) VendorsAllReport {
	rep := VendorsAllReport{
		Daily:        map[string]*VendorTrendPoint{},
		Monthly:      map[string]*VendorTrendPoint{},
		AppSumoTiers: map[string]int{"tier1": 0, "tier2": 0, "tier3": 0, "tier4": 0},
		LemonPlans:   map[string]int{"individual": 0, "team": 0, "agency": 0, "enterprise": 0},
	}
	for _, key := range dayKeys(from, to) {
		rep.Daily[key] = &VendorTrendPoint{}
	}
	for _, key := range monthKeys(from, to) {
		rep.Monthly[key] = &VendorTrendPoint{}
	}

	bump := func(p *VendorTrendPoint, l LicenseRow, price float64) {
		if l.Vendor == models.VendorAppSumo {
			p.AppSumoSales++
			p.AppSumoRevenue = round2(p.AppSumoRevenue + price)
		} else {
			p.LemonSqueezySales++
			p.LemonSqueezyRevenue = round2(p.LemonSqueezyRevenue + price)
		}
	}

	for _, l := range licenses {
		price := salePrice(l)
		if day, ok := rep.Daily[l.CreatedAt.Format("2006-01-02")]; ok {
			bump(day, l, price)
		}
		if month, ok := rep.Monthly[l.CreatedAt.Format("2006-01")]; ok {
			bump(month, l, price)
		}

		if l.Vendor == models.VendorAppSumo {
			switch l.Tier {
			case 2:
				rep.AppSumoTiers["tier2"]++
			case 3:
				rep.AppSumoTiers["tier3"]++
			case 4:
				rep.AppSumoTiers["tier4"]++
			default:
				rep.AppSumoTiers["tier1"]++
			}
		} else if l.LemonProductID != nil {
			rep.LemonPlans[LemonPlanLabel(*l.LemonProductID)]++
		} else {
			rep.LemonPlans["individual"]++
		}
	}
	return rep
}
