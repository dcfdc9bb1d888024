package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX builds the spreadsheet the admin console offers for
// download: a summary sheet plus the daily revenue trend.
func (s *Service) ExportXLSX(ctx context.Context, from, to time.Time) (*excelize.File, error) {
	licenses, err := s.fetchLicenses(ctx, &from, &to)
	if err != nil {
		return nil, err
	}
	users, err := s.fetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	revenue := Revenue(licenses)
	trend := RevenueTrend(licenses, from, to)
	sales := Sales(licenses)
	refunds := RefundsRate(licenses)
	active := UsersActive(users)

	f := excelize.NewFile()

	const summary = "Summary"
	f.SetSheetName("Sheet1", summary)

	rows := [][]interface{}{
		{"Report range", fmt.Sprintf("%s – %s", from.Format("2006-01-02"), to.Format("2006-01-02"))},
		{},
		{"Total revenue", revenue.TotalRevenue},
		{"Net revenue", revenue.NetRevenue},
		{"Sales", sales.TotalSales},
		{"Active sales", sales.ActiveSales},
		{"Refunds", refunds.Refunded},
		{"Refund rate %", refunds.RefundRate},
		{"Total users", active.TotalUsers},
		{"Active users", active.ActiveUsers},
	}
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, fmt.Errorf("build summary sheet: %w", err)
			}
			if err := f.SetCellValue(summary, cell, val); err != nil {
				return nil, fmt.Errorf("build summary sheet: %w", err)
			}
		}
	}

	const daily = "Daily Revenue"
	if _, err := f.NewSheet(daily); err != nil {
		return nil, fmt.Errorf("build daily sheet: %w", err)
	}
	f.SetCellValue(daily, "A1", "Date")
	f.SetCellValue(daily, "B1", "Revenue")

	days := make([]string, 0, len(trend.Daily))
	for day := range trend.Daily {
		days = append(days, day)
	}
	sort.Strings(days)
	for i, day := range days {
		f.SetCellValue(daily, fmt.Sprintf("A%d", i+2), day)
		f.SetCellValue(daily, fmt.Sprintf("B%d", i+2), trend.Daily[day])
	}

	return f, nil
}
