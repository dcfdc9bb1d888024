package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ErrUnknownReport is returned for report types the console does not
// know about; the handler maps it to a 400.
var ErrUnknownReport = fmt.Errorf("unknown report type")

// Service fetches rows and runs the report functions. Every report
// materializes its range in memory; the ranges the console requests
// are at most a few months, which keeps this simple and fast enough.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// DefaultRange is the window used when the console sends no dates:
// the last 30 days, normalized to whole days.
func DefaultRange(now time.Time) (time.Time, time.Time) {
	to := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	fromDay := now.AddDate(0, 0, -30)
	from := time.Date(fromDay.Year(), fromDay.Month(), fromDay.Day(), 0, 0, 0, 0, time.UTC)
	return from, to
}

// Report runs one report by name.
func (s *Service) Report(ctx context.Context, reportType string, from, to time.Time) (interface{}, error) {
	switch reportType {
	case "revenue":
		licenses, err := s.fetchLicenses(ctx, &from, &to)
		if err != nil {
			return nil, err
		}
		return Revenue(licenses), nil
	case "revenue-trend":
		licenses, err := s.fetchLicenses(ctx, &from, &to)
		if err != nil {
			return nil, err
		}
		return RevenueTrend(licenses, from, to), nil
	case "api-usage":
		rows, err := s.fetchUsage(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return APIUsage(rows, from, to), nil
	case "credit-consumption":
		rows, err := s.fetchCredits(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return CreditConsumption(rows), nil
	case "license-usage":
		rows, err := s.fetchTracking(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return LicenseUsage(rows), nil
	case "sales":
		licenses, err := s.fetchLicenses(ctx, &from, &to)
		if err != nil {
			return nil, err
		}
		return Sales(licenses), nil
	case "vendors":
		licenses, err := s.fetchLicenses(ctx, &from, &to)
		if err != nil {
			return nil, err
		}
		return Vendors(licenses), nil
	case "refunds-rate":
		licenses, err := s.fetchLicenses(ctx, &from, &to)
		if err != nil {
			return nil, err
		}
		return RefundsRate(licenses), nil
	case "refunds-all":
		licenses, err := s.fetchLicenses(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		return RefundsAll(licenses), nil
	case "users-active":
		users, err := s.fetchUsers(ctx)
		if err != nil {
			return nil, err
		}
		return UsersActive(users), nil
	case "users-all":
		users, err := s.fetchUsers(ctx)
		if err != nil {
			return nil, err
		}
		licenses, err := s.fetchLicenses(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		return UsersAll(users, licenses, from, to), nil
	case "revenue-all":
		licenses, err := s.fetchLicenses(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		return RevenueAll(licenses, from, to), nil
	case "vendors-all":
		licenses, err := s.fetchLicenses(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		return VendorsAll(licenses, from, to), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, reportType)
	}
}

func (s *Service) fetchLicenses(ctx context.Context, from, to *time.Time) ([]LicenseRow, error) {
	query := `
		SELECT vendor, status, tier, lemon_product_id, created_at
		FROM license_keys
		WHERE is_main_key = TRUE`
	args := []interface{}{}
	if from != nil && to != nil {
		query += " AND created_at BETWEEN ? AND ?"
		args = append(args, *from, *to)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch licenses: %w", err)
	}
	defer rows.Close()

	var licenses []LicenseRow
	for rows.Next() {
		var l LicenseRow
		if err := rows.Scan(&l.Vendor, &l.Status, &l.Tier, &l.LemonProductID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		licenses = append(licenses, l)
	}
	return licenses, rows.Err()
}

func (s *Service) fetchUsage(ctx context.Context, from, to time.Time) ([]UsageRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(u.email, ''), a.platform, a.endpoint, a.created_at
		FROM api_usage a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.created_at BETWEEN ? AND ?`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch api usage: %w", err)
	}
	defer rows.Close()

	var usage []UsageRow
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.UserEmail, &u.Platform, &u.Endpoint, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func (s *Service) fetchCredits(ctx context.Context, from, to time.Time) ([]CreditRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.user_id, u.email, t.type, t.amount, t.created_at
		FROM credit_transactions t
		JOIN users u ON u.id = t.user_id
		WHERE t.created_at BETWEEN ? AND ?`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch credit transactions: %w", err)
	}
	defer rows.Close()

	var credits []CreditRow
	for rows.Next() {
		var c CreditRow
		if err := rows.Scan(&c.UserID, &c.UserEmail, &c.Type, &c.Amount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit transaction: %w", err)
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

func (s *Service) fetchTracking(ctx context.Context, from, to time.Time) ([]TrackingRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.user_id, u.email, t.feature, t.amount, t.created_at
		FROM usage_tracking t
		JOIN users u ON u.id = t.user_id
		WHERE t.created_at BETWEEN ? AND ?`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch usage tracking: %w", err)
	}
	defer rows.Close()

	var tracking []TrackingRow
	for rows.Next() {
		var t TrackingRow
		if err := rows.Scan(&t.UserID, &t.UserEmail, &t.Feature, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage tracking: %w", err)
		}
		tracking = append(tracking, t)
	}
	return tracking, rows.Err()
}

func (s *Service) fetchUsers(ctx context.Context) ([]UserRow, error) {
	// One license per user is enough for vendor and plan attribution;
	// the newest link wins when a user holds several.
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.created_at,
		       (SELECT lk.vendor FROM user_license_keys ulk
		        JOIN license_keys lk ON lk.id = ulk.license_key_id
		        WHERE ulk.user_id = u.id ORDER BY ulk.id DESC LIMIT 1),
		       (SELECT lk.lemon_product_id FROM user_license_keys ulk
		        JOIN license_keys lk ON lk.id = ulk.license_key_id
		        WHERE ulk.user_id = u.id ORDER BY ulk.id DESC LIMIT 1),
		       EXISTS (SELECT 1 FROM user_license_keys ulk
		               JOIN license_keys lk ON lk.id = ulk.license_key_id
		               WHERE ulk.user_id = u.id AND lk.status = 'ACTIVE')
		FROM users u`)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	defer rows.Close()

	var users []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.Vendor, &u.LemonProductID, &u.HasActiveLicense); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
