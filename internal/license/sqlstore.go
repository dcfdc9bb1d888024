package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/models"
	"github.com/go-sql-driver/mysql"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// so every store method works both inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	db *sql.DB
	q  querier
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// Transact begins a transaction and runs fn against a Store bound to
// it. Nested calls are not supported; the engine never nests.
func (s *SQLStore) Transact(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLStore{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isDuplicate reports whether err is a MySQL unique-constraint
// violation (error 1062).
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func (s *SQLStore) RecordWebhookEvent(ctx context.Context, vendor models.Vendor, fingerprint, event, licenseKey string) (bool, error) {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO webhook_events (vendor, fingerprint, event, license_key)
		VALUES (?, ?, ?, ?)`,
		vendor, fingerprint, event, licenseKey)
	if err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return true, nil
}

func (s *SQLStore) GetLicense(ctx context.Context, key string) (*models.LicenseKey, error) {
	var lk models.LicenseKey
	err := s.q.QueryRowContext(ctx, `
		SELECT id, license_key, vendor, status, tier, plan_id, lemon_product_id,
		       is_main_key, activated_at, deactivated_at, created_at, updated_at
		FROM license_keys WHERE license_key = ?`, key).Scan(
		&lk.ID, &lk.Key, &lk.Vendor, &lk.Status, &lk.Tier, &lk.PlanID, &lk.LemonProductID,
		&lk.IsMainKey, &lk.ActivatedAt, &lk.DeactivatedAt, &lk.CreatedAt, &lk.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get license: %w", err)
	}
	return &lk, nil
}

func (s *SQLStore) UpsertLicense(ctx context.Context, lk *models.LicenseKey) error {
	// LAST_INSERT_ID(id) makes LastInsertId return the existing row's
	// ID on the update path too.
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO license_keys
			(license_key, vendor, status, tier, plan_id, lemon_product_id, is_main_key, activated_at, deactivated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			vendor = VALUES(vendor),
			status = VALUES(status),
			tier = VALUES(tier),
			plan_id = VALUES(plan_id),
			lemon_product_id = VALUES(lemon_product_id),
			is_main_key = VALUES(is_main_key),
			activated_at = VALUES(activated_at),
			deactivated_at = VALUES(deactivated_at)`,
		lk.Key, lk.Vendor, lk.Status, lk.Tier, lk.PlanID, lk.LemonProductID,
		lk.IsMainKey, lk.ActivatedAt, lk.DeactivatedAt)
	if err != nil {
		return fmt.Errorf("upsert license: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("upsert license id: %w", err)
	}
	lk.ID = id
	return nil
}

func (s *SQLStore) DeactivateLicense(ctx context.Context, key string, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE license_keys SET status = ?, deactivated_at = ?
		WHERE license_key = ?`,
		models.LicenseInactive, at, key)
	if err != nil {
		return fmt.Errorf("deactivate license: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSubLicense(ctx context.Context, subKey string) (*models.SubLicense, error) {
	var sl models.SubLicense
	err := s.q.QueryRowContext(ctx, `
		SELECT id, sub_key, main_license_key_id, status, assigned_email,
		       original_license_key, deactivated_at, created_at
		FROM sub_licenses WHERE sub_key = ?`, subKey).Scan(
		&sl.ID, &sl.Key, &sl.MainLicenseKeyID, &sl.Status, &sl.AssignedEmail,
		&sl.OriginalLicenseKey, &sl.DeactivatedAt, &sl.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get sub-license: %w", err)
	}
	return &sl, nil
}

func (s *SQLStore) CreateSubLicense(ctx context.Context, mainLicenseID int64, subKey string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sub_licenses (sub_key, main_license_key_id, status)
		VALUES (?, ?, ?)`,
		subKey, mainLicenseID, models.LicenseActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create sub-license: %w", err)
	}
	return nil
}

func (s *SQLStore) CountSubLicenses(ctx context.Context, mainLicenseID int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sub_licenses WHERE main_license_key_id = ?",
		mainLicenseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sub-licenses: %w", err)
	}
	return n, nil
}

func (s *SQLStore) DeactivateSubLicense(ctx context.Context, subKey string, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE sub_licenses SET status = ?, deactivated_at = ?
		WHERE sub_key = ?`,
		models.LicenseInactive, at, subKey)
	if err != nil {
		return fmt.Errorf("deactivate sub-license: %w", err)
	}
	return nil
}

func (s *SQLStore) DeactivateSubLicenses(ctx context.Context, mainLicenseID int64, originalKey string, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE sub_licenses
		SET status = ?, deactivated_at = ?, original_license_key = ?
		WHERE main_license_key_id = ?`,
		models.LicenseInactive, at, originalKey, mainLicenseID)
	if err != nil {
		return fmt.Errorf("deactivate sub-licenses: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	var hash sql.NullString
	err := s.q.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, is_admin, created_at, updated_at
		FROM users WHERE email = ?`, email).Scan(
		&u.ID, &u.Email, &u.Name, &hash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	u.PasswordHash = hash.String
	return &u, nil
}

func (s *SQLStore) UpsertUserByEmail(ctx context.Context, email, name string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO users (email, name)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			name = IF(VALUES(name) = '', name, VALUES(name))`,
		email, name)
	if err != nil {
		return 0, fmt.Errorf("upsert user: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) GetLicenseUser(ctx context.Context, licenseID int64) (int64, bool, error) {
	var userID int64
	err := s.q.QueryRowContext(ctx,
		"SELECT user_id FROM user_license_keys WHERE license_key_id = ? LIMIT 1",
		licenseID).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get license user: %w", err)
	}
	return userID, true, nil
}

func (s *SQLStore) LinkUserLicense(ctx context.Context, userID, licenseID int64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO user_license_keys (user_id, license_key_id)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE user_id = user_id`,
		userID, licenseID)
	if err != nil {
		return fmt.Errorf("link user license: %w", err)
	}
	return nil
}

func (s *SQLStore) UnlinkUserLicense(ctx context.Context, userID, licenseID int64) error {
	_, err := s.q.ExecContext(ctx,
		"DELETE FROM user_license_keys WHERE user_id = ? AND license_key_id = ?",
		userID, licenseID)
	if err != nil {
		return fmt.Errorf("unlink user license: %w", err)
	}
	return nil
}

func (s *SQLStore) AdjustCredits(ctx context.Context, userID int64, delta int, txType, description string) error {
	initial := delta
	if initial < 0 {
		initial = 0
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, balance)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE balance = balance + ?`,
		userID, initial, delta)
	if err != nil {
		return fmt.Errorf("adjust credit balance: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, type, amount, description)
		VALUES (?, ?, ?, ?)`,
		userID, txType, delta, description)
	if err != nil {
		return fmt.Errorf("record credit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) UpsertPlan(ctx context.Context, vendor models.Vendor, productID, name string, maxUsers int) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO plans (vendor, product_id, name, max_users)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			name = VALUES(name),
			max_users = VALUES(max_users)`,
		vendor, productID, name, maxUsers)
	if err != nil {
		return 0, fmt.Errorf("upsert plan: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) CreateSubscription(ctx context.Context, userID, planID int64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO user_subscriptions (user_id, plan_id, status)
		VALUES (?, ?, ?)`,
		userID, planID, models.SubscriptionActive)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *SQLStore) CancelActiveSubscriptions(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE user_subscriptions SET status = ?, end_date = ?
		WHERE user_id = ? AND status = ?`,
		models.SubscriptionCancelled, at, userID, models.SubscriptionActive)
	if err != nil {
		return fmt.Errorf("cancel subscriptions: %w", err)
	}
	return nil
}

func (s *SQLStore) UpsertInstallation(ctx context.Context, userID int64, status string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO installations (user_id, status)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status)`,
		userID, status)
	if err != nil {
		return fmt.Errorf("upsert installation: %w", err)
	}
	return nil
}

func (s *SQLStore) UpsertLeaderboard(ctx context.Context, userID int64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO leaderboard (user_id, score)
		VALUES (?, 0)
		ON DUPLICATE KEY UPDATE user_id = user_id`,
		userID)
	if err != nil {
		return fmt.Errorf("upsert leaderboard: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateNotification(ctx context.Context, userID int64, message string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO notifications (user_id, message)
		VALUES (?, ?)`,
		userID, message)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
