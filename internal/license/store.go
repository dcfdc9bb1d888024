package license

import (
	"context"
	"errors"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// ErrDuplicateKey is returned by Create* methods when a unique
// constraint fires. The engine uses it to retry sub-license key
// generation and to make fixed-key fan-out idempotent.
var ErrDuplicateKey = errors.New("duplicate key")

// Store is everything the reconciliation engine needs from persistence.
// The SQL implementation backs production; the in-memory one backs
// tests. Transact runs fn against a transaction-scoped Store and
// commits only if fn returns nil, so one webhook event either applies
// completely or not at all.
type Store interface {
	Transact(ctx context.Context, fn func(Store) error) error

	// RecordWebhookEvent inserts a delivery fingerprint. It returns
	// false when the fingerprint was already recorded, which is how
	// replayed deliveries become no-ops.
	RecordWebhookEvent(ctx context.Context, vendor models.Vendor, fingerprint, event, licenseKey string) (bool, error)

	GetLicense(ctx context.Context, key string) (*models.LicenseKey, error)
	UpsertLicense(ctx context.Context, lk *models.LicenseKey) error
	DeactivateLicense(ctx context.Context, key string, at time.Time) error

	GetSubLicense(ctx context.Context, subKey string) (*models.SubLicense, error)
	CreateSubLicense(ctx context.Context, mainLicenseID int64, subKey string) error
	CountSubLicenses(ctx context.Context, mainLicenseID int64) (int, error)
	DeactivateSubLicense(ctx context.Context, subKey string, at time.Time) error
	DeactivateSubLicenses(ctx context.Context, mainLicenseID int64, originalKey string, at time.Time) error

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertUserByEmail(ctx context.Context, email, name string) (int64, error)
	GetLicenseUser(ctx context.Context, licenseID int64) (int64, bool, error)
	LinkUserLicense(ctx context.Context, userID, licenseID int64) error
	UnlinkUserLicense(ctx context.Context, userID, licenseID int64) error

	// AdjustCredits applies a signed delta to the user's balance and
	// writes a ledger row. When no balance row exists yet, the initial
	// balance is max(0, delta).
	AdjustCredits(ctx context.Context, userID int64, delta int, txType, description string) error

	UpsertPlan(ctx context.Context, vendor models.Vendor, productID, name string, maxUsers int) (int64, error)
	CreateSubscription(ctx context.Context, userID, planID int64) error
	CancelActiveSubscriptions(ctx context.Context, userID int64, at time.Time) error

	UpsertInstallation(ctx context.Context, userID int64, status string) error
	UpsertLeaderboard(ctx context.Context, userID int64) error
	CreateNotification(ctx context.Context, userID int64, message string) error
}
