package models

import "time"

// Vendor is the payment vendor a license was sold through. Stored as a
// MySQL ENUM so reports never have to guess from free-form strings.
type Vendor string

const (
	VendorAppSumo      Vendor = "APPSUMO"
	VendorLemonSqueezy Vendor = "LEMONSQUEEZY"
)

// LicenseStatus is the lifecycle state of a license or sub-license.
type LicenseStatus string

const (
	LicenseActive   LicenseStatus = "ACTIVE"
	LicenseInactive LicenseStatus = "INACTIVE"
)

// LicenseKey is a main (vendor-issued) license.
type LicenseKey struct {
	ID             int64         `json:"id" db:"id"`
	Key            string        `json:"licenseKey" db:"license_key"`
	Vendor         Vendor        `json:"vendor" db:"vendor"`
	Status         LicenseStatus `json:"status" db:"status"`
	Tier           int           `json:"tier" db:"tier"`
	PlanID         string        `json:"planId" db:"plan_id"`
	LemonProductID *int64        `json:"lemonProductId,omitempty" db:"lemon_product_id"`
	IsMainKey      bool          `json:"isMainKey" db:"is_main_key"`
	ActivatedAt    *time.Time    `json:"activatedAt,omitempty" db:"activated_at"`
	DeactivatedAt  *time.Time    `json:"deactivatedAt,omitempty" db:"deactivated_at"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// SubLicense is a team seat minted under a main license.
type SubLicense struct {
	ID                 int64         `json:"id" db:"id"`
	Key                string        `json:"subKey" db:"sub_key"`
	MainLicenseKeyID   int64         `json:"mainLicenseKeyId" db:"main_license_key_id"`
	Status             LicenseStatus `json:"status" db:"status"`
	AssignedEmail      *string       `json:"assignedEmail,omitempty" db:"assigned_email"`
	OriginalLicenseKey *string       `json:"-" db:"original_license_key"`
	DeactivatedAt      *time.Time    `json:"deactivatedAt,omitempty" db:"deactivated_at"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
}

// WebhookEvent records one processed webhook delivery. The fingerprint
// is unique, which is what makes replayed deliveries no-ops.
type WebhookEvent struct {
	ID          int64     `json:"id" db:"id"`
	Vendor      Vendor    `json:"vendor" db:"vendor"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Event       string    `json:"event" db:"event"`
	LicenseKey  string    `json:"licenseKey" db:"license_key"`
	ReceivedAt  time.Time `json:"receivedAt" db:"received_at"`
}

// Installation tracks whether the browser extension is currently
// installed for a user.
type Installation struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
