package license

import (
	"errors"
	"strconv"
	"time"
)

// AppSumo webhook event names.
const (
	EventPurchase   = "purchase"
	EventActivate   = "activate"
	EventUpgrade    = "upgrade"
	EventDowngrade  = "downgrade"
	EventDeactivate = "deactivate"
	EventRefund     = "refund"
)

// AppSumoPayload is the body AppSumo posts for every license event.
type AppSumoPayload struct {
	Event          string `json:"event" binding:"required"`
	LicenseKey     string `json:"license_key"`
	PrevLicenseKey string `json:"prev_license_key"`
	PlanID         string `json:"plan_id"`
	LicenseStatus  string `json:"license_status"`
	Tier           int    `json:"tier"`
	Test           bool   `json:"test"`
	UserName       string `json:"user_name"`
	UserEmail      string `json:"user_email"`
}

// appSumoTimestampWindow is how old a webhook delivery may be before
// it is rejected as a replay.
const appSumoTimestampWindow = 5 * time.Minute

var (
	ErrBadTimestamp = errors.New("webhook timestamp outside accepted window")
	ErrBadSignature = errors.New("webhook signature missing")
)

// ValidateAppSumoHeaders checks the vendor headers before any payload
// processing. The timestamp is epoch milliseconds and must fall within
// the last five minutes. The signature is only checked for presence:
// AppSumo's partner docs do not publish a signing scheme for this
// integration, so there is nothing to verify it against.
func ValidateAppSumoHeaders(timestamp, signature string, now time.Time) error {
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}

	sent := time.UnixMilli(ms)
	if sent.After(now) || now.Sub(sent) > appSumoTimestampWindow {
		return ErrBadTimestamp
	}

	if signature == "" {
		return ErrBadSignature
	}

	return nil
}
