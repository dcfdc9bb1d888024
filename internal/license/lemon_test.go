package license

import (
	"context"
	"fmt"
	"testing"

	"github.com/boostlyhq/boostly-golang/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForLemonProduct(t *testing.T) {
	assert.Equal(t, 4, TierForLemonProduct(363041))
	assert.Equal(t, 4, TierForLemonProduct(363064))
	assert.Equal(t, 3, TierForLemonProduct(363063))
	assert.Equal(t, 3, TierForLemonProduct(321751))
	assert.Equal(t, 2, TierForLemonProduct(363062))
	assert.Equal(t, 2, TierForLemonProduct(363040))
	assert.Equal(t, 1, TierForLemonProduct(328561))
	assert.Equal(t, 1, TierForLemonProduct(285937))

	// Unknown products fall back to the individual tier.
	assert.Equal(t, 1, TierForLemonProduct(999999))
}

func lemonPayload(event, key, status string, productID int64) *LemonPayload {
	p := &LemonPayload{}
	p.Meta.EventName = event
	p.Data.ID = fmt.Sprintf("%s-%s", event, key)
	p.Data.Attributes.Key = key
	p.Data.Attributes.Status = status
	p.Data.Attributes.ProductID = productID
	p.Data.Attributes.UserName = "Grace"
	p.Data.Attributes.UserEmail = "grace@example.com"
	return p
}

func TestLemonCreditPurchase(t *testing.T) {
	engine, store := newTestEngine(t)

	p := lemonPayload(LemonOrderCreated, "", "", 0)
	p.Meta.CustomData = map[string]string{"is_credit_purchase": "true", "credits": "500"}

	res := engine.ProcessLemon(context.Background(), p)

	require.Empty(t, res.Errors)
	userID := store.Users["grace@example.com"].ID
	assert.Equal(t, 500, store.Balances[userID])

	require.Len(t, store.Ledger, 1)
	assert.Equal(t, models.CreditTxPurchased, store.Ledger[0].Type)
	assert.Equal(t, "Purchased 500 credits", store.Ledger[0].Description)

	require.Len(t, store.Notifications, 1)
	assert.Contains(t, res.DiscordMessage, "We made a Sale")
}

func TestLemonCreditPurchaseBadAmount(t *testing.T) {
	engine, store := newTestEngine(t)

	p := lemonPayload(LemonOrderCreated, "", "", 0)
	p.Meta.CustomData = map[string]string{"is_credit_purchase": "true", "credits": "lots"}

	res := engine.ProcessLemon(context.Background(), p)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Invalid credit purchase amount")
	assert.Empty(t, store.Ledger)
}

func TestLemonLicenseCreatedMintsNamedSeats(t *testing.T) {
	engine, store := newTestEngine(t)

	res := engine.ProcessLemon(context.Background(),
		lemonPayload(LemonLicenseKeyCreated, "LS-KEY", "active", 363063))

	require.Empty(t, res.Errors)
	lk := store.Licenses["LS-KEY"]
	require.NotNil(t, lk)
	assert.Equal(t, models.VendorLemonSqueezy, lk.Vendor)
	assert.Equal(t, 3, lk.Tier)

	// Agency = 10 seats total, owner plus nine named sub-keys.
	for i := 1; i <= 9; i++ {
		assert.Contains(t, store.SubLicenses, fmt.Sprintf("SUB-%d-LS-KEY", i))
	}
	assert.Len(t, store.SubLicenses, 9)

	// Plan credits granted once.
	userID := store.Users["grace@example.com"].ID
	assert.Equal(t, CreditsForTier(3), store.Balances[userID])
}

func TestLemonLicenseCreatedIsIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	first := lemonPayload(LemonLicenseKeyCreated, "LS-KEY", "active", 363062)
	engine.ProcessLemon(ctx, first)

	// A redelivery carries the same data ID and is deduplicated.
	res := engine.ProcessLemon(ctx, first)
	assert.True(t, res.Duplicate)
	assert.Len(t, store.SubLicenses, 4)

	userID := store.Users["grace@example.com"].ID
	assert.Equal(t, CreditsForTier(2), store.Balances[userID])
}

func TestLemonLicenseUpdatedStatusMapping(t *testing.T) {
	for _, status := range []string{"expired", "disabled", "inactive"} {
		t.Run(status, func(t *testing.T) {
			engine, store := newTestEngine(t)
			ctx := context.Background()

			engine.ProcessLemon(ctx, lemonPayload(LemonLicenseKeyCreated, "LS-KEY", "active", 363040))

			p := lemonPayload(LemonLicenseKeyUpdated, "LS-KEY", status, 363040)
			res := engine.ProcessLemon(ctx, p)

			require.Empty(t, res.Errors)
			assert.Equal(t, StatusInactive, res.Status)
			assert.Equal(t, models.LicenseInactive, store.Licenses["LS-KEY"].Status)
			for _, sl := range store.SubLicenses {
				assert.Equal(t, models.LicenseInactive, sl.Status)
			}
		})
	}
}

func TestLemonLicenseUpdatedUnknownStatusInactivates(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessLemon(ctx, lemonPayload(LemonLicenseKeyCreated, "LS-KEY", "active", 363040))
	res := engine.ProcessLemon(ctx, lemonPayload(LemonLicenseKeyUpdated, "LS-KEY", "paused", 363040))

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Unknown license status")
	assert.Equal(t, models.LicenseInactive, store.Licenses["LS-KEY"].Status)
}

func TestLemonRevokedCascades(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessLemon(ctx, lemonPayload(LemonLicenseKeyCreated, "LS-KEY", "active", 363041))
	res := engine.ProcessLemon(ctx, lemonPayload(LemonLicenseKeyRevoked, "LS-KEY", "", 363041))

	require.Empty(t, res.Errors)
	assert.Equal(t, models.LicenseInactive, store.Licenses["LS-KEY"].Status)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, EmailGoodbye, res.Emails[0].Kind)
}
