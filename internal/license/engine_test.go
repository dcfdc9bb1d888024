package license

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/boostlyhq/boostly-golang/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	planID := func(tier int) string { return fmt.Sprintf("boostly_tier%d", tier) }
	return NewEngine(store, planID, slog.Default()), store
}

func TestPurchaseCreatesActiveLicenseWithSeats(t *testing.T) {
	engine, store := newTestEngine(t)

	res := engine.ProcessAppSumo(context.Background(), &AppSumoPayload{
		Event:      EventPurchase,
		LicenseKey: "KEY-1",
		Tier:       3,
		UserName:   "Ada",
		UserEmail:  "ada@example.com",
	}, "1000")

	require.Empty(t, res.Errors)
	assert.Equal(t, StatusActive, res.Status)

	lk := store.Licenses["KEY-1"]
	require.NotNil(t, lk)
	assert.Equal(t, models.LicenseActive, lk.Status)
	assert.Equal(t, 3, lk.Tier)
	assert.Equal(t, models.VendorAppSumo, lk.Vendor)

	seats := 0
	for _, sl := range store.SubLicenses {
		if sl.MainLicenseKeyID == lk.ID {
			seats++
		}
	}
	assert.Equal(t, 10, seats)

	// The buyer gets an account, a subscription and a welcome email.
	require.Contains(t, store.Users, "ada@example.com")
	require.Len(t, res.Emails, 1)
	assert.Equal(t, EmailWelcome, res.Emails[0].Kind)
}

func TestPurchaseClampsInvalidTier(t *testing.T) {
	engine, store := newTestEngine(t)

	res := engine.ProcessAppSumo(context.Background(), &AppSumoPayload{
		Event:      EventPurchase,
		LicenseKey: "KEY-odd",
		Tier:       99,
	}, "1000")

	require.Empty(t, res.Errors)
	assert.Equal(t, 1, store.Licenses["KEY-odd"].Tier)
}

func TestUpgradeAppliesExactCreditDelta(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventPurchase, LicenseKey: "OLD", Tier: 1,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "1000")

	userID := store.Users["ada@example.com"].ID
	balanceBefore := store.Balances[userID]

	res := engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventUpgrade, LicenseKey: "NEW", PrevLicenseKey: "OLD", Tier: 3,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "2000")

	require.Empty(t, res.Errors)
	assert.Equal(t, CreditsForTier(3)-CreditsForTier(1), store.Balances[userID]-balanceBefore)

	// Exactly one adjustment row for the plan change.
	var adjustments []models.CreditTransaction
	for _, tx := range store.Ledger {
		if tx.Type == models.CreditTxPlanCreditsAdjusted {
			adjustments = append(adjustments, tx)
		}
	}
	require.Len(t, adjustments, 1)
	assert.Equal(t, 900, adjustments[0].Amount)
	assert.Contains(t, adjustments[0].Description, "tier 1 → 3")
	assert.Contains(t, adjustments[0].Description, "900 credits added")

	// The old key and its seats are dead, the new key lives.
	assert.Equal(t, models.LicenseInactive, store.Licenses["OLD"].Status)
	assert.Equal(t, models.LicenseActive, store.Licenses["NEW"].Status)
}

func TestDowngradeRemovesCredits(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventPurchase, LicenseKey: "OLD", Tier: 4,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "1000")
	userID := store.Users["ada@example.com"].ID
	balanceBefore := store.Balances[userID]

	res := engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventDowngrade, LicenseKey: "NEW", PrevLicenseKey: "OLD", Tier: 2,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "2000")

	require.Empty(t, res.Errors)
	assert.Equal(t, CreditsForTier(2)-CreditsForTier(4), store.Balances[userID]-balanceBefore)
}

func TestReplayedDeliveryIsANoOp(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventPurchase, LicenseKey: "OLD", Tier: 1,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "1000")
	userID := store.Users["ada@example.com"].ID

	upgrade := &AppSumoPayload{
		Event: EventUpgrade, LicenseKey: "NEW", PrevLicenseKey: "OLD", Tier: 4,
		UserName: "Ada", UserEmail: "ada@example.com",
	}

	first := engine.ProcessAppSumo(ctx, upgrade, "2000")
	require.Empty(t, first.Errors)
	balanceAfterFirst := store.Balances[userID]

	// The vendor redelivers the same webhook. Same fingerprint, so the
	// credit delta must not apply twice.
	second := engine.ProcessAppSumo(ctx, upgrade, "2000")
	assert.True(t, second.Duplicate)
	assert.Equal(t, "Webhook already processed", second.Message)
	assert.Equal(t, balanceAfterFirst, store.Balances[userID])
}

func TestSeatCountConvergesOnRepeatedActivation(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := engine.ProcessAppSumo(ctx, &AppSumoPayload{
			Event: EventActivate, LicenseKey: "KEY-2", Tier: 2,
		}, fmt.Sprintf("%d", 1000+i))
		require.Empty(t, res.Errors)
	}

	lk := store.Licenses["KEY-2"]
	seats := 0
	for _, sl := range store.SubLicenses {
		if sl.MainLicenseKeyID == lk.ID {
			seats++
		}
	}
	assert.Equal(t, 5, seats, "seat count must converge to the tier target, not grow")
}

func TestActivateUnknownUserIsSoftError(t *testing.T) {
	engine, store := newTestEngine(t)

	res := engine.ProcessAppSumo(context.Background(), &AppSumoPayload{
		Event: EventActivate, LicenseKey: "KEY-3", Tier: 1,
		UserEmail: "ghost@example.com",
	}, "1000")

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "User not found for activation")
	// The license itself still activates.
	assert.Equal(t, models.LicenseActive, store.Licenses["KEY-3"].Status)
}

func TestDeactivateCascadesToSeats(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventPurchase, LicenseKey: "KEY-4", Tier: 2,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "1000")

	res := engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventDeactivate, LicenseKey: "KEY-4", Tier: 2,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "2000")

	require.Empty(t, res.Errors)
	assert.Equal(t, StatusInactive, res.Status)
	assert.Equal(t, models.LicenseInactive, store.Licenses["KEY-4"].Status)

	for _, sl := range store.SubLicenses {
		assert.Equal(t, models.LicenseInactive, sl.Status)
		require.NotNil(t, sl.OriginalLicenseKey)
		assert.Equal(t, "KEY-4", *sl.OriginalLicenseKey)
	}

	// Subscription cancelled, goodbye email queued.
	for _, sub := range store.Subscriptions {
		assert.Equal(t, models.SubscriptionCancelled, sub.Status)
	}
	require.Len(t, res.Emails, 1)
	assert.Equal(t, EmailGoodbye, res.Emails[0].Kind)
}

func TestDeactivateSeatKeyOnlyKillsThatSeat(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventPurchase, LicenseKey: "KEY-5", Tier: 2,
	}, "1000")

	var seatKey string
	for key := range store.SubLicenses {
		seatKey = key
		break
	}
	require.NotEmpty(t, seatKey)

	res := engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventDeactivate, LicenseKey: seatKey,
	}, "2000")

	require.Empty(t, res.Errors)
	assert.Equal(t, models.LicenseInactive, store.SubLicenses[seatKey].Status)
	assert.Equal(t, models.LicenseActive, store.Licenses["KEY-5"].Status, "main license must survive a seat deactivation")

	active := 0
	for _, sl := range store.SubLicenses {
		if sl.Status == models.LicenseActive {
			active++
		}
	}
	assert.Equal(t, 4, active)
}

func TestRefundDeductsTierCredits(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventPurchase, LicenseKey: "KEY-6", Tier: 3,
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "1000")
	userID := store.Users["ada@example.com"].ID
	store.Balances[userID] = 1500

	res := engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventRefund, LicenseKey: "KEY-6",
		UserName: "Ada", UserEmail: "ada@example.com",
	}, "2000")

	require.Empty(t, res.Errors)
	assert.Equal(t, 1500-CreditsForTier(3), store.Balances[userID])
	assert.Equal(t, models.LicenseInactive, store.Licenses["KEY-6"].Status)

	var deduction *models.CreditTransaction
	for i := range store.Ledger {
		if store.Ledger[i].Type == models.CreditTxRefundDeducted {
			deduction = &store.Ledger[i]
		}
	}
	require.NotNil(t, deduction)
	assert.Equal(t, -CreditsForTier(3), deduction.Amount)
}

func TestUnknownEventChangesNothing(t *testing.T) {
	engine, store := newTestEngine(t)

	res := engine.ProcessAppSumo(context.Background(), &AppSumoPayload{
		Event: "mystery", LicenseKey: "KEY-7",
	}, "1000")

	require.Empty(t, res.Errors)
	assert.Equal(t, StatusUnknown, res.Status)
	assert.Equal(t, "Unhandled event type: mystery", res.Message)
	assert.Empty(t, store.Licenses)
}

func TestGoodbyeEmailSkippedWithoutContactInfo(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventPurchase, LicenseKey: "KEY-8", Tier: 1,
	}, "1000")

	res := engine.ProcessAppSumo(ctx, &AppSumoPayload{
		Event: EventDeactivate, LicenseKey: "KEY-8",
	}, "2000")

	assert.Contains(t, res.Errors, "Goodbye email skipped due to missing information")
	assert.Empty(t, res.Emails)
}
