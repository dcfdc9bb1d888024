package license

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/models"
	"github.com/google/uuid"
)

// License statuses reported back to the vendor.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusUnknown  = "UNKNOWN"
)

// EmailKind selects an email template for the dispatcher.
type EmailKind string

const (
	EmailWelcome    EmailKind = "welcome"
	EmailPlanChange EmailKind = "plan_change"
	EmailGoodbye    EmailKind = "goodbye"
	EmailPlanUpdate EmailKind = "plan_update"
)

// Email is a post-commit email instruction produced by the engine.
type Email struct {
	Kind     EmailKind
	Name     string
	Address  string
	FromTier int
	ToTier   int
}

// Result is the outcome of processing one webhook delivery. The engine
// only mutates the database; Discord and email dispatch happen after
// commit, driven by DiscordMessage and Emails, so a slow notification
// can never hold a transaction open.
type Result struct {
	Event          string   `json:"event"`
	Status         string   `json:"-"`
	Message        string   `json:"message"`
	Duplicate      bool     `json:"-"`
	Test           bool     `json:"-"`
	DiscordMessage string   `json:"-"`
	Emails         []Email  `json:"-"`
	Errors         []string `json:"errors,omitempty"`
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Engine applies vendor webhook events to the license state. Each
// delivery runs in one transaction keyed by a delivery fingerprint, so
// retries and vendor replays never double-apply credit deltas.
type Engine struct {
	store  Store
	planID func(tier int) string
	log    *slog.Logger
	now    func() time.Time
}

func NewEngine(store Store, planID func(tier int) string, log *slog.Logger) *Engine {
	return &Engine{store: store, planID: planID, log: log, now: time.Now}
}

// ProcessAppSumo handles one AppSumo webhook delivery. The returned
// Result always describes a 200 response; database failures surface as
// entries in Result.Errors after the transaction rolls back.
func (e *Engine) ProcessAppSumo(ctx context.Context, p *AppSumoPayload, timestamp string) *Result {
	res := &Result{
		Event:   p.Event,
		Status:  StatusUnknown,
		Message: "Webhook processed",
		Test:    p.Test,
	}

	fingerprint := fmt.Sprintf("appsumo:%s:%s:%s", p.Event, p.LicenseKey, timestamp)

	err := e.store.Transact(ctx, func(s Store) error {
		inserted, err := s.RecordWebhookEvent(ctx, models.VendorAppSumo, fingerprint, p.Event, p.LicenseKey)
		if err != nil {
			return err
		}
		if !inserted {
			res.Duplicate = true
			res.Message = "Webhook already processed"
			return nil
		}

		switch p.Event {
		case EventPurchase:
			return e.applyPurchase(ctx, s, p, res)
		case EventActivate:
			return e.applyActivate(ctx, s, p, res)
		case EventUpgrade, EventDowngrade:
			return e.applyPlanChange(ctx, s, p, res)
		case EventDeactivate:
			return e.applyDeactivate(ctx, s, p, res)
		case EventRefund:
			return e.applyRefund(ctx, s, p, res)
		default:
			e.log.Warn("unhandled appsumo event", "event", p.Event, "license_key", p.LicenseKey)
			res.Message = fmt.Sprintf("Unhandled event type: %s", p.Event)
			return nil
		}
	})
	if err != nil {
		e.log.Error("appsumo webhook failed", "event", p.Event, "license_key", p.LicenseKey, "error", err)
		res.addError(err.Error())
	}

	return res
}

func (e *Engine) applyPurchase(ctx context.Context, s Store, p *AppSumoPayload, res *Result) error {
	tier := ValidateTier(p.Tier)

	lk, err := e.upsertActiveLicense(ctx, s, p.LicenseKey, tier, p.PlanID)
	if err != nil {
		return err
	}

	if err := e.fanOutSubLicenses(ctx, s, lk.ID, SubLicensesForTier(tier)); err != nil {
		return err
	}

	if p.UserEmail != "" {
		if _, err := e.attachUser(ctx, s, lk, tier, p.UserName, p.UserEmail); err != nil {
			return err
		}
		res.Emails = append(res.Emails, Email{Kind: EmailWelcome, Name: p.UserName, Address: p.UserEmail, ToTier: tier})
	}

	res.Status = StatusActive
	res.DiscordMessage = fmt.Sprintf("🎉 New purchase! AppSumo license %s (tier %d)", p.LicenseKey, tier)
	return nil
}

func (e *Engine) applyActivate(ctx context.Context, s Store, p *AppSumoPayload, res *Result) error {
	tier := ValidateTier(p.Tier)

	lk, err := e.upsertActiveLicense(ctx, s, p.LicenseKey, tier, p.PlanID)
	if err != nil {
		return err
	}

	if err := e.fanOutSubLicenses(ctx, s, lk.ID, SubLicensesForTier(tier)); err != nil {
		return err
	}

	// Activation only links accounts that already exist. A missing
	// account is a soft error; the vendor will not retry on 200.
	if p.UserEmail != "" {
		user, err := s.GetUserByEmail(ctx, p.UserEmail)
		if err != nil {
			return err
		}
		if user == nil {
			res.addError(fmt.Sprintf("User not found for activation: %s", p.UserEmail))
		} else if err := e.attachExisting(ctx, s, user.ID, lk, tier, p.PlanID); err != nil {
			return err
		}
	}

	res.Status = StatusActive
	res.DiscordMessage = fmt.Sprintf("License activated: %s (tier %d)", p.LicenseKey, tier)
	return nil
}

func (e *Engine) applyPlanChange(ctx context.Context, s Store, p *AppSumoPayload, res *Result) error {
	newTier := ValidateTier(p.Tier)
	now := e.now()

	prev, err := s.GetLicense(ctx, p.PrevLicenseKey)
	if err != nil {
		return err
	}
	if prev == nil {
		res.addError(fmt.Sprintf("Previous license not found: %s", p.PrevLicenseKey))
	}

	var userID int64
	var haveUser bool
	var prevTier int
	if prev != nil {
		prevTier = ValidateTier(prev.Tier)
		userID, haveUser, err = s.GetLicenseUser(ctx, prev.ID)
		if err != nil {
			return err
		}
		if !haveUser {
			res.addError(fmt.Sprintf("No user linked to previous license: %s", p.PrevLicenseKey))
		}

		// Credit delta first, so the ledger row references the tiers as
		// they were at the moment of the change.
		if haveUser {
			delta := CreditsForTier(newTier) - CreditsForTier(prevTier)
			if delta != 0 {
				verb := "added"
				amount := delta
				if delta < 0 {
					verb = "removed"
					amount = -delta
				}
				desc := fmt.Sprintf("Plan change credit adjustment (tier %d → %d): %d credits %s",
					prevTier, newTier, amount, verb)
				if err := s.AdjustCredits(ctx, userID, delta, models.CreditTxPlanCreditsAdjusted, desc); err != nil {
					return err
				}
			}
		}

		if err := s.DeactivateLicense(ctx, p.PrevLicenseKey, now); err != nil {
			return err
		}
		if err := s.DeactivateSubLicenses(ctx, prev.ID, p.PrevLicenseKey, now); err != nil {
			return err
		}
		if haveUser {
			if err := s.UnlinkUserLicense(ctx, userID, prev.ID); err != nil {
				return err
			}
		}
	}

	lk, err := e.upsertActiveLicense(ctx, s, p.LicenseKey, newTier, p.PlanID)
	if err != nil {
		return err
	}
	if err := e.fanOutSubLicenses(ctx, s, lk.ID, SubLicensesForTier(newTier)); err != nil {
		return err
	}

	if haveUser {
		if err := e.attachExisting(ctx, s, userID, lk, newTier, p.PlanID); err != nil {
			return err
		}
	} else if p.UserEmail != "" {
		if _, err := e.attachUser(ctx, s, lk, newTier, p.UserName, p.UserEmail); err != nil {
			return err
		}
	}

	if p.UserName != "" && p.UserEmail != "" {
		res.Emails = append(res.Emails, Email{
			Kind: EmailPlanChange, Name: p.UserName, Address: p.UserEmail,
			FromTier: prevTier, ToTier: newTier,
		})
	}

	res.Status = StatusActive
	res.DiscordMessage = fmt.Sprintf("Plan %s: %s → %s (tier %d → %d)",
		p.Event, p.PrevLicenseKey, p.LicenseKey, prevTier, newTier)
	return nil
}

func (e *Engine) applyDeactivate(ctx context.Context, s Store, p *AppSumoPayload, res *Result) error {
	now := e.now()
	res.Status = StatusInactive

	// A deactivation for a seat key only turns off that seat; the main
	// license and the other seats keep working.
	sub, err := s.GetSubLicense(ctx, p.LicenseKey)
	if err != nil {
		return err
	}
	if sub != nil {
		if err := s.DeactivateSubLicense(ctx, p.LicenseKey, now); err != nil {
			return err
		}
		res.Message = "Webhook processed"
		res.DiscordMessage = fmt.Sprintf("Seat deactivated: %s", p.LicenseKey)
		return nil
	}

	if err := e.deactivateCascade(ctx, s, p.LicenseKey, now, res); err != nil {
		return err
	}

	e.queueGoodbyeEmail(p, res)
	res.DiscordMessage = fmt.Sprintf("License deactivated: %s", p.LicenseKey)
	return nil
}

func (e *Engine) applyRefund(ctx context.Context, s Store, p *AppSumoPayload, res *Result) error {
	now := e.now()
	res.Status = StatusInactive

	lk, err := s.GetLicense(ctx, p.LicenseKey)
	if err != nil {
		return err
	}

	// Prefer the tier we recorded at sale time over the payload, which
	// some refund deliveries omit.
	tier := ValidateTier(p.Tier)
	if lk != nil {
		tier = ValidateTier(lk.Tier)
	}

	if err := e.deactivateCascade(ctx, s, p.LicenseKey, now, res); err != nil {
		return err
	}

	if lk != nil {
		userID, ok, err := s.GetLicenseUser(ctx, lk.ID)
		if err != nil {
			return err
		}
		if ok {
			credits := CreditsForTier(tier)
			desc := fmt.Sprintf("Refund credit deduction (tier %d): %d credits removed", tier, credits)
			if err := s.AdjustCredits(ctx, userID, -credits, models.CreditTxRefundDeducted, desc); err != nil {
				return err
			}
		}
	}

	e.queueGoodbyeEmail(p, res)
	res.DiscordMessage = fmt.Sprintf("Refund processed: %s (tier %d)", p.LicenseKey, tier)
	return nil
}

// deactivateCascade flips a main license and every seat under it to
// INACTIVE and cancels the owner's subscription.
func (e *Engine) deactivateCascade(ctx context.Context, s Store, key string, now time.Time, res *Result) error {
	lk, err := s.GetLicense(ctx, key)
	if err != nil {
		return err
	}
	if lk == nil {
		res.addError(fmt.Sprintf("License not found: %s", key))
		return nil
	}

	if err := s.DeactivateLicense(ctx, key, now); err != nil {
		return err
	}
	if err := s.DeactivateSubLicenses(ctx, lk.ID, key, now); err != nil {
		return err
	}

	userID, ok, err := s.GetLicenseUser(ctx, lk.ID)
	if err != nil {
		return err
	}
	if ok {
		if err := s.CancelActiveSubscriptions(ctx, userID, now); err != nil {
			return err
		}
		if err := s.UpsertInstallation(ctx, userID, "UNINSTALLED"); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) queueGoodbyeEmail(p *AppSumoPayload, res *Result) {
	if p.Test {
		return
	}
	if p.UserName == "" || p.UserEmail == "" {
		res.addError("Goodbye email skipped due to missing information")
		return
	}
	res.Emails = append(res.Emails, Email{Kind: EmailGoodbye, Name: p.UserName, Address: p.UserEmail})
}

func (e *Engine) upsertActiveLicense(ctx context.Context, s Store, key string, tier int, planID string) (*models.LicenseKey, error) {
	if planID == "" {
		planID = e.planID(tier)
	}
	now := e.now()
	lk := &models.LicenseKey{
		Key:         key,
		Vendor:      models.VendorAppSumo,
		Status:      models.LicenseActive,
		Tier:        tier,
		PlanID:      planID,
		IsMainKey:   true,
		ActivatedAt: &now,
	}
	if err := s.UpsertLicense(ctx, lk); err != nil {
		return nil, err
	}
	return lk, nil
}

// fanOutSubLicenses tops the seat count up to target. Existing seats
// are never touched, so replays and repeated activations are no-ops.
func (e *Engine) fanOutSubLicenses(ctx context.Context, s Store, licenseID int64, target int) error {
	existing, err := s.CountSubLicenses(ctx, licenseID)
	if err != nil {
		return err
	}

	for i := existing; i < target; i++ {
		// UUID collisions are vanishingly rare but the unique index is
		// authoritative; retry with a fresh key a few times.
		var created bool
		for attempt := 0; attempt < 5; attempt++ {
			err := s.CreateSubLicense(ctx, licenseID, uuid.NewString())
			if err == nil {
				created = true
				break
			}
			if err != ErrDuplicateKey {
				return err
			}
		}
		if !created {
			return fmt.Errorf("could not mint sub-license for license %d", licenseID)
		}
	}
	return nil
}

// attachUser creates the account if needed and wires up the license,
// plan, subscription, installation and leaderboard rows.
func (e *Engine) attachUser(ctx context.Context, s Store, lk *models.LicenseKey, tier int, name, email string) (int64, error) {
	userID, err := s.UpsertUserByEmail(ctx, email, name)
	if err != nil {
		return 0, err
	}
	if err := e.attachExisting(ctx, s, userID, lk, tier, lk.PlanID); err != nil {
		return 0, err
	}
	return userID, nil
}

func (e *Engine) attachExisting(ctx context.Context, s Store, userID int64, lk *models.LicenseKey, tier int, planProductID string) error {
	if err := s.LinkUserLicense(ctx, userID, lk.ID); err != nil {
		return err
	}

	if planProductID == "" {
		planProductID = fmt.Sprintf("tier%d", tier)
	}
	planID, err := s.UpsertPlan(ctx, models.VendorAppSumo, planProductID,
		fmt.Sprintf("Tier %d Lifetime", tier), MaxUsersForTier(tier))
	if err != nil {
		return err
	}

	if err := s.CancelActiveSubscriptions(ctx, userID, e.now()); err != nil {
		return err
	}
	if err := s.CreateSubscription(ctx, userID, planID); err != nil {
		return err
	}
	if err := s.UpsertInstallation(ctx, userID, "INSTALLED"); err != nil {
		return err
	}
	return s.UpsertLeaderboard(ctx, userID)
}
