package license

import (
	"context"
	"fmt"
	"strconv"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// LemonSqueezy webhook event names.
const (
	LemonOrderCreated      = "order_created"
	LemonLicenseKeyCreated = "license_key_created"
	LemonLicenseKeyUpdated = "license_key_updated"
	LemonLicenseKeyRevoked = "license_key_revoked"
	LemonOrderRefunded     = "order_refunded"
)

// LemonSqueezy product IDs per plan. The store has shipped multiple
// variants of each plan over time, so every plan is a set.
var (
	lemonEnterpriseProducts = map[int64]bool{363041: true, 363064: true}
	lemonAgencyProducts     = map[int64]bool{363063: true, 321751: true}
	lemonTeamProducts       = map[int64]bool{363062: true, 363040: true}
	lemonIndividualProducts = map[int64]bool{328561: true, 285937: true}
)

// TierForLemonProduct maps a store product onto the internal tier
// scale shared with AppSumo. Unknown products default to tier 1.
func TierForLemonProduct(productID int64) int {
	switch {
	case lemonEnterpriseProducts[productID]:
		return 4
	case lemonAgencyProducts[productID]:
		return 3
	case lemonTeamProducts[productID]:
		return 2
	case lemonIndividualProducts[productID]:
		return 1
	default:
		return 1
	}
}

// LemonPlanName returns the display name for a product's plan.
func LemonPlanName(productID int64) string {
	switch TierForLemonProduct(productID) {
	case 4:
		return "Enterprise Monthly"
	case 3:
		return "Agency Monthly"
	case 2:
		return "Team Monthly"
	default:
		return "Individual Monthly"
	}
}

// LemonPayload is the (trimmed) body LemonSqueezy posts. Only the
// fields the platform acts on are modeled.
type LemonPayload struct {
	Meta struct {
		EventName  string            `json:"event_name"`
		CustomData map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Key            string `json:"key"`
			Status         string `json:"status"`
			ProductID      int64  `json:"product_id"`
			UserName       string `json:"user_name"`
			UserEmail      string `json:"user_email"`
			FirstOrderItem struct {
				ProductID   int64  `json:"product_id"`
				ProductName string `json:"product_name"`
			} `json:"first_order_item"`
		} `json:"attributes"`
	} `json:"data"`
}

func (p *LemonPayload) productID() int64 {
	if p.Data.Attributes.ProductID != 0 {
		return p.Data.Attributes.ProductID
	}
	return p.Data.Attributes.FirstOrderItem.ProductID
}

// ProcessLemon handles one LemonSqueezy webhook delivery. Same
// contract as ProcessAppSumo: one transaction, always a 200-shaped
// Result, notifications described rather than sent.
func (e *Engine) ProcessLemon(ctx context.Context, p *LemonPayload) *Result {
	event := p.Meta.EventName
	res := &Result{
		Event:   event,
		Status:  StatusUnknown,
		Message: "Webhook processed",
	}

	fingerprint := fmt.Sprintf("lemonsqueezy:%s:%s", event, p.Data.ID)

	err := e.store.Transact(ctx, func(s Store) error {
		inserted, err := s.RecordWebhookEvent(ctx, models.VendorLemonSqueezy, fingerprint, event, p.Data.Attributes.Key)
		if err != nil {
			return err
		}
		if !inserted {
			res.Duplicate = true
			res.Message = "Webhook already processed"
			return nil
		}

		switch event {
		case LemonOrderCreated:
			return e.applyLemonOrder(ctx, s, p, res)
		case LemonLicenseKeyCreated:
			return e.applyLemonLicenseCreated(ctx, s, p, res)
		case LemonLicenseKeyUpdated:
			return e.applyLemonLicenseUpdated(ctx, s, p, res)
		case LemonLicenseKeyRevoked:
			return e.applyLemonRevoked(ctx, s, p, res)
		case LemonOrderRefunded:
			res.Status = StatusInactive
			res.DiscordMessage = fmt.Sprintf("Order refunded: %s", p.Data.ID)
			e.queueLemonGoodbye(p, res)
			return nil
		default:
			e.log.Warn("unhandled lemonsqueezy event", "event", event)
			res.Message = fmt.Sprintf("Unhandled event type: %s", event)
			return nil
		}
	})
	if err != nil {
		e.log.Error("lemonsqueezy webhook failed", "event", event, "error", err)
		res.addError(err.Error())
	}

	return res
}

func (e *Engine) applyLemonOrder(ctx context.Context, s Store, p *LemonPayload, res *Result) error {
	attrs := p.Data.Attributes
	res.Status = StatusActive

	// Credit top-ups are ordinary orders flagged through checkout
	// custom data.
	if p.Meta.CustomData["is_credit_purchase"] == "true" {
		credits, err := strconv.Atoi(p.Meta.CustomData["credits"])
		if err != nil || credits <= 0 {
			res.addError(fmt.Sprintf("Invalid credit purchase amount: %q", p.Meta.CustomData["credits"]))
			return nil
		}
		if attrs.UserEmail == "" {
			res.addError("Credit purchase without a customer email")
			return nil
		}

		userID, err := s.UpsertUserByEmail(ctx, attrs.UserEmail, attrs.UserName)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("Purchased %d credits", credits)
		if err := s.AdjustCredits(ctx, userID, credits, models.CreditTxPurchased, desc); err != nil {
			return err
		}
		if err := s.CreateNotification(ctx, userID, desc); err != nil {
			return err
		}

		res.DiscordMessage = fmt.Sprintf("@everyone We made a Sale 🎉 %s bought %d credits", attrs.UserEmail, credits)
		return nil
	}

	res.DiscordMessage = fmt.Sprintf("@everyone We made a Sale 🎉 %s (%s)",
		p.Data.Attributes.FirstOrderItem.ProductName, attrs.UserEmail)
	return nil
}

func (e *Engine) applyLemonLicenseCreated(ctx context.Context, s Store, p *LemonPayload, res *Result) error {
	attrs := p.Data.Attributes
	productID := p.productID()
	tier := TierForLemonProduct(productID)
	now := e.now()

	lk := &models.LicenseKey{
		Key:            attrs.Key,
		Vendor:         models.VendorLemonSqueezy,
		Status:         models.LicenseActive,
		Tier:           tier,
		PlanID:         strconv.FormatInt(productID, 10),
		LemonProductID: &productID,
		IsMainKey:      true,
		ActivatedAt:    &now,
	}
	if err := s.UpsertLicense(ctx, lk); err != nil {
		return err
	}

	// Subscription seats use predictable keys so support can read a
	// seat key and know its parent at a glance.
	for i := 0; i < MaxUsersForTier(tier)-1; i++ {
		subKey := fmt.Sprintf("SUB-%d-%s", i+1, attrs.Key)
		if err := s.CreateSubLicense(ctx, lk.ID, subKey); err != nil && err != ErrDuplicateKey {
			return err
		}
	}

	if attrs.UserEmail != "" {
		userID, err := s.UpsertUserByEmail(ctx, attrs.UserEmail, attrs.UserName)
		if err != nil {
			return err
		}
		if err := s.LinkUserLicense(ctx, userID, lk.ID); err != nil {
			return err
		}

		planID, err := s.UpsertPlan(ctx, models.VendorLemonSqueezy,
			strconv.FormatInt(productID, 10), LemonPlanName(productID), MaxUsersForTier(tier))
		if err != nil {
			return err
		}
		if err := s.CancelActiveSubscriptions(ctx, userID, now); err != nil {
			return err
		}
		if err := s.CreateSubscription(ctx, userID, planID); err != nil {
			return err
		}
		if err := s.UpsertInstallation(ctx, userID, "INSTALLED"); err != nil {
			return err
		}
		if err := s.UpsertLeaderboard(ctx, userID); err != nil {
			return err
		}

		credits := CreditsForTier(tier)
		desc := fmt.Sprintf("Plan credits granted (%s): %d credits", LemonPlanName(productID), credits)
		if err := s.AdjustCredits(ctx, userID, credits, models.CreditTxPlanCreditsAdjusted, desc); err != nil {
			return err
		}

		res.Emails = append(res.Emails, Email{Kind: EmailWelcome, Name: attrs.UserName, Address: attrs.UserEmail, ToTier: tier})
	}

	res.Status = StatusActive
	res.DiscordMessage = fmt.Sprintf("New %s license: %s", LemonPlanName(productID), attrs.Key)
	return nil
}

func (e *Engine) applyLemonLicenseUpdated(ctx context.Context, s Store, p *LemonPayload, res *Result) error {
	attrs := p.Data.Attributes
	now := e.now()

	switch attrs.Status {
	case "active":
		if err := e.applyLemonLicenseCreated(ctx, s, p, res); err != nil {
			return err
		}
		if attrs.UserName != "" && attrs.UserEmail != "" {
			res.Emails = append(res.Emails, Email{Kind: EmailPlanUpdate, Name: attrs.UserName, Address: attrs.UserEmail,
				ToTier: TierForLemonProduct(p.productID())})
		}
		return nil
	case "expired", "disabled", "inactive":
		res.Status = StatusInactive
		return e.deactivateCascade(ctx, s, attrs.Key, now, res)
	default:
		e.log.Warn("unknown lemonsqueezy license status", "status", attrs.Status, "key", attrs.Key)
		res.addError(fmt.Sprintf("Unknown license status %q, treating as inactive", attrs.Status))
		res.Status = StatusInactive
		return e.deactivateCascade(ctx, s, attrs.Key, now, res)
	}
}

func (e *Engine) applyLemonRevoked(ctx context.Context, s Store, p *LemonPayload, res *Result) error {
	res.Status = StatusInactive
	if err := e.deactivateCascade(ctx, s, p.Data.Attributes.Key, e.now(), res); err != nil {
		return err
	}
	e.queueLemonGoodbye(p, res)
	res.DiscordMessage = fmt.Sprintf("License revoked: %s", p.Data.Attributes.Key)
	return nil
}

func (e *Engine) queueLemonGoodbye(p *LemonPayload, res *Result) {
	attrs := p.Data.Attributes
	if attrs.UserName == "" || attrs.UserEmail == "" {
		res.addError("Goodbye email skipped due to missing information")
		return
	}
	res.Emails = append(res.Emails, Email{Kind: EmailGoodbye, Name: attrs.UserName, Address: attrs.UserEmail})
}
