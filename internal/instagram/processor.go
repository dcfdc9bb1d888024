package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// WebhookPayload is the body Meta posts for subscribed events.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	From struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Media struct {
		ID string `json:"id"`
	} `json:"media"`
}

// Change fields the subscription covers.
const (
	FieldComments     = "comments"
	FieldMentions     = "mentions"
	FieldMessages     = "messages"
	FieldLiveComments = "live_comments"
)

// AutomationStore is the persistence the processor needs.
type AutomationStore interface {
	// ValidTokens returns unexpired, valid Instagram tokens.
	ValidTokens(ctx context.Context) ([]models.OAuthToken, error)
	// FindAutomation returns the enabled automation for a user and
	// post, or nil when none exists.
	FindAutomation(ctx context.Context, userID int64, postID string) (*models.DMAutomation, error)
	HasProcessedComment(ctx context.Context, automationID int64, commentID string) (bool, error)
	RecordComment(ctx context.Context, h *models.CommentHistory) error
}

// Processor turns live comments into automated direct messages.
type Processor struct {
	store  AutomationStore
	graph  GraphAPI
	cipher *TokenCipher
	log    *slog.Logger
	now    func() time.Time
}

func NewProcessor(store AutomationStore, graph GraphAPI, cipher *TokenCipher, log *slog.Logger) *Processor {
	return &Processor{store: store, graph: graph, cipher: cipher, log: log, now: time.Now}
}

// HandleChange dispatches one webhook change. Only live comments
// trigger automation; the other subscribed fields are just logged so
// the subscription stays auditable.
func (p *Processor) HandleChange(ctx context.Context, accountID string, change Change) error {
	switch change.Field {
	case FieldLiveComments:
		return p.processLiveComment(ctx, accountID, change.Value)
	case FieldComments, FieldMentions, FieldMessages:
		p.log.Info("instagram event received", "field", change.Field, "account", accountID)
		return nil
	default:
		p.log.Warn("unknown instagram change field", "field", change.Field)
		return nil
	}
}

func (p *Processor) processLiveComment(ctx context.Context, accountID string, value ChangeValue) error {
	// Resolve which connected user owns the commented account by
	// matching stored tokens against the webhook's account ID.
	userID, accessToken, err := p.resolveAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if userID == 0 {
		p.log.Info("no connected account for instagram webhook", "account", accountID)
		return nil
	}

	// Post-specific config wins; "default" is the account-wide catch-all.
	automation, err := p.store.FindAutomation(ctx, userID, value.Media.ID)
	if err != nil {
		return err
	}
	if automation == nil {
		automation, err = p.store.FindAutomation(ctx, userID, "default")
		if err != nil {
			return err
		}
	}
	if automation == nil {
		return nil
	}

	// Webhook redelivery must never DM the same commenter twice.
	seen, err := p.store.HasProcessedComment(ctx, automation.ID, value.ID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	matched := matchRules(automation.DMRules, value.Text)
	if len(matched) == 0 {
		return p.store.RecordComment(ctx, &models.CommentHistory{
			AutomationID:      automation.ID,
			CommentID:         value.ID,
			CommenterUsername: value.From.Username,
			ResponseType:      "direct_message",
			ResponseStatus:    "skipped",
			MatchedRules:      false,
			Processed:         true,
		})
	}

	businessID, err := p.graph.BusinessAccountID(ctx, accessToken)
	if err != nil {
		return p.recordFailure(ctx, automation.ID, value, err)
	}

	for _, rule := range matched {
		if err := p.graph.SendDM(ctx, accessToken, businessID, value.From.Username, rule.Message); err != nil {
			return p.recordFailure(ctx, automation.ID, value, err)
		}
	}

	now := p.now()
	return p.store.RecordComment(ctx, &models.CommentHistory{
		AutomationID:      automation.ID,
		CommentID:         value.ID,
		CommenterUsername: value.From.Username,
		ResponseType:      "direct_message",
		ResponseStatus:    "sent",
		MatchedRules:      true,
		Processed:         true,
		RespondedAt:       &now,
	})
}

func (p *Processor) resolveAccount(ctx context.Context, accountID string) (int64, string, error) {
	tokens, err := p.store.ValidTokens(ctx)
	if err != nil {
		return 0, "", err
	}

	for _, token := range tokens {
		accessToken, err := p.cipher.Decrypt(token.AccessToken)
		if err != nil {
			p.log.Warn("undecryptable instagram token", "user", token.UserID, "error", err)
			continue
		}
		id, err := p.graph.BusinessAccountID(ctx, accessToken)
		if err != nil {
			p.log.Warn("instagram account lookup failed", "user", token.UserID, "error", err)
			continue
		}
		if id == accountID {
			return token.UserID, accessToken, nil
		}
	}
	return 0, "", nil
}

func (p *Processor) recordFailure(ctx context.Context, automationID int64, value ChangeValue, cause error) error {
	msg := cause.Error()
	// error_message column is VARCHAR(255)
	if len(msg) > 255 {
		msg = msg[:255]
	}
	recordErr := p.store.RecordComment(ctx, &models.CommentHistory{
		AutomationID:      automationID,
		CommentID:         value.ID,
		CommenterUsername: value.From.Username,
		ResponseType:      "direct_message",
		ResponseStatus:    "failed",
		ErrorMessage:      &msg,
		MatchedRules:      true,
		Processed:         true,
	})
	if recordErr != nil {
		return fmt.Errorf("record dm failure (%v): %w", cause, recordErr)
	}
	return cause
}

// matchRules returns every active rule whose trigger keyword appears
// in the comment, case-insensitively.
func matchRules(rules []models.DMRule, commentText string) []models.DMRule {
	text := strings.ToLower(commentText)
	var matched []models.DMRule
	for _, rule := range rules {
		if !rule.Active() || rule.TriggerKeyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(rule.TriggerKeyword)) {
			matched = append(matched, rule)
		}
	}
	return matched
}
