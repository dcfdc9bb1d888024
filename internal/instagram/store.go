package instagram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// SQLAutomationStore backs the processor with MySQL.
type SQLAutomationStore struct {
	DB *sql.DB
}

func NewSQLAutomationStore(db *sql.DB) *SQLAutomationStore {
	return &SQLAutomationStore{DB: db}
}

func (s *SQLAutomationStore) ValidTokens(ctx context.Context) ([]models.OAuthToken, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, platform, access_token, is_valid, expires_at
		FROM oauth_tokens
		WHERE platform = 'instagram' AND is_valid = TRUE AND expires_at > NOW()`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.OAuthToken
	for rows.Next() {
		var t models.OAuthToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Platform, &t.AccessToken, &t.IsValid, &t.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *SQLAutomationStore) FindAutomation(ctx context.Context, userID int64, postID string) (*models.DMAutomation, error) {
	var a models.DMAutomation
	var rulesJSON []byte
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, post_id, dm_rules, is_enabled, created_at, updated_at
		FROM instagram_dm_automations
		WHERE user_id = ? AND post_id = ? AND is_enabled = TRUE`,
		userID, postID,
	).Scan(&a.ID, &a.UserID, &a.PostID, &rulesJSON, &a.IsEnabled, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query automation: %w", err)
	}
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &a.DMRules); err != nil {
			return nil, fmt.Errorf("decode dm rules for automation %d: %w", a.ID, err)
		}
	}
	return &a, nil
}

func (s *SQLAutomationStore) HasProcessedComment(ctx context.Context, automationID int64, commentID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM instagram_comment_history
			WHERE automation_id = ? AND comment_id = ?
		)`, automationID, commentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check comment history: %w", err)
	}
	return exists, nil
}

func (s *SQLAutomationStore) RecordComment(ctx context.Context, h *models.CommentHistory) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO instagram_comment_history
			(automation_id, comment_id, commenter_username, response_type,
			 response_status, error_message, matched_rules, processed, responded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.AutomationID, h.CommentID, h.CommenterUsername, h.ResponseType,
		h.ResponseStatus, h.ErrorMessage, h.MatchedRules, h.Processed, h.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("insert comment history: %w", err)
	}
	h.ID, _ = res.LastInsertId()
	return nil
}
