package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boostlyhq/boostly-golang/internal/instagram"
	"github.com/boostlyhq/boostly-golang/internal/metrics"
	"github.com/boostlyhq/boostly-golang/internal/models"
)

//
// --- Instagram Webhook Handlers ---
//

// VerifyInstagramWebhook is the handler for GET /api/instagram/webhook.
// Meta calls this once when the subscription is created.
func (h *Handlers) VerifyInstagramWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.Cfg.InstagramVerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
}

// HandleInstagramWebhook is the handler for POST /api/instagram/webhook.
// The signature covers the raw body, so it must be read before any
// JSON decoding.
func (h *Handlers) HandleInstagramWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if !instagram.VerifySignature(h.Cfg.InstagramAppSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var payload instagram.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if err := h.Instagram.HandleChange(c.Request.Context(), entry.ID, change); err != nil {
				metrics.InstagramComments.WithLabelValues(metrics.OutcomeError).Inc()
				h.Log.Error("instagram change failed",
					"field", change.Field, "entry", entry.ID, "error", err)
				continue
			}
			if change.Field == instagram.FieldLiveComments {
				metrics.InstagramComments.WithLabelValues(metrics.OutcomeOK).Inc()
			}
		}
	}

	// Meta only needs the 200; failures were logged and recorded.
	c.String(http.StatusOK, "EVENT_RECEIVED")
}

//
// --- DM Automation Config Handlers ---
//

type AutomationInput struct {
	PostID    string          `json:"postId"`
	DMRules   []models.DMRule `json:"dmRules" binding:"required,min=1"`
	IsEnabled *bool           `json:"isEnabled"`
}

// CreateAutomation is the handler for POST /v1/instagram/automations.
func (h *Handlers) CreateAutomation(c *gin.Context) {
	userID := c.GetInt64("userID")

	var input AutomationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.PostID == "" {
		input.PostID = "default"
	}
	enabled := input.IsEnabled == nil || *input.IsEnabled

	rulesJSON, err := json.Marshal(input.DMRules)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode rules"})
		return
	}

	res, err := h.DB.ExecContext(c.Request.Context(), `
		INSERT INTO instagram_dm_automations (user_id, post_id, dm_rules, is_enabled)
		VALUES (?, ?, ?, ?)`,
		userID, input.PostID, rulesJSON, enabled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create automation"})
		return
	}
	id, _ := res.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"automation": models.DMAutomation{
			ID: id, UserID: userID, PostID: input.PostID,
			DMRules: input.DMRules, IsEnabled: enabled,
		},
	})
}

// GetMyAutomations is the handler for GET /v1/instagram/automations.
func (h *Handlers) GetMyAutomations(c *gin.Context) {
	userID := c.GetInt64("userID")

	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT id, user_id, post_id, dm_rules, is_enabled, created_at, updated_at
		FROM instagram_dm_automations
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	automations := []models.DMAutomation{}
	for rows.Next() {
		var a models.DMAutomation
		var rulesJSON []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.PostID, &rulesJSON,
			&a.IsEnabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan automation row"})
			return
		}
		if len(rulesJSON) > 0 {
			if err := json.Unmarshal(rulesJSON, &a.DMRules); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode automation rules"})
				return
			}
		}
		automations = append(automations, a)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating automation rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"automations": automations})
}

// UpdateAutomation is the handler for PUT /v1/instagram/automations/:id.
func (h *Handlers) UpdateAutomation(c *gin.Context) {
	userID := c.GetInt64("userID")
	automationID := c.Param("id")

	var input AutomationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.PostID == "" {
		input.PostID = "default"
	}
	enabled := input.IsEnabled == nil || *input.IsEnabled

	rulesJSON, err := json.Marshal(input.DMRules)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode rules"})
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(), `
		UPDATE instagram_dm_automations
		SET post_id = ?, dm_rules = ?, is_enabled = ?
		WHERE id = ? AND user_id = ?`,
		input.PostID, rulesJSON, enabled, automationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update automation"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Automation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Automation updated"})
}

// DeleteAutomation is the handler for DELETE /v1/instagram/automations/:id.
func (h *Handlers) DeleteAutomation(c *gin.Context) {
	userID := c.GetInt64("userID")
	automationID := c.Param("id")

	ctx := c.Request.Context()

	// History rows reference the automation, so they go first.
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE ch FROM instagram_comment_history ch
		JOIN instagram_dm_automations a ON a.id = ch.automation_id
		WHERE a.id = ? AND a.user_id = ?`, automationID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete automation history"})
		return
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM instagram_dm_automations WHERE id = ? AND user_id = ?`,
		automationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete automation"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Automation not found"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Automation deleted"})
}

// GetCommentHistory is the handler for GET /v1/instagram/automations/:id/history.
func (h *Handlers) GetCommentHistory(c *gin.Context) {
	userID := c.GetInt64("userID")
	automationID := c.Param("id")

	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT ch.id, ch.automation_id, ch.comment_id, ch.commenter_username,
		       ch.response_type, ch.response_status, ch.error_message,
		       ch.matched_rules, ch.processed, ch.responded_at, ch.created_at
		FROM instagram_comment_history ch
		JOIN instagram_dm_automations a ON a.id = ch.automation_id
		WHERE a.id = ? AND a.user_id = ?
		ORDER BY ch.created_at DESC
		LIMIT 100`, automationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	history := []models.CommentHistory{}
	for rows.Next() {
		var ch models.CommentHistory
		if err := rows.Scan(&ch.ID, &ch.AutomationID, &ch.CommentID, &ch.CommenterUsername,
			&ch.ResponseType, &ch.ResponseStatus, &ch.ErrorMessage,
			&ch.MatchedRules, &ch.Processed, &ch.RespondedAt, &ch.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan history row"})
			return
		}
		history = append(history, ch)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating history rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}
