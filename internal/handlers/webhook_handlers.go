package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boostlyhq/boostly-golang/internal/license"
	"github.com/boostlyhq/boostly-golang/internal/metrics"
	"github.com/boostlyhq/boostly-golang/internal/models"
)

//
// --- Vendor Webhook Handlers ---
//

// HandleAppSumoWebhook is the handler for POST /api/appsumo-license.
// Header and body problems are rejected before any side effect; once a
// delivery is accepted the response is always 200, with soft errors
// reported in the body so the vendor never retries a half-applied event.
func (h *Handlers) HandleAppSumoWebhook(c *gin.Context) {
	// 1. --- Require Headers ---
	timestamp := c.GetHeader("X-AppSumo-Timestamp")
	signature := c.GetHeader("X-AppSumo-Signature")
	if timestamp == "" || signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing webhook headers"})
		return
	}

	// 2. --- Validate Headers ---
	if err := license.ValidateAppSumoHeaders(timestamp, signature, time.Now()); err != nil {
		if errors.Is(err, license.ErrBadTimestamp) || errors.Is(err, license.ErrBadSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 3. --- Bind Body ---
	var payload license.AppSumoPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	// 4. --- Process + Respond ---
	res := h.Engine.ProcessAppSumo(c.Request.Context(), &payload, timestamp)
	h.finishWebhook(c, models.VendorAppSumo, res)
}

// HandleLemonWebhook is the handler for POST /api/lemon-drops.
func (h *Handlers) HandleLemonWebhook(c *gin.Context) {
	var payload license.LemonPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	res := h.Engine.ProcessLemon(c.Request.Context(), &payload)
	h.finishWebhook(c, models.VendorLemonSqueezy, res)
}

// finishWebhook records metrics, dispatches post-commit notifications
// and writes the shared 200 response body.
func (h *Handlers) finishWebhook(c *gin.Context, vendor models.Vendor, res *license.Result) {
	if res.Duplicate {
		metrics.WebhookDuplicates.WithLabelValues(string(vendor)).Inc()
	} else {
		metrics.WebhookEvents.WithLabelValues(
			string(vendor), res.Event, metrics.WebhookOutcome(len(res.Errors))).Inc()
	}

	// Discord and email happen after the transaction committed, so a
	// slow notification can never block the vendor's delivery.
	h.Dispatcher.Dispatch(c.Request.Context(), res)

	body := gin.H{
		"success": true,
		"event":   res.Event,
		"message": res.Message,
	}
	if len(res.Errors) > 0 {
		body["errors"] = res.Errors
	}
	c.JSON(http.StatusOK, body)
}
