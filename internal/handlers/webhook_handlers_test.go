package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boostlyhq/boostly-golang/internal/license"
	"github.com/boostlyhq/boostly-golang/internal/models"
	"github.com/boostlyhq/boostly-golang/internal/notify"
)

func newWebhookTestHandlers(t *testing.T) (*Handlers, *license.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := license.NewMemoryStore()
	engine := license.NewEngine(store, func(tier int) string {
		return fmt.Sprintf("boostly_tier%d", tier)
	}, slog.Default())

	// Disabled notification clients so tests never do network I/O.
	dispatcher := notify.NewDispatcher(
		notify.NewDiscordClient(""),
		notify.NewEmailSender("", 0, "", "", ""),
		slog.Default(),
	)

	return &Handlers{
		Log:        slog.Default(),
		Engine:     engine,
		Dispatcher: dispatcher,
	}, store
}

func postAppSumo(h *Handlers, body []byte, timestamp, signature string) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/api/appsumo-license", h.HandleAppSumoWebhook)

	req := httptest.NewRequest(http.MethodPost, "/api/appsumo-license", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if timestamp != "" {
		req.Header.Set("X-AppSumo-Timestamp", timestamp)
	}
	if signature != "" {
		req.Header.Set("X-AppSumo-Signature", signature)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func nowMillis() string {
	return fmt.Sprintf("%d", time.Now().UnixMilli())
}

func TestAppSumoWebhookMissingHeaders(t *testing.T) {
	h, _ := newWebhookTestHandlers(t)

	w := postAppSumo(h, []byte(`{"event":"purchase"}`), "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postAppSumo(h, []byte(`{"event":"purchase"}`), nowMillis(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppSumoWebhookStaleTimestamp(t *testing.T) {
	h, _ := newWebhookTestHandlers(t)

	stale := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).UnixMilli())
	w := postAppSumo(h, []byte(`{"event":"purchase"}`), stale, "sig")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppSumoWebhookMalformedJSON(t *testing.T) {
	h, _ := newWebhookTestHandlers(t)

	w := postAppSumo(h, []byte(`{"event":`), nowMillis(), "sig")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppSumoWebhookPurchase(t *testing.T) {
	h, store := newWebhookTestHandlers(t)

	body, _ := json.Marshal(map[string]any{
		"event":       "purchase",
		"license_key": "AS-KEY-1",
		"tier":        2,
	})
	w := postAppSumo(h, body, nowMillis(), "sig")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool     `json:"success"`
		Event   string   `json:"event"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "purchase", resp.Event)
	assert.Empty(t, resp.Errors)

	lk := store.Licenses["AS-KEY-1"]
	require.NotNil(t, lk)
	assert.Equal(t, models.LicenseActive, lk.Status)
	assert.Equal(t, 2, lk.Tier)
}

func TestAppSumoWebhookUnknownEventStill200(t *testing.T) {
	h, _ := newWebhookTestHandlers(t)

	body := []byte(`{"event":"mystery","license_key":"AS-KEY-2"}`)
	w := postAppSumo(h, body, nowMillis(), "sig")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unhandled event type")
}

func TestAppSumoWebhookReplayIsDuplicate(t *testing.T) {
	h, store := newWebhookTestHandlers(t)

	ts := nowMillis()
	body, _ := json.Marshal(map[string]any{
		"event":       "purchase",
		"license_key": "AS-KEY-3",
		"tier":        1,
	})
	w := postAppSumo(h, body, ts, "sig")
	require.Equal(t, http.StatusOK, w.Code)

	w = postAppSumo(h, body, ts, "sig")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already processed")
	assert.Len(t, store.Licenses, 1)
}

func TestLemonWebhookMalformedJSON(t *testing.T) {
	h, _ := newWebhookTestHandlers(t)

	router := gin.New()
	router.POST("/api/lemon-drops", h.HandleLemonWebhook)

	req := httptest.NewRequest(http.MethodPost, "/api/lemon-drops", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLemonWebhookLicenseCreated(t *testing.T) {
	h, store := newWebhookTestHandlers(t)

	router := gin.New()
	router.POST("/api/lemon-drops", h.HandleLemonWebhook)

	body, _ := json.Marshal(map[string]any{
		"meta": map[string]any{"event_name": "license_key_created"},
		"data": map[string]any{
			"id": "ls-777",
			"attributes": map[string]any{
				"key":        "LS-KEY-1",
				"status":     "active",
				"product_id": 363062,
				"user_name":  "Ada",
				"user_email": "ada@example.com",
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/lemon-drops", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	lk := store.Licenses["LS-KEY-1"]
	require.NotNil(t, lk)
	assert.Equal(t, models.VendorLemonSqueezy, lk.Vendor)
	assert.Equal(t, 2, lk.Tier)
}
