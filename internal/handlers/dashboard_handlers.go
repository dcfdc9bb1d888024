package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDashboard is the handler for GET /v1/dashboard.
// One round of summary numbers for the dashboard home screen.
func (h *Handlers) GetDashboard(c *gin.Context) {
	userID := c.GetInt64("userID")
	ctx := c.Request.Context()

	var balance int
	err := h.DB.QueryRowContext(ctx,
		`SELECT balance FROM user_credits WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	var planName sql.NullString
	err = h.DB.QueryRowContext(ctx, `
		SELECT p.name
		FROM user_subscriptions us
		JOIN plans p ON p.id = us.plan_id
		WHERE us.user_id = ? AND us.status = 'ACTIVE'
		ORDER BY us.start_date DESC
		LIMIT 1`, userID).Scan(&planName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	var licenseCount, seatCount int
	err = h.DB.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT lk.id),
		       COUNT(sl.id)
		FROM user_license_keys ulk
		JOIN license_keys lk ON lk.id = ulk.license_key_id AND lk.status = 'ACTIVE'
		LEFT JOIN sub_licenses sl ON sl.main_license_key_id = lk.id AND sl.status = 'ACTIVE'
		WHERE ulk.user_id = ?`, userID).Scan(&licenseCount, &seatCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	var unread int
	err = h.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`,
		userID).Scan(&unread)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	var spent30d sql.NullInt64
	err = h.DB.QueryRowContext(ctx, `
		SELECT SUM(-amount)
		FROM credit_transactions
		WHERE user_id = ? AND amount < 0 AND created_at >= NOW() - INTERVAL 30 DAY`,
		userID).Scan(&spent30d)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	plan := "Free"
	if planName.Valid {
		plan = planName.String
	}

	c.JSON(http.StatusOK, gin.H{
		"creditBalance":       balance,
		"plan":                plan,
		"activeLicenses":      licenseCount,
		"activeSeats":         seatCount,
		"unreadNotifications": unread,
		"creditsSpent30d":     spent30d.Int64,
	})
}
