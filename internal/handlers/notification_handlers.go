package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

//
// --- Notification Handlers ---
//

// GetMyNotifications is the handler for GET /v1/notifications.
// It retrieves notifications for the logged-in user, unread first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID := c.GetInt64("userID")

	// Limit to 50 to avoid performance issues
	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT id, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var notif models.Notification
		if err := rows.Scan(&notif.ID, &notif.UserID, &notif.Message,
			&notif.IsRead, &notif.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification row"})
			return
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating notification rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read.
// The update is scoped to the logged-in user so nobody can mark another
// user's notifications.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID := c.GetInt64("userID")
	notificationID := c.Param("id")

	result, err := h.DB.ExecContext(c.Request.Context(),
		`UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`,
		notificationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
