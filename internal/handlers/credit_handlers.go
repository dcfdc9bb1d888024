package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// GetMyCredits is the handler for GET /v1/credits.
// Returns the current balance and the most recent ledger entries.
func (h *Handlers) GetMyCredits(c *gin.Context) {
	userID := c.GetInt64("userID")
	ctx := c.Request.Context()

	var balance int
	err := h.DB.QueryRowContext(ctx,
		`SELECT balance FROM user_credits WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	rows, err := h.DB.QueryContext(ctx, `
		SELECT id, user_id, type, amount, description, created_at
		FROM credit_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT 100`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	transactions := []models.CreditTransaction{}
	for rows.Next() {
		var tx models.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount,
			&tx.Description, &tx.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan transaction row"})
			return
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating transaction rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":      balance,
		"transactions": transactions,
	})
}
