package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/boostlyhq/boostly-golang/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the Bearer token and loads the caller's
// identity into the request context as "userID" and "isAdmin".
func AuthMiddleware(tm *auth.TokenManager, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Extract the token ---
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be Bearer {token}"})
			return
		}

		// 2. --- Validate ---
		userID, err := tm.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Load the account ---
		// The DB check means a deleted account is locked out even if
		// its token has not expired yet.
		var isAdmin bool
		err = db.QueryRow("SELECT is_admin FROM users WHERE id = ?", userID).Scan(&isAdmin)
		if err != nil {
			if err == sql.ErrNoRows {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify account"})
			return
		}

		c.Set("userID", userID)
		c.Set("isAdmin", isAdmin)
		c.Next()
	}
}

// AdminMiddleware gates the admin console. It must run after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, _ := c.Get("isAdmin")
		if admin, ok := isAdmin.(bool); !ok || !admin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
