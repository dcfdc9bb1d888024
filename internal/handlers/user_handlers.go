package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// --- User Registration ---

// SignupBonusCredits is granted once on account creation.
const SignupBonusCredits = 10

type SignupInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Signup is the handler for POST /v1/signup.
func (h *Handlers) Signup(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// 3. --- Create User + Signup Bonus (one transaction) ---
	tx, err := h.DB.BeginTx(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		email, input.Name, password.Hash)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, _ := res.LastInsertId()

	if _, err := tx.Exec(
		`INSERT INTO user_credits (user_id, balance) VALUES (?, ?)`,
		userID, SignupBonusCredits); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant signup credits"})
		return
	}
	if _, err := tx.Exec(
		`INSERT INTO credit_transactions (user_id, type, amount, description)
		 VALUES (?, ?, ?, 'Signup bonus')`,
		userID, models.CreditTxSignupBonus, SignupBonusCredits); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record signup bonus"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// 4. --- Issue Token ---
	token, err := h.Tokens.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created",
		"token":   token,
		"user":    gin.H{"id": userID, "email": email, "name": input.Name},
	})
}

// --- Login ---

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	var hash sql.NullString
	err := h.DB.QueryRowContext(c.Request.Context(),
		`SELECT id, email, name, password_hash, is_admin FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(input.Email)),
	).Scan(&user.ID, &user.Email, &user.Name, &hash, &user.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	user.PasswordHash = hash.String

	// Webhook-created accounts have no password until one is set.
	if user.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	ok, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// GetMyProfile is the handler for GET /v1/profile/me.
func (h *Handlers) GetMyProfile(c *gin.Context) {
	userID := c.GetInt64("userID")

	var user models.User
	err := h.DB.QueryRowContext(c.Request.Context(),
		`SELECT id, email, name, is_admin, created_at, updated_at FROM users WHERE id = ?`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
