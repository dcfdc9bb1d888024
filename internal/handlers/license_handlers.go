package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/boostlyhq/boostly-golang/internal/license"
	"github.com/boostlyhq/boostly-golang/internal/models"
)

//
// --- License & Seat Handlers ---
//

// GetMyLicenses is the handler for GET /v1/licenses.
// Returns the caller's licenses with their sub-licenses attached.
func (h *Handlers) GetMyLicenses(c *gin.Context) {
	userID := c.GetInt64("userID")
	ctx := c.Request.Context()

	rows, err := h.DB.QueryContext(ctx, `
		SELECT lk.id, lk.license_key, lk.vendor, lk.status, lk.tier, lk.plan_id,
		       lk.activated_at, lk.created_at
		FROM license_keys lk
		JOIN user_license_keys ulk ON ulk.license_key_id = lk.id
		WHERE ulk.user_id = ?
		ORDER BY lk.created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	type licenseView struct {
		models.LicenseKey
		SubLicenses []models.SubLicense `json:"subLicenses"`
	}

	var licenses []*licenseView
	for rows.Next() {
		var lv licenseView
		if err := rows.Scan(&lv.ID, &lv.Key, &lv.Vendor, &lv.Status, &lv.Tier,
			&lv.PlanID, &lv.ActivatedAt, &lv.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan license row"})
			return
		}
		lv.SubLicenses = []models.SubLicense{}
		licenses = append(licenses, &lv)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating license rows"})
		return
	}

	for _, lv := range licenses {
		subRows, err := h.DB.QueryContext(ctx, `
			SELECT id, sub_key, main_license_key_id, status, assigned_email, created_at
			FROM sub_licenses WHERE main_license_key_id = ? ORDER BY id`, lv.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
			return
		}
		for subRows.Next() {
			var sl models.SubLicense
			if err := subRows.Scan(&sl.ID, &sl.Key, &sl.MainLicenseKeyID, &sl.Status,
				&sl.AssignedEmail, &sl.CreatedAt); err != nil {
				subRows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan sub-license row"})
				return
			}
			lv.SubLicenses = append(lv.SubLicenses, sl)
		}
		if err := subRows.Err(); err != nil {
			subRows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating sub-license rows"})
			return
		}
		subRows.Close()
	}

	c.JSON(http.StatusOK, gin.H{"licenses": licenses})
}

// --- Redeem ---

type RedeemLicenseInput struct {
	LicenseKey string `json:"licenseKey" binding:"required"`
}

// RedeemLicense is the handler for POST /v1/licenses/redeem.
// Attaches an unclaimed active key to the caller's account, activates
// the matching plan and grants the tier's credits.
func (h *Handlers) RedeemLicense(c *gin.Context) {
	userID := c.GetInt64("userID")

	var input RedeemLicenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	key := strings.TrimSpace(input.LicenseKey)

	ctx := c.Request.Context()
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	var lk models.LicenseKey
	err = tx.QueryRowContext(ctx, `
		SELECT id, license_key, vendor, status, tier, plan_id
		FROM license_keys WHERE license_key = ? FOR UPDATE`, key,
	).Scan(&lk.ID, &lk.Key, &lk.Vendor, &lk.Status, &lk.Tier, &lk.PlanID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "License key not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	if lk.Status != models.LicenseActive {
		c.JSON(http.StatusConflict, gin.H{"error": "License key is no longer active"})
		return
	}

	var claimedBy int64
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM user_license_keys WHERE license_key_id = ?`, lk.ID,
	).Scan(&claimedBy)
	if err == nil {
		if claimedBy == userID {
			c.JSON(http.StatusConflict, gin.H{"error": "You have already redeemed this license"})
		} else {
			c.JSON(http.StatusConflict, gin.H{"error": "License key is already claimed"})
		}
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_license_keys (user_id, license_key_id) VALUES (?, ?)`,
		userID, lk.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach license"})
		return
	}

	// Plan row is keyed by (vendor, product_id); LAST_INSERT_ID keeps
	// the id stable on re-redeem of the same plan.
	planName := fmt.Sprintf("Tier %d Lifetime", lk.Tier)
	planRes, err := tx.ExecContext(ctx, `
		INSERT INTO plans (vendor, product_id, name, max_users)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), name = VALUES(name), max_users = VALUES(max_users)`,
		lk.Vendor, lk.PlanID, planName, license.MaxUsersForTier(lk.Tier))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate plan"})
		return
	}
	planID, _ := planRes.LastInsertId()

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_subscriptions SET status = 'CANCELLED', end_date = NOW()
		WHERE user_id = ? AND status = 'ACTIVE'`, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
		return
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_subscriptions (user_id, plan_id, status) VALUES (?, ?, 'ACTIVE')`,
		userID, planID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}

	credits := license.CreditsForTier(lk.Tier)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, balance) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE balance = balance + VALUES(balance)`,
		userID, credits); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant credits"})
		return
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, type, amount, description)
		VALUES (?, ?, ?, ?)`,
		userID, models.CreditTxPlanCreditsAdjusted, credits,
		fmt.Sprintf("License redeemed (tier %d): %d credits added", lk.Tier, credits)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record credits"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "License redeemed",
		"tier":    lk.Tier,
		"credits": credits,
	})
}

// --- Seats ---

type AssignSeatInput struct {
	Email string `json:"email" binding:"required,email"`
}

// AssignSeat is the handler for POST /v1/licenses/:key/sublicenses/assign.
// Owner-only: assigns the first unassigned active seat to an email.
func (h *Handlers) AssignSeat(c *gin.Context) {
	userID := c.GetInt64("userID")
	key := c.Param("key")

	var input AssignSeatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	ctx := c.Request.Context()
	licenseID, ok := h.requireLicenseOwner(c, userID, key)
	if !ok {
		return
	}

	res, err := h.DB.ExecContext(ctx, `
		UPDATE sub_licenses
		SET assigned_email = ?
		WHERE main_license_key_id = ? AND status = 'ACTIVE' AND assigned_email IS NULL
		ORDER BY id LIMIT 1`, email, licenseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign seat"})
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "No unassigned seats available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Seat assigned", "email": email})
}

type RevokeSeatInput struct {
	Email string `json:"email" binding:"required,email"`
}

// RevokeSeat is the handler for POST /v1/licenses/:key/sublicenses/revoke.
func (h *Handlers) RevokeSeat(c *gin.Context) {
	userID := c.GetInt64("userID")
	key := c.Param("key")

	var input RevokeSeatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	licenseID, ok := h.requireLicenseOwner(c, userID, key)
	if !ok {
		return
	}

	res, err := h.DB.ExecContext(c.Request.Context(), `
		UPDATE sub_licenses
		SET assigned_email = NULL
		WHERE main_license_key_id = ? AND assigned_email = ?`, licenseID, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke seat"})
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No seat assigned to this email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Seat revoked", "email": email})
}

// requireLicenseOwner resolves key to a license owned by userID. On
// failure it writes the error response and returns ok=false.
func (h *Handlers) requireLicenseOwner(c *gin.Context, userID int64, key string) (int64, bool) {
	var licenseID, ownerID int64
	err := h.DB.QueryRowContext(c.Request.Context(), `
		SELECT lk.id, ulk.user_id
		FROM license_keys lk
		JOIN user_license_keys ulk ON ulk.license_key_id = lk.id
		WHERE lk.license_key = ?`, key,
	).Scan(&licenseID, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "License key not found"})
		return 0, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return 0, false
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this license"})
		return 0, false
	}
	return licenseID, true
}
