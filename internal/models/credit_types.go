package models

import "time"

// Credit transaction types mirror what the dashboard groups on.
const (
	CreditTxSignupBonus         = "SIGNUP_BONUS"
	CreditTxPurchased           = "PURCHASED"
	CreditTxSpent               = "SPENT"
	CreditTxPlanCreditsAdjusted = "PLAN_CREDITS_ADJUSTED"
	CreditTxRefundDeducted      = "REFUND_DEDUCTED"
)

// UserCredit is the current credit balance for a user. The balance is
// denormalized; credit_transactions is the source of truth for history.
type UserCredit struct {
	UserID    int64     `json:"userId" db:"user_id"`
	Balance   int       `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CreditTransaction is one ledger entry. Amount is positive for grants
// and negative for spend or deductions.
type CreditTransaction struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Type        string    `json:"type" db:"type"`
	Amount      int       `json:"amount" db:"amount"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
