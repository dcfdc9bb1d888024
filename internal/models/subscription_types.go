package models

import "time"

// Subscription statuses.
const (
	SubscriptionActive    = "ACTIVE"
	SubscriptionCancelled = "CANCELLED"
	SubscriptionExpired   = "EXPIRED"
)

// UserSubscription defines the model for the 'user_subscriptions' table
type UserSubscription struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	PlanID    int64      `json:"planId" db:"plan_id"`
	Status    string     `json:"status" db:"status"`
	StartDate time.Time  `json:"startDate" db:"start_date"`
	EndDate   *time.Time `json:"endDate,omitempty" db:"end_date"`

	// Populated by handlers for the dashboard view, not stored.
	PlanName string `json:"planName,omitempty" db:"-"`
}
