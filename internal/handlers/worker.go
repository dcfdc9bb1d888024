package handlers

import "context"

// ExpireOverdueSubscriptions flips ACTIVE subscriptions whose end date
// has passed to EXPIRED. Called from the background worker on a timer.
func (h *Handlers) ExpireOverdueSubscriptions(ctx context.Context) {
	res, err := h.DB.ExecContext(ctx, `
		UPDATE user_subscriptions
		SET status = 'EXPIRED'
		WHERE status = 'ACTIVE' AND end_date IS NOT NULL AND end_date < NOW()`)
	if err != nil {
		h.Log.Error("subscription expiry sweep failed", "error", err)
		return
	}

	if expired, _ := res.RowsAffected(); expired > 0 {
		h.Log.Info("expired overdue subscriptions", "count", expired)
	}
}
