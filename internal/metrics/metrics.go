package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook and tool counters exposed on /metrics.
var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boostly_webhook_events_total",
		Help: "Vendor webhook deliveries processed, by vendor, event and outcome.",
	}, []string{"vendor", "event", "outcome"})

	WebhookDuplicates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boostly_webhook_duplicates_total",
		Help: "Vendor webhook deliveries skipped as replays, by vendor.",
	}, []string{"vendor"})

	ToolGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boostly_tool_generations_total",
		Help: "Mini tool runs, by tool and outcome.",
	}, []string{"tool", "outcome"})

	InstagramComments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boostly_instagram_comments_total",
		Help: "Instagram live comments processed, by outcome.",
	}, []string{"outcome"})
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// WebhookOutcome labels a processed delivery by its soft error state.
func WebhookOutcome(softErrors int) string {
	if softErrors > 0 {
		return OutcomeError
	}
	return OutcomeOK
}
