package notify

import (
	"context"
	"log/slog"

	"github.com/boostlyhq/boostly-golang/internal/license"
	"github.com/hashicorp/go-multierror"
)

// Discord is what the dispatcher needs from a Discord client.
type Discord interface {
	Send(ctx context.Context, message string) error
}

// Emailer is what the dispatcher needs from an email sender.
type Emailer interface {
	Send(email license.Email) error
}

// Dispatcher delivers the notifications a webhook Result describes.
// Delivery is strictly best-effort: failures are logged and folded
// into the result's soft error list, and the webhook still returns 200.
type Dispatcher struct {
	discord Discord
	email   Emailer
	log     *slog.Logger
}

func NewDispatcher(discord Discord, email Emailer, log *slog.Logger) *Dispatcher {
	return &Dispatcher{discord: discord, email: email, log: log}
}

// Dispatch sends the Discord message and emails attached to res and
// appends any delivery failures to res.Errors. Test deliveries skip
// outbound traffic entirely.
func (d *Dispatcher) Dispatch(ctx context.Context, res *license.Result) {
	if res.Test || res.Duplicate {
		return
	}

	var soft *multierror.Error

	if res.DiscordMessage != "" {
		if err := d.discord.Send(ctx, res.DiscordMessage); err != nil {
			d.log.Warn("discord notification failed", "event", res.Event, "error", err)
			soft = multierror.Append(soft, err)
		}
	}

	for _, email := range res.Emails {
		if err := d.email.Send(email); err != nil {
			d.log.Warn("email notification failed", "kind", email.Kind, "error", err)
			soft = multierror.Append(soft, err)
		}
	}

	if soft != nil {
		for _, err := range soft.Errors {
			res.Errors = append(res.Errors, err.Error())
		}
	}
}
