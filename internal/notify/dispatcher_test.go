package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/boostlyhq/boostly-golang/internal/license"
	"github.com/stretchr/testify/assert"
)

type fakeDiscord struct {
	messages []string
	err      error
}

func (f *fakeDiscord) Send(ctx context.Context, message string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

type fakeEmailer struct {
	sent []license.Email
	err  error
}

func (f *fakeEmailer) Send(email license.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func TestDispatchDeliversEverything(t *testing.T) {
	discord := &fakeDiscord{}
	emailer := &fakeEmailer{}
	d := NewDispatcher(discord, emailer, slog.Default())

	res := &license.Result{
		Event:          "purchase",
		DiscordMessage: "🎉 New purchase!",
		Emails:         []license.Email{{Kind: license.EmailWelcome, Address: "ada@example.com"}},
	}
	d.Dispatch(context.Background(), res)

	assert.Equal(t, []string{"🎉 New purchase!"}, discord.messages)
	assert.Len(t, emailer.sent, 1)
	assert.Empty(t, res.Errors)
}

func TestDispatchFailuresAreSoft(t *testing.T) {
	discord := &fakeDiscord{err: errors.New("discord down")}
	emailer := &fakeEmailer{err: errors.New("smtp down")}
	d := NewDispatcher(discord, emailer, slog.Default())

	res := &license.Result{
		Event:          "deactivate",
		DiscordMessage: "License deactivated",
		Emails:         []license.Email{{Kind: license.EmailGoodbye, Address: "ada@example.com"}},
	}
	d.Dispatch(context.Background(), res)

	assert.Len(t, res.Errors, 2)
}

func TestDispatchSkipsTestAndDuplicateDeliveries(t *testing.T) {
	discord := &fakeDiscord{}
	emailer := &fakeEmailer{}
	d := NewDispatcher(discord, emailer, slog.Default())

	d.Dispatch(context.Background(), &license.Result{
		Test:           true,
		DiscordMessage: "should not send",
		Emails:         []license.Email{{Kind: license.EmailWelcome}},
	})
	d.Dispatch(context.Background(), &license.Result{
		Duplicate:      true,
		DiscordMessage: "should not send either",
	})

	assert.Empty(t, discord.messages)
	assert.Empty(t, emailer.sent)
}
