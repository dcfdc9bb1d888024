package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/boostlyhq/boostly-golang/internal/license"
)

// EmailSender sends the transactional emails the license flows queue.
// Plain text only; the marketing site owns anything prettier.
type EmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewEmailSender(host string, port int, username, password, from string) *EmailSender {
	return &EmailSender{host: host, port: port, username: username, password: password, from: from}
}

// Enabled reports whether SMTP is configured.
func (e *EmailSender) Enabled() bool {
	return e.host != ""
}

// Send renders and sends one queued email.
func (e *EmailSender) Send(email license.Email) error {
	if !e.Enabled() {
		return nil
	}

	subject, body := renderEmail(email)

	msg := strings.Join([]string{
		"From: " + e.from,
		"To: " + email.Address,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)
	if err := smtp.SendMail(addr, auth, e.from, []string{email.Address}, []byte(msg)); err != nil {
		return fmt.Errorf("send %s email to %s: %w", email.Kind, email.Address, err)
	}
	return nil
}

func renderEmail(email license.Email) (subject, body string) {
	name := email.Name
	if name == "" {
		name = "there"
	}

	switch email.Kind {
	case license.EmailWelcome:
		subject = "Welcome to Boostly 🎉"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour Boostly license is active. Install the extension, sign in with this email address, and your credits are ready to use.\n\nHappy posting!\nThe Boostly Team",
			name)
	case license.EmailPlanChange:
		subject = "Your Boostly plan has changed"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour plan moved from tier %d to tier %d. Your credit balance has been adjusted to match the new plan.\n\nThe Boostly Team",
			name, email.FromTier, email.ToTier)
	case license.EmailPlanUpdate:
		subject = "Your Boostly plan was updated"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour subscription details were updated. No action needed; this is just a heads-up.\n\nThe Boostly Team",
			name)
	case license.EmailGoodbye:
		subject = "Sorry to see you go"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour Boostly license has been deactivated. If this wasn't you, or you change your mind, just reply to this email.\n\nThe Boostly Team",
			name)
	default:
		subject = "Boostly account update"
		body = fmt.Sprintf("Hi %s,\n\nThere's been an update to your Boostly account.\n\nThe Boostly Team", name)
	}
	return subject, body
}
