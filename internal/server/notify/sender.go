// Package notify delivers account emails. Delivery is best-effort: the
// Dispatcher queues messages and logs failures instead of returning them.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Sender is the account email contract used by the auth service.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendPasswordResetEmail(ctx context.Context, to, name, code string) error
	SendWelcomeEmail(ctx context.Context, to, name string) error
	SendAccountBlockedEmail(ctx context.Context, to, name string, until time.Time) error
}

// Mailer transmits a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailSender renders account emails and hands them to a Mailer.
type EmailSender struct {
	mailer Mailer
}

// NewEmailSender returns an EmailSender over m.
func NewEmailSender(m Mailer) *EmailSender {
	return &EmailSender{mailer: m}
}

func (s *EmailSender) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	body := fmt.Sprintf("Hello %s,\n\nConfirm your email address with this verification token:\n\n%s\n", name, token)
	return s.mailer.Send(ctx, to, "Verify your email", body)
}

func (s *EmailSender) SendPasswordResetEmail(ctx context.Context, to, name, code string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour password recovery code is %s. It expires in 60 minutes.\n"+
		"If you did not ask for it, ignore this message.\n", name, code)
	return s.mailer.Send(ctx, to, "Password recovery", body)
}

func (s *EmailSender) SendWelcomeEmail(ctx context.Context, to, name string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour account is now active.\n", name)
	return s.mailer.Send(ctx, to, "Welcome", body)
}

func (s *EmailSender) SendAccountBlockedEmail(ctx context.Context, to, name string, until time.Time) error {
	body := fmt.Sprintf("Hello %s,\n\nYour account was locked after repeated failed sign-in attempts.\n"+
		"You can try again after %s.\n", name, until.UTC().Format(time.RFC1123))
	return s.mailer.Send(ctx, to, "Account locked", body)
}
