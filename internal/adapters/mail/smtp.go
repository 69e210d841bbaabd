package mail

import (
	"context"
	"fmt"
	"net/url"

	"attendtrack/internal/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender is the subset of the go-mail client used for delivery
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer delivers password reset links over SMTP
type SMTPMailer struct {
	sender       Sender
	from         string
	resetURLBase string
}

// NewSMTPMailer creates a mailer from SMTP settings
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return NewSMTPMailerWithSender(client, cfg.From, cfg.ResetURLBase), nil
}

// NewSMTPMailerWithSender allows injecting a test sender
func NewSMTPMailerWithSender(sender Sender, from, resetURLBase string) *SMTPMailer {
	return &SMTPMailer{
		sender:       sender,
		from:         from,
		resetURLBase: resetURLBase,
	}
}

// Enabled reports whether the mailer can deliver
func (m *SMTPMailer) Enabled() bool {
	return true
}

// SendPasswordReset sends the raw reset token as a link
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Password reset request")
	msg.SetBodyString(gomail.TypeTextPlain, ResetBody(name, m.ResetLink(token)))

	return m.sender.DialAndSendWithContext(ctx, msg)
}

// ResetLink builds the frontend reset URL carrying the token
func (m *SMTPMailer) ResetLink(token string) string {
	return m.resetURLBase + "?token=" + url.QueryEscape(token)
}

// ResetBody renders the plain text reset mail
func ResetBody(name, link string) string {
	return fmt.Sprintf(`Hello %s,

We received a request to reset the password of your attendance account.
Open the link below within one hour to choose a new password:

%s

If you did not request a reset you can ignore this message.
`, name, link)
}

// DisabledMailer is used when SMTP is not configured
type DisabledMailer struct{}

// Enabled always reports false
func (DisabledMailer) Enabled() bool {
	return false
}

// SendPasswordReset always fails
func (DisabledMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return fmt.Errorf("mail delivery is not configured")
}
