package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/counseldesk/apiserver/config"
	"github.com/wneessen/go-mail"
)

// ErrDelivery is returned when the mail provider rejects or fails a send.
var ErrDelivery = errors.New("email delivery failed")

// Mailer sends the templated approval-decision emails.
type Mailer interface {
	SendApproval(ctx context.Context, to, name string) error
	SendDenial(ctx context.Context, to, name string) error
}

// SMTPMailer sends decision emails over SMTP.
type SMTPMailer struct {
	cfg         config.SMTPConfig
	siteBaseURL string
}

// NewSMTPMailer constructs an SMTPMailer from config.
func NewSMTPMailer(cfg config.SMTPConfig, siteBaseURL string) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, siteBaseURL: siteBaseURL}
}

// SendApproval sends the approval template to the registrant.
func (m *SMTPMailer) SendApproval(ctx context.Context, to, name string) error {
	subject := "Your counseling-center account has been approved"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour registration has been approved. You can now sign in at %s.\n\nCounseling Center",
		name, m.siteBaseURL,
	)
	return m.send(ctx, to, subject, body)
}

// SendDenial sends the denial template to the registrant.
func (m *SMTPMailer) SendDenial(ctx context.Context, to, name string) error {
	subject := "Your counseling-center registration was not approved"
	body := fmt.Sprintf(
		"Hi %s,\n\nWe are sorry, but your registration was not approved. "+
			"If you believe this is a mistake, contact the center at %s.\n\nCounseling Center",
		name, m.siteBaseURL,
	)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	if m.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
