// Package mail delivers one-time passcodes to users. Delivery happens
// over plain SMTP; there is no retry layer, a failed send surfaces to
// the caller as an OTP delivery failure.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/storeit-app/storeit/internal/logging"
)

// Mailer sends a one-time passcode to an email address.
type Mailer interface {
	SendOTP(ctx context.Context, email string, code string) error
}

// smtpSendMail is a seam for testing smtp.SendMail.
var smtpSendMail = smtp.SendMail

// SMTPMailer sends passcodes through an SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer constructs a mailer for the given relay address and
// sender. auth may be nil for unauthenticated relays.
func NewSMTPMailer(addr, from string, auth smtp.Auth) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, email string, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your StoreIt verification code\r\n\r\n"+
		"Your one-time passcode is %s. It expires in 15 minutes.\r\n", m.from, email, code)

	if err := smtpSendMail(m.addr, m.auth, m.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send error: %w", err)
	}
	return nil
}

// LogMailer writes the passcode to the log instead of sending email.
// Development only.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(ctx context.Context, email string, code string) error {
	m.logger.Info(ctx, "email OTP issued", "email", email, "code", code)
	return nil
}
