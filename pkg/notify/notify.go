// Package notify delivers out-of-band messages to users, primarily the
// emailed two-factor codes and password reset links.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/verdanthq/gatehouse/pkg/slogx"
)

// Sender delivers a message to a recipient address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends plain-text mail through an SMTP relay with a bounded
// dial timeout.
type SMTPSender struct {
	Addr        string // host:port
	From        string
	Username    string
	Password    string
	DialTimeout time.Duration
}

// NewSMTPSender builds an SMTPSender with a 10 second dial timeout.
func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	return &SMTPSender{
		Addr:        addr,
		From:        from,
		Username:    username,
		Password:    password,
		DialTimeout: 10 * time.Second,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	dialer := net.Dialer{Timeout: s.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", s.Addr, err)
	}

	host, _, err := net.SplitHostPort(s.Addr)
	if err != nil {
		host = s.Addr
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	if s.Username != "" {
		auth := smtp.PlainAuth("", s.Username, s.Password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, to, subject, body)
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}

// LogSender writes messages to the structured log instead of delivering
// them. Used in development when no relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	slogx.FromContext(ctx).Info("notification (log sender)",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
