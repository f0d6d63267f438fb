package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"receiptz.org/internal/obs"
)

// SMTPConfig carries the connection settings for the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers rendered templates over a plain SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer validates the relay configuration up front so a missing host
// fails at startup rather than on the first registration.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("mail: SMTP host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mail: From address is required")
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}, nil
}

func (m *SMTPMailer) SendRegistration(ctx context.Context, to, link string, expiresAt time.Time) error {
	return m.deliver(ctx, TemplateRegistration, "Welcome to ReceiptZ", to, link, expiresAt)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string, expiresAt time.Time) error {
	return m.deliver(ctx, TemplatePasswordReset, "Reset your password", to, link, expiresAt)
}

func (m *SMTPMailer) deliver(ctx context.Context, name, subject, to, link string, expiresAt time.Time) error {
	body, err := render(name, link, expiresAt)
	if err != nil {
		obs.EmailsFailed.WithLabelValues(name).Inc()
		return err
	}

	msg := buildMessage(m.cfg.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() { done <- m.send(addr, auth, m.cfg.From, []string{to}, msg) }()
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		obs.EmailsFailed.WithLabelValues(name).Inc()
		return fmt.Errorf("mail: send %s to %s: %w", name, to, err)
	}
	obs.EmailsSent.WithLabelValues(name).Inc()
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
