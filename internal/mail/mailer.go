// Package mail renders and delivers the transactional emails sent by the
// registration and password-reset workflows.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"receiptz.org/internal/obs"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Template names, which double as the metric label.
const (
	TemplateRegistration  = "registration"
	TemplatePasswordReset = "password_reset"
)

// Mailer delivers workflow emails. Implementations must be safe for
// concurrent use; workflows hold no retry logic, a failed send is final.
type Mailer interface {
	// SendRegistration mails the account-verification link to a new user.
	SendRegistration(ctx context.Context, to, link string, expiresAt time.Time) error
	// SendPasswordReset mails the password-reset link.
	SendPasswordReset(ctx context.Context, to, link string, expiresAt time.Time) error
}

type linkContext struct {
	Link      string
	ExpiresAt string
}

func render(name, link string, expiresAt time.Time) (string, error) {
	var buf bytes.Buffer
	data := linkContext{
		Link:      link,
		ExpiresAt: expiresAt.UTC().Format(time.RFC1123),
	}
	if err := templates.ExecuteTemplate(&buf, name+".html.tmpl", data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", name, err)
	}
	return buf.String(), nil
}

// LogMailer writes rendered emails to the structured log instead of a wire.
// Used in development and anywhere SMTP is not configured.
type LogMailer struct{}

func (LogMailer) SendRegistration(ctx context.Context, to, link string, expiresAt time.Time) error {
	return logSend(TemplateRegistration, to, link, expiresAt)
}

func (LogMailer) SendPasswordReset(ctx context.Context, to, link string, expiresAt time.Time) error {
	return logSend(TemplatePasswordReset, to, link, expiresAt)
}

func logSend(name, to, link string, expiresAt time.Time) error {
	if _, err := render(name, link, expiresAt); err != nil {
		obs.EmailsFailed.WithLabelValues(name).Inc()
		return err
	}
	obs.LogLine("info", "email suppressed (no SMTP configured)", map[string]any{
		"template": name,
		"to":       to,
		"link":     link,
	})
	obs.EmailsSent.WithLabelValues(name).Inc()
	return nil
}
