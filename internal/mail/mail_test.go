package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRegistrationTemplate(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	body, err := render(TemplateRegistration, "https://receiptz.example/verify?token=abc", expiry)
	require.NoError(t, err)
	assert.Contains(t, body, "https://receiptz.example/verify?token=abc")
	assert.Contains(t, body, "Welcome to ReceiptZ")
	assert.Contains(t, body, expiry.Format(time.RFC1123))
}

func TestRenderPasswordResetTemplate(t *testing.T) {
	body, err := render(TemplatePasswordReset, "https://receiptz.example/reset?token=xyz", time.Now())
	require.NoError(t, err)
	assert.Contains(t, body, "https://receiptz.example/reset?token=xyz")
	assert.Contains(t, body, "Reset your password")
}

func TestRenderEscapesLink(t *testing.T) {
	body, err := render(TemplateRegistration, `https://x/verify?token=a"><script>`, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "noreply@receiptz.example"})
	assert.Error(t, err)

	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "noreply@receiptz.example"})
	require.NoError(t, err)
	assert.Equal(t, 587, m.cfg.Port)
}

func TestSMTPMailerDeliver(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     2525,
		Username: "mailer",
		Password: "pw",
		From:     "noreply@receiptz.example",
	})
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err = m.SendRegistration(context.Background(), "jane@example.com", "https://x/verify?token=t1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "noreply@receiptz.example", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Welcome to ReceiptZ")
	assert.Contains(t, string(gotMsg), "token=t1")
}

func TestSMTPMailerSurfacesSendFailure(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "noreply@receiptz.example"})
	require.NoError(t, err)

	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay down")
	}
	err = m.SendPasswordReset(context.Background(), "jane@example.com", "https://x/reset?token=t2", time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
}

func TestLogMailerNeverFails(t *testing.T) {
	var m Mailer = LogMailer{}
	assert.NoError(t, m.SendRegistration(context.Background(), "a@b.com", "https://x/verify?token=a", time.Now()))
	assert.NoError(t, m.SendPasswordReset(context.Background(), "a@b.com", "https://x/reset?token=b", time.Now()))
}
