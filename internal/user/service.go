package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"receiptz.org/internal/audit"
	"receiptz.org/internal/auth"
	"receiptz.org/internal/country"
	"receiptz.org/internal/ids"
	"receiptz.org/internal/mail"
)

const (
	defaultSingleUseTokenTTL = 24 * time.Hour
	tokenBytes               = 32
)

// Service implements the user workflows: registration, login, password reset,
// account verification and self-service profile updates.
type Service struct {
	store      Store
	codec      *auth.Codec
	mailer     mail.Mailer
	tokenTTL   time.Duration
	resetLink  string
	verifyLink string
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSingleUseTokenTTL overrides the lifetime of reset and verification
// tokens.
func WithSingleUseTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithLinks sets the templates for the links mailed to users. The literal
// ":token" is replaced with the issued token.
func WithLinks(verifyLink, resetLink string) Option {
	return func(s *Service) {
		if verifyLink != "" {
			s.verifyLink = verifyLink
		}
		if resetLink != "" {
			s.resetLink = resetLink
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, codec *auth.Codec, mailer mail.Mailer, opts ...Option) *Service {
	s := &Service{
		store:      store,
		codec:      codec,
		mailer:     mailer,
		tokenTTL:   defaultSingleUseTokenTTL,
		verifyLink: "https://receiptz.example/users/verify?token=:token",
		resetLink:  "https://receiptz.example/users/reset?token=:token",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams carries the caller-supplied fields of a new account. Role
// and OrgID are decided by the caller of Register, never by the request body.
type RegisterParams struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	MobileNumber string
	CountryName  string
	Role         auth.Role
	OrgID        string
	DeviceID     string
	DeviceType   string
}

// Register creates an account and mails the verification link. The account
// is persisted before the email goes out; if the send then fails, the error
// is returned and the caller decides whether to unwind.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*User, error) {
	c, err := country.Validate(p.CountryName)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindByEmail(ctx, p.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if err != ErrNotFound {
		return nil, err
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}
	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &User{
		ID:           ids.New(),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		PasswordHash: hash,
		Role:         p.Role,
		OrgID:        p.OrgID,
		MobileNumber: strings.TrimSpace(p.MobileNumber),
		Country:      c,
		DeviceID:     p.DeviceID,
		DeviceType:   p.DeviceType,
		VerifyToken:  SingleUseToken{Token: token, ExpiresAt: now.Add(s.tokenTTL)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	audit.LogEvent(ctx, "user.registered", map[string]any{"user_id": u.ID, "role": string(u.Role)})

	link := strings.ReplaceAll(s.verifyLink, ":token", token)
	if err := s.mailer.SendRegistration(ctx, u.Email, link, u.VerifyToken.ExpiresAt); err != nil {
		return nil, fmt.Errorf("user: registration email: %w", err)
	}
	return u, nil
}

// Authenticate checks the credentials and issues a signed token. An unknown
// email surfaces as ErrNotFound; a wrong password as ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, time.Time, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	token, expiresAt, err := s.codec.Issue(u.ID, u.OrgID, u.Role)
	if err != nil {
		return "", time.Time{}, err
	}
	audit.LogEvent(ctx, "user.login", map[string]any{"user_id": u.ID})
	return token, expiresAt, nil
}

// RequestPasswordReset issues a fresh reset token and mails the link. A new
// request supersedes any unconsumed token.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(s.tokenTTL)
	if err := s.store.SetSingleUseToken(ctx, u.ID, PurposePasswordReset, SingleUseToken{Token: token, ExpiresAt: expiresAt}); err != nil {
		return err
	}
	audit.LogEvent(ctx, "user.password_reset_requested", map[string]any{"user_id": u.ID})

	link := strings.ReplaceAll(s.resetLink, ":token", token)
	return s.mailer.SendPasswordReset(ctx, u.Email, link, expiresAt)
}

// CompletePasswordReset consumes the reset token and stores the new password.
// The token is gone after the first success; replays fail ErrTokenInvalid.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	id, err := s.store.ConsumeSingleUseToken(ctx, token, PurposePasswordReset, s.now().UTC())
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	audit.LogEvent(ctx, "user.password_reset_completed", map[string]any{"user_id": id})
	return nil
}

// VerifyAccount consumes the verification token; consumption itself marks the
// account verified.
func (s *Service) VerifyAccount(ctx context.Context, token string) error {
	id, err := s.store.ConsumeSingleUseToken(ctx, token, PurposeAccountVerification, s.now().UTC())
	if err != nil {
		return err
	}
	audit.LogEvent(ctx, "user.verified", map[string]any{"user_id": id})
	return nil
}

// UpdatePassword changes the caller's password after checking the current
// one.
func (s *Service) UpdatePassword(ctx context.Context, ac auth.Context, current, next string) error {
	u, err := s.self(ctx, ac)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, u.ID, hash)
}

// UpdateProfile changes the caller's name.
func (s *Service) UpdateProfile(ctx context.Context, ac auth.Context, firstName, lastName string) (*User, error) {
	u, err := s.self(ctx, ac)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateProfile(ctx, u.ID, strings.TrimSpace(firstName), strings.TrimSpace(lastName)); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, u.ID)
}

// UpdateDevice rebinds the caller's push device.
func (s *Service) UpdateDevice(ctx context.Context, ac auth.Context, deviceID, deviceType string) error {
	u, err := s.self(ctx, ac)
	if err != nil {
		return err
	}
	return s.store.UpdateDevice(ctx, u.ID, deviceID, deviceType)
}

// Me returns the caller's own record.
func (s *Service) Me(ctx context.Context, ac auth.Context) (*User, error) {
	return s.self(ctx, ac)
}

// self loads the authenticated caller's record. Absence is not a client
// error: the credentials were already validated, so a missing row means the
// system state is broken.
func (s *Service) self(ctx context.Context, ac auth.Context) (*User, error) {
	u, err := s.store.FindByID(ctx, ac.UserID)
	if err == ErrNotFound {
		return nil, ErrRecordGone
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByMobileNumber resolves the user a receipt should be bound to.
func (s *Service) FindByMobileNumber(ctx context.Context, number string) (*User, error) {
	return s.store.FindByMobileNumber(ctx, number)
}

// FindByID resolves a user record by id.
func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	return s.store.FindByID(ctx, id)
}

func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("user: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
