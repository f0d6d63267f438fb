package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestDispatcher(t *testing.T, opts ...CodecOption) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(Options{
		Secret: "test-secret",
		Keys: map[string]Context{
			"svc-key-1": {UserID: "svc-1", OrgID: "org-svc", Role: RoleStaff},
		},
		CodecOptions: opts,
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d
}

func authRequest(header string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/receipts", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestDispatcherRequiresSecret(t *testing.T) {
	if _, err := NewDispatcher(Options{}); err == nil {
		t.Fatal("expected configuration error for missing secret")
	}
}

func TestDispatcherRejectsUnknownStrategyAtBuildTime(t *testing.T) {
	d := newTestDispatcher(t)
	if _, err := d.Build("oauth"); err == nil {
		t.Fatal("expected unsupported-strategy error")
	}
	if _, err := d.Build(""); err == nil {
		t.Fatal("expected unsupported-strategy error for empty name")
	}
}

func TestTokenStrategyMissingHeader(t *testing.T) {
	d := newTestDispatcher(t)
	strategy, err := d.Build(StrategyToken)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := strategy.Authenticate(authRequest("")); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestTokenStrategyMalformedHeader(t *testing.T) {
	d := newTestDispatcher(t)
	strategy, err := d.Build(StrategyToken)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	token, _, err := d.Codec().Issue("user-1", "", RoleIndividual)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	headers := []string{
		token,                     // bare token, no scheme
		"Basic " + token,          // wrong scheme
		"bearer " + token,         // scheme is case-sensitive
		"Bearer",                  // no token field
		"Bearer " + token + " x",  // three fields
		"Bearer  " + token,        // double space yields empty field
		"Bearer not-a-real-token", // fails decode
		"Bearer " + token[:20],    // truncated
	}
	for _, h := range headers {
		if _, err := strategy.Authenticate(authRequest(h)); !errors.Is(err, ErrMalformedCredentials) {
			t.Fatalf("header %q: expected ErrMalformedCredentials, got %v", h, err)
		}
	}
}

func TestTokenStrategyExpiredToken(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	stale := newTestDispatcher(t, WithClock(func() time.Time { return past }))
	token, _, err := stale.Codec().Issue("user-1", "org-1", RoleStaff)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	d := newTestDispatcher(t)
	strategy, err := d.Build(StrategyToken)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := strategy.Authenticate(authRequest("Bearer " + token)); !errors.Is(err, ErrExpiredCredentials) {
		t.Fatalf("expected ErrExpiredCredentials, got %v", err)
	}
}

func TestTokenStrategyAcceptsValidToken(t *testing.T) {
	d := newTestDispatcher(t)
	strategy, err := d.Build(StrategyToken)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	token, _, err := d.Codec().Issue("user-9", "org-9", RoleStaff)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ac, err := strategy.Authenticate(authRequest("Bearer " + token))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ac.UserID != "user-9" || ac.OrgID != "org-9" || !ac.IsStaff() {
		t.Fatalf("unexpected context: %+v", ac)
	}
}

func TestAPIKeyStrategy(t *testing.T) {
	d := newTestDispatcher(t)
	strategy, err := d.Build(StrategyAPIKey)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/v1/receipts", nil)
	if _, err := strategy.Authenticate(r); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	r.Header.Set("X-Api-Key", "unknown")
	if _, err := strategy.Authenticate(r); !errors.Is(err, ErrMalformedCredentials) {
		t.Fatalf("expected ErrMalformedCredentials, got %v", err)
	}

	r.Header.Set("X-Api-Key", "svc-key-1")
	ac, err := strategy.Authenticate(r)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ac.UserID != "svc-1" || ac.OrgID != "org-svc" {
		t.Fatalf("unexpected principal: %+v", ac)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ac := Context{UserID: "u", OrgID: "o", Role: RoleStaff, ExpiresAt: time.Now()}
	ctx := WithContext(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok || got.UserID != "u" || got.OrgID != "o" {
		t.Fatalf("context round trip failed: %+v ok=%v", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no context on fresh ctx")
	}
}
