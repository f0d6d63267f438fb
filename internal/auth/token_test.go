package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	codec, err := NewCodec("test-secret", opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, expiresAt, err := codec.Issue("user-1", "org-1", RoleStaff)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	ac, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ac.UserID != "user-1" || ac.OrgID != "org-1" || ac.Role != RoleStaff {
		t.Fatalf("claims not preserved: %+v", ac)
	}
	if !ac.ExpiresAt.Equal(expiresAt.Truncate(time.Second)) {
		t.Fatalf("expiry mismatch: issued %v decoded %v", expiresAt, ac.ExpiresAt)
	}
}

func TestCodecRoundTripWithoutOrg(t *testing.T) {
	codec := newTestCodec(t)

	token, _, err := codec.Issue("user-2", "", RoleIndividual)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ac, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ac.OrgID != "" || ac.Role != RoleIndividual {
		t.Fatalf("unexpected context: %+v", ac)
	}
	if ac.IsStaff() {
		t.Fatal("individual context must not be staff")
	}
}

func TestCodecRejectsExpiredDistinctly(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	issued := newTestCodec(t, WithClock(func() time.Time { return past }))

	token, _, err := issued.Issue("user-3", "", RoleIndividual)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	codec := newTestCodec(t)
	if _, err := codec.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCodecRejectsTamperedToken(t *testing.T) {
	codec := newTestCodec(t)
	token, _, err := codec.Issue("user-4", "org-4", RoleStaff)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip a character in the payload segment; the signature no longer
	// matches, so the claims must never be trusted.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := codec.Decode(tampered); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec("another-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	token, _, err := other.Issue("user-5", "", RoleIndividual)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)
	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := codec.Decode(token); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewCodec("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
