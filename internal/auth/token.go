package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 15 * time.Minute

// Codec issues and verifies signed claim sets. Tokens are HS256 JWTs; Decode
// always verifies the signature before any claim is inspected, so a tampered
// token is rejected as malformed rather than trusted.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithIssuer sets the issuer claim stamped into every token.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		c.issuer = strings.TrimSpace(issuer)
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. The secret is mandatory; an empty secret is a
// configuration error surfaced at construction, never at request time.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errMissingSecret
	}
	c := &Codec{
		secret: []byte(secret),
		ttl:    defaultTokenTTL,
		issuer: "receiptz",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type tokenClaims struct {
	OrgID string `json:"org,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given identity. The expiry is an absolute
// instant computed as now + TTL.
func (c *Codec) Issue(userID, orgID string, role Role) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("auth: userID is required")
	}

	now := c.now().UTC()
	expiresAt := now.Add(c.ttl)
	claims := tokenClaims{
		OrgID: orgID,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Decode verifies the signature and claims of a token and reconstructs the
// authorization context. A structurally broken or tampered token yields
// ErrTokenMalformed; a valid token past its expiry yields ErrTokenExpired.
func (c *Codec) Decode(token string) (Context, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Context{}, ErrTokenMalformed
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenMalformed
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Context{}, ErrTokenExpired
		}
		return Context{}, ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Context{}, ErrTokenMalformed
	}
	if claims.Issuer != c.issuer || strings.TrimSpace(claims.Subject) == "" {
		return Context{}, ErrTokenMalformed
	}
	role := Role(claims.Role)
	if role != RoleIndividual && role != RoleStaff {
		return Context{}, ErrTokenMalformed
	}

	return Context{
		UserID:    claims.Subject,
		OrgID:     claims.OrgID,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}
