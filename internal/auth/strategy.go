package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Supported strategy names. The set is closed: anything else is rejected by
// Build at startup, which keeps a typo in configuration from silently leaving
// routes unauthenticated.
const (
	StrategyToken  = "token"
	StrategyAPIKey = "apiKey"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"
	apiKeyHeader        = "X-Api-Key"
)

// Strategy validates the credentials on a request and produces the
// authorization context consumed by the workflows.
type Strategy interface {
	Authenticate(r *http.Request) (Context, error)
}

// TokenStrategy authenticates Bearer tokens minted by the Codec. The check is
// a single terminal pass over the header: missing, malformed, expired, or
// accepted.
type TokenStrategy struct {
	codec *Codec
}

func (s *TokenStrategy) Authenticate(r *http.Request) (Context, error) {
	header := r.Header.Get(authorizationHeader)
	if header == "" {
		return Context{}, ErrMissingCredentials
	}
	// Exactly two space-separated fields, the first literally "Bearer".
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != bearerScheme || parts[1] == "" {
		return Context{}, ErrMalformedCredentials
	}
	ac, err := s.codec.Decode(parts[1])
	switch {
	case errors.Is(err, ErrTokenExpired):
		return Context{}, ErrExpiredCredentials
	case err != nil:
		return Context{}, ErrMalformedCredentials
	}
	return ac, nil
}

// APIKeyStrategy authenticates requests from pre-registered integrations via
// the X-Api-Key header. Keys map to fixed service principals; there is no
// expiry to check.
type APIKeyStrategy struct {
	keys map[string]Context
}

func (s *APIKeyStrategy) Authenticate(r *http.Request) (Context, error) {
	key := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	if key == "" {
		return Context{}, ErrMissingCredentials
	}
	ac, ok := s.keys[key]
	if !ok {
		return Context{}, ErrMalformedCredentials
	}
	return ac, nil
}

// Options configures the Dispatcher.
type Options struct {
	// Secret signs and verifies bearer tokens. Required.
	Secret string
	// Keys registers API keys and the principals they act as.
	Keys map[string]Context
	// Codec options applied to the token codec (TTL, issuer, clock).
	CodecOptions []CodecOption
}

// Dispatcher selects and constructs authentication strategies from
// configuration, once, at startup.
type Dispatcher struct {
	codec *Codec
	keys  map[string]Context
}

// NewDispatcher fails fast when the signing secret is absent.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	codec, err := NewCodec(opts.Secret, opts.CodecOptions...)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]Context, len(opts.Keys))
	for k, v := range opts.Keys {
		keys[k] = v
	}
	return &Dispatcher{codec: codec, keys: keys}, nil
}

// Build returns the strategy for the given name, or an unsupported-strategy
// error immediately, never lazily at request time.
func (d *Dispatcher) Build(strategy string) (Strategy, error) {
	switch strategy {
	case StrategyToken:
		return &TokenStrategy{codec: d.codec}, nil
	case StrategyAPIKey:
		return &APIKeyStrategy{keys: d.keys}, nil
	default:
		return nil, fmt.Errorf("auth: unsupported authentication strategy %q", strategy)
	}
}

// Codec exposes the token codec so the login workflow can issue tokens with
// the same secret and TTL the strategy verifies with.
func (d *Dispatcher) Codec() *Codec {
	return d.codec
}
