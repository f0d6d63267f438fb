package auth

import "errors"

var (
	// ErrMissingCredentials is returned when a request carries no
	// Authorization material at all.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrMalformedCredentials covers a present but unusable header: wrong
	// scheme, wrong shape, or a token that fails signature verification.
	ErrMalformedCredentials = errors.New("auth: malformed credentials")

	// ErrExpiredCredentials is returned for a well-formed, correctly signed
	// token whose expiry has passed. Kept distinct from malformed so callers
	// can tell "log in again" apart from "bad token".
	ErrExpiredCredentials = errors.New("auth: expired credentials")

	// ErrTokenMalformed and ErrTokenExpired are the codec-level counterparts.
	ErrTokenMalformed = errors.New("auth: malformed token")
	ErrTokenExpired   = errors.New("auth: token expired")

	errMissingSecret = errors.New("auth: signing secret is not configured")
)
