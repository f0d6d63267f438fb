package user

import (
	"context"
	"time"
)

// Store describes persistence for users. The backing store guarantees only
// per-record atomicity; ConsumeSingleUseToken is the one operation that must
// be a conditional clear-if-still-present so racing consumers cannot both
// succeed.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByMobileNumber(ctx context.Context, number string) (*User, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id, firstName, lastName string) error
	UpdateDevice(ctx context.Context, id, deviceID, deviceType string) error

	// SetSingleUseToken stores a token for the purpose, superseding any
	// unconsumed token of the same purpose.
	SetSingleUseToken(ctx context.Context, id string, purpose Purpose, token SingleUseToken) error

	// ConsumeSingleUseToken looks up the owner of token for the purpose and
	// atomically clears it, returning the owner id. An unknown token yields
	// ErrTokenInvalid; a known but expired token yields ErrTokenExpired and
	// is left in place. A second consumption of the same token always fails
	// ErrTokenInvalid, even under concurrent callers.
	ConsumeSingleUseToken(ctx context.Context, token string, purpose Purpose, now time.Time) (string, error)
}
