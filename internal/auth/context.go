package auth

import (
	"context"
	"time"
)

// Role classifies an authenticated caller.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleStaff      Role = "staff"
)

// Context is the per-request authorization context derived from validated
// credentials. It lives only for the duration of one request and is never
// persisted.
type Context struct {
	UserID    string
	OrgID     string
	Role      Role
	ExpiresAt time.Time
}

// IsStaff reports whether the caller may act on behalf of an organization.
func (c Context) IsStaff() bool {
	return c.Role == RoleStaff && c.OrgID != ""
}

type authContextKey struct{}

// WithContext attaches the authorization context to the request context.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext extracts the authorization context populated by the strategy
// middleware.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	ac, ok := ctx.Value(authContextKey{}).(Context)
	if !ok || ac.UserID == "" {
		return Context{}, false
	}
	return ac, true
}
