package user

import (
	"errors"
	"time"

	"receiptz.org/internal/auth"
	"receiptz.org/internal/country"
)

var (
	ErrNotFound       = errors.New("user: not found")
	ErrDuplicateEmail = errors.New("user: email is already registered")

	// ErrInvalidCredentials deliberately covers both a wrong password and a
	// hash comparison failure so login reveals nothing about which it was.
	ErrInvalidCredentials = errors.New("user: invalid email or password")

	ErrTokenInvalid = errors.New("user: invalid token")
	ErrTokenExpired = errors.New("user: token is expired")

	// ErrRecordGone marks the situation a workflow assumes can never occur:
	// the authenticated caller's own record is missing at update time.
	ErrRecordGone = errors.New("user: authenticated user record missing")
)

// Purpose discriminates the two single-use token kinds. Each purpose has at
// most one live token per user, stored on the user record itself.
type Purpose string

const (
	PurposePasswordReset       Purpose = "password-reset"
	PurposeAccountVerification Purpose = "account-verification"
)

// Device types supported by the mobile clients.
const (
	DeviceAndroid = "ANDROID"
	DeviceIOS     = "IOS"
)

// SingleUseToken is an opaque random value with an expiry, valid for exactly
// one successful consumption.
type SingleUseToken struct {
	Token     string
	ExpiresAt time.Time
}

// User is a top-level aggregate. OrgID is set exactly once at creation for
// staff users and never reassigned.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         auth.Role
	OrgID        string
	MobileNumber string
	Country      country.Country
	DeviceID     string
	DeviceType   string
	Verified     bool

	ResetToken  SingleUseToken
	VerifyToken SingleUseToken

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the externally visible shape of a user: no credential hash, no
// live tokens.
type Profile struct {
	ID           string          `json:"id"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Email        string          `json:"email"`
	Role         auth.Role       `json:"role"`
	OrgID        string          `json:"org_id,omitempty"`
	MobileNumber string          `json:"mobile_number"`
	Country      country.Country `json:"country"`
	DeviceType   string          `json:"device_type,omitempty"`
	Verified     bool            `json:"verified"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Profile strips the fields that must never leave the service.
func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Role:         u.Role,
		OrgID:        u.OrgID,
		MobileNumber: u.MobileNumber,
		Country:      u.Country,
		DeviceType:   u.DeviceType,
		Verified:     u.Verified,
		CreatedAt:    u.CreatedAt,
	}
}
