package user

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps users in process memory. Suitable for tests and for
// running the API without a database.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByMobileNumber(ctx context.Context, number string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.MobileNumber != "" && u.MobileNumber == number {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id, firstName, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.FirstName = firstName
	u.LastName = lastName
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateDevice(ctx context.Context, id, deviceID, deviceType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.DeviceID = deviceID
	u.DeviceType = deviceType
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetSingleUseToken(ctx context.Context, id string, purpose Purpose, token SingleUseToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	switch purpose {
	case PurposePasswordReset:
		u.ResetToken = token
	case PurposeAccountVerification:
		u.VerifyToken = token
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ConsumeSingleUseToken holds the lock across lookup and clear, so of two
// concurrent consumers exactly one observes the token.
func (s *MemoryStore) ConsumeSingleUseToken(ctx context.Context, token string, purpose Purpose, now time.Time) (string, error) {
	if token == "" {
		return "", ErrTokenInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		var slot *SingleUseToken
		switch purpose {
		case PurposePasswordReset:
			slot = &u.ResetToken
		case PurposeAccountVerification:
			slot = &u.VerifyToken
		default:
			return "", ErrTokenInvalid
		}
		if slot.Token != token {
			continue
		}
		if !slot.ExpiresAt.After(now) {
			return "", ErrTokenExpired
		}
		*slot = SingleUseToken{}
		if purpose == PurposeAccountVerification {
			u.Verified = true
		}
		u.UpdatedAt = now.UTC()
		return u.ID, nil
	}
	return "", ErrTokenInvalid
}
