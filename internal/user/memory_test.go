package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func seedUser(t *testing.T, s *MemoryStore, id string) *User {
	t.Helper()
	now := time.Now().UTC()
	u := &User{
		ID:        id,
		Email:     id + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return u
}

func TestMemoryStoreConsumeIsSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	u := seedUser(t, s, "u-1")
	token := SingleUseToken{Token: "tok-abc", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.SetSingleUseToken(context.Background(), u.ID, PurposePasswordReset, token); err != nil {
		t.Fatalf("SetSingleUseToken: %v", err)
	}

	const consumers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	ctx := context.Background()
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeSingleUseToken(ctx, "tok-abc", PurposePasswordReset, time.Now()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("want exactly one successful consumption, got %d", wins)
	}
}

func TestMemoryStoreConsumePurposeIsolation(t *testing.T) {
	s := NewMemoryStore()
	u := seedUser(t, s, "u-2")
	token := SingleUseToken{Token: "tok-verify", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.SetSingleUseToken(context.Background(), u.ID, PurposeAccountVerification, token); err != nil {
		t.Fatalf("SetSingleUseToken: %v", err)
	}

	if _, err := s.ConsumeSingleUseToken(context.Background(), "tok-verify", PurposePasswordReset, time.Now()); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("token must not consume under the wrong purpose, got %v", err)
	}
	id, err := s.ConsumeSingleUseToken(context.Background(), "tok-verify", PurposeAccountVerification, time.Now())
	if err != nil || id != u.ID {
		t.Fatalf("Consume: id=%q err=%v", id, err)
	}
}

func TestMemoryStoreFindByMobileNumberIgnoresEmpty(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u-3")
	if _, err := s.FindByMobileNumber(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty number must not match, got %v", err)
	}
}

func TestMemoryStoreUpdateMissingUser(t *testing.T) {
	s := NewMemoryStore()
	if err := s.UpdatePassword(context.Background(), "ghost", "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := s.UpdateDevice(context.Background(), "ghost", "d", DeviceIOS); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
