package organization

import (
	"context"
	"sync"
)

// MemoryStore keeps organizations in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	orgs map[string]*Organization
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orgs: make(map[string]*Organization)}
}

func (s *MemoryStore) Create(ctx context.Context, o *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orgs[o.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[id]; !ok {
		return ErrNotFound
	}
	delete(s.orgs, id)
	return nil
}
