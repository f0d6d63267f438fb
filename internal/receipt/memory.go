package receipt

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps receipts in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	receipts map[string]*Receipt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{receipts: make(map[string]*Receipt)}
}

func (s *MemoryStore) Create(ctx context.Context, r *Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.LineItems = append([]LineItem(nil), r.LineItems...)
	s.receipts[r.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.LineItems = append([]LineItem(nil), r.LineItems...)
	return &cp, nil
}

func (s *MemoryStore) ListByOrg(ctx context.Context, orgID string) ([]*Receipt, error) {
	return s.list(func(r *Receipt) bool { return r.OrgID == orgID })
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Receipt, error) {
	return s.list(func(r *Receipt) bool { return r.BoundUserID == userID })
}

func (s *MemoryStore) list(keep func(*Receipt) bool) ([]*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Receipt, 0)
	for _, r := range s.receipts {
		if keep(r) {
			cp := *r
			cp.LineItems = append([]LineItem(nil), r.LineItems...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
