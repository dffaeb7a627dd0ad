package memory

import (
	"context"
	"sync"

	"github.com/localhood/gatekeeper/internal/domain"
)

// BarrierStore is an in-memory domain.BarrierRepository
type BarrierStore struct {
	mu       sync.RWMutex
	barriers map[string]*domain.Barrier
}

// NewBarrierStore creates an empty barrier store
func NewBarrierStore() *BarrierStore {
	return &BarrierStore{barriers: make(map[string]*domain.Barrier)}
}

// Put registers or replaces a barrier
func (s *BarrierStore) Put(b *domain.Barrier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *b
	s.barriers[b.ID] = &copied
}

func (s *BarrierStore) GetByID(ctx context.Context, id string) (*domain.Barrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.barriers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *BarrierStore) ListByComplex(ctx context.Context, complexID string) ([]*domain.Barrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Barrier
	for _, b := range s.barriers {
		if b.ComplexID == complexID {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ResidentStore is an in-memory domain.ResidentRepository
type ResidentStore struct {
	mu        sync.RWMutex
	residents map[string]*domain.Resident
}

// NewResidentStore creates an empty resident store
func NewResidentStore() *ResidentStore {
	return &ResidentStore{residents: make(map[string]*domain.Resident)}
}

// Put registers or replaces a resident
func (s *ResidentStore) Put(r *domain.Resident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.residents[r.ID] = &copied
}

func (s *ResidentStore) GetByID(ctx context.Context, id string) (*domain.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.residents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *ResidentStore) GetByPhone(ctx context.Context, phone string) (*domain.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.residents {
		if r.Phone == phone {
			copied := *r
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *ResidentStore) GetChairman(ctx context.Context, complexID string) (*domain.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.residents {
		if r.ComplexID == complexID && r.Role == domain.RoleChairman {
			copied := *r
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}
