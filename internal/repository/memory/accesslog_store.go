package memory

import (
	"context"
	"sync"

	"github.com/localhood/gatekeeper/internal/domain"
)

// AccessLogStore is an in-memory, append-only domain.AccessLogRepository
type AccessLogStore struct {
	mu      sync.Mutex
	entries []*domain.AccessLogEntry
}

// NewAccessLogStore creates an empty access log store
func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Record(ctx context.Context, entry *domain.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *AccessLogStore) ListByComplex(ctx context.Context, complexID string, limit, offset int) ([]*domain.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.AccessLogEntry
	// Newest first, like the SQL ORDER BY created_at DESC.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ComplexID == complexID {
			copied := *s.entries[i]
			matched = append(matched, &copied)
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// All returns every recorded entry; test helper.
func (s *AccessLogStore) All() []*domain.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.AccessLogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		copied := *e
		out = append(out, &copied)
	}
	return out
}
