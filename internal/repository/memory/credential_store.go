// Package memory provides in-memory implementations of the repository
// interfaces with the same conditional-update semantics as the Postgres
// versions. Used by tests and by the no-database development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
)

// CredentialStore is an in-memory domain.CredentialRepository. A single
// mutex stands in for the database's per-row atomicity: every guarded
// transition checks and mutates under the same lock, so the CAS contract
// holds under concurrent callers exactly like the SQL conditional updates.
type CredentialStore struct {
	mu    sync.Mutex
	creds map[string]*domain.GuestCredential
}

// NewCredentialStore creates an empty credential store
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]*domain.GuestCredential)}
}

func (s *CredentialStore) Create(ctx context.Context, cred *domain.GuestCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.creds {
		if existing.AccessCode == cred.AccessCode && !existing.Status.IsTerminal() {
			return domain.ErrCodeTaken
		}
	}
	s.creds[cred.ID] = clone(cred)
	return nil
}

func (s *CredentialStore) GetByID(ctx context.Context, id string) (*domain.GuestCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(cred), nil
}

func (s *CredentialStore) FindCurrentByCode(ctx context.Context, accessCode string) (*domain.GuestCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cred := range s.creds {
		if cred.AccessCode == accessCode && !cred.Status.IsTerminal() {
			return clone(cred), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *CredentialStore) MarkEntered(ctx context.Context, id string, at time.Time) (*domain.GuestCredential, error) {
	return s.transition(id, domain.StatusPending, domain.StatusActive, func(c *domain.GuestCredential) {
		t := at
		c.EnteredAt = &t
	})
}

func (s *CredentialStore) MarkExited(ctx context.Context, id string, at time.Time) (*domain.GuestCredential, error) {
	return s.transition(id, domain.StatusActive, domain.StatusCompleted, func(c *domain.GuestCredential) {
		t := at
		c.ExitedAt = &t
	})
}

func (s *CredentialStore) Cancel(ctx context.Context, id string) (*domain.GuestCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok || cred.Status.IsTerminal() {
		return nil, domain.ErrStatusConflict
	}
	cred.Status = domain.StatusCancelled
	return clone(cred), nil
}

func (s *CredentialStore) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, cred := range s.creds {
		if cred.Status == domain.StatusPending && !cred.ExpiresAt.After(now) {
			cred.Status = domain.StatusExpired
			n++
		}
	}
	return n, nil
}

func (s *CredentialStore) ListOverstayed(ctx context.Context, threshold time.Duration, now time.Time) ([]*domain.GuestCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.GuestCredential
	for _, cred := range s.creds {
		if cred.Status != domain.StatusActive || cred.OverstayNotified || cred.EnteredAt == nil {
			continue
		}
		limit := threshold
		if limit <= 0 {
			limit = time.Duration(cred.DurationMinutes) * time.Minute
		}
		if now.Sub(*cred.EnteredAt) > limit {
			out = append(out, clone(cred))
		}
	}
	return out, nil
}

func (s *CredentialStore) SetNotified(ctx context.Context, id string, flag domain.NotificationFlag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return false, domain.ErrNotFound
	}

	switch flag {
	case domain.FlagOwnerNotified:
		if cred.OwnerNotified {
			return false, nil
		}
		cred.OwnerNotified = true
	case domain.FlagChairmanNotified:
		if cred.ChairmanNotified {
			return false, nil
		}
		cred.ChairmanNotified = true
	case domain.FlagOverstayNotified:
		if cred.OverstayNotified {
			return false, nil
		}
		cred.OverstayNotified = true
	}
	return true, nil
}

func (s *CredentialStore) ListCurrentByComplex(ctx context.Context, complexID string) ([]*domain.GuestCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.GuestCredential
	for _, cred := range s.creds {
		if cred.ComplexID == complexID && !cred.Status.IsTerminal() {
			out = append(out, clone(cred))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *CredentialStore) transition(id string, from, to domain.CredentialStatus, stamp func(*domain.GuestCredential)) (*domain.GuestCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok || cred.Status != from {
		return nil, domain.ErrStatusConflict
	}
	cred.Status = to
	stamp(cred)
	return clone(cred), nil
}

func clone(c *domain.GuestCredential) *domain.GuestCredential {
	out := *c
	if c.EnteredAt != nil {
		t := *c.EnteredAt
		out.EnteredAt = &t
	}
	if c.ExitedAt != nil {
		t := *c.ExitedAt
		out.ExitedAt = &t
	}
	return &out
}
