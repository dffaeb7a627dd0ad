package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/repository/memory"
	"github.com/localhood/gatekeeper/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		MinDurationMinutes:     1,
		MaxDurationMinutes:     720,
		AccessCodeLength:       6,
		CodeGenerationAttempts: 5,
	}
}

func seedResidents() (*memory.ResidentStore, *domain.Resident, *domain.Resident) {
	residents := memory.NewResidentStore()
	resident := &domain.Resident{
		ID:        "resident-1",
		ComplexID: "complex-1",
		Phone:     "+70000000002",
		Role:      domain.RoleResident,
	}
	chairman := &domain.Resident{
		ID:        "chairman-1",
		ComplexID: "complex-1",
		Phone:     "+70000000001",
		Role:      domain.RoleChairman,
	}
	residents.Put(resident)
	residents.Put(chairman)
	return residents, resident, chairman
}

func TestIssueCreatesPendingCredential(t *testing.T) {
	ctx := context.Background()
	creds := memory.NewCredentialStore()
	residents, resident, _ := seedResidents()

	issuedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return issuedAt })
	svc := NewGuestAccessService(creds, residents, clock, testLogger(), testConfig())

	cred, err := svc.Issue(ctx, IssueRequest{
		CreatorID:       resident.ID,
		ComplexID:       resident.ComplexID,
		GuestName:       "Ivan Petrov",
		DurationMinutes: 90,
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if cred.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", cred.Status)
	}
	if len(cred.AccessCode) != 6 {
		t.Fatalf("expected 6-digit code, got %q", cred.AccessCode)
	}
	if cred.AccessCode[0] == '0' {
		t.Fatalf("code must not start with zero: %q", cred.AccessCode)
	}
	want := issuedAt.Add(90 * time.Minute)
	if !cred.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, cred.ExpiresAt)
	}
}

func TestIssueRejectsDurationOutOfBounds(t *testing.T) {
	ctx := context.Background()
	creds := memory.NewCredentialStore()
	residents, resident, _ := seedResidents()
	svc := NewGuestAccessService(creds, residents, nil, testLogger(), testConfig())

	for _, minutes := range []int{0, -5, 721} {
		_, err := svc.Issue(ctx, IssueRequest{
			CreatorID:       resident.ID,
			ComplexID:       resident.ComplexID,
			GuestName:       "Ivan",
			DurationMinutes: minutes,
		})
		if !errors.Is(err, domain.ErrInvalidDuration) {
			t.Fatalf("duration %d: expected ErrInvalidDuration, got %v", minutes, err)
		}
	}
}

func TestIssueRejectsBlockedCreator(t *testing.T) {
	ctx := context.Background()
	creds := memory.NewCredentialStore()
	residents, _, _ := seedResidents()
	residents.Put(&domain.Resident{
		ID:        "blocked-1",
		ComplexID: "complex-1",
		Role:      domain.RoleResident,
		IsBlocked: true,
	})
	svc := NewGuestAccessService(creds, residents, nil, testLogger(), testConfig())

	_, err := svc.Issue(ctx, IssueRequest{
		CreatorID:       "blocked-1",
		ComplexID:       "complex-1",
		GuestName:       "Ivan",
		DurationMinutes: 60,
	})
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

// alwaysTakenStore simulates a code space where every generated code
// collides with a live credential.
type alwaysTakenStore struct {
	*memory.CredentialStore
	attempts int
}

func (s *alwaysTakenStore) Create(ctx context.Context, cred *domain.GuestCredential) error {
	s.attempts++
	return domain.ErrCodeTaken
}

func TestIssueExhaustsCodeAttempts(t *testing.T) {
	ctx := context.Background()
	store := &alwaysTakenStore{CredentialStore: memory.NewCredentialStore()}
	residents, resident, _ := seedResidents()
	svc := NewGuestAccessService(store, residents, nil, testLogger(), testConfig())

	_, err := svc.Issue(ctx, IssueRequest{
		CreatorID:       resident.ID,
		ComplexID:       resident.ComplexID,
		GuestName:       "Ivan",
		DurationMinutes: 60,
	})
	if !errors.Is(err, domain.ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
	if store.attempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", store.attempts)
	}
}

func TestCancelAuthorization(t *testing.T) {
	ctx := context.Background()
	creds := memory.NewCredentialStore()
	residents, resident, chairman := seedResidents()
	residents.Put(&domain.Resident{
		ID:        "other-1",
		ComplexID: "complex-1",
		Role:      domain.RoleResident,
	})
	residents.Put(&domain.Resident{
		ID:        "foreign-chair",
		ComplexID: "complex-2",
		Role:      domain.RoleChairman,
	})
	svc := NewGuestAccessService(creds, residents, nil, testLogger(), testConfig())

	issue := func() string {
		cred, err := svc.Issue(ctx, IssueRequest{
			CreatorID:       resident.ID,
			ComplexID:       resident.ComplexID,
			GuestName:       "Ivan",
			DurationMinutes: 60,
		})
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		return cred.ID
	}

	// Another resident may not cancel.
	id := issue()
	if err := svc.Cancel(ctx, id, "other-1"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for unrelated resident, got %v", err)
	}

	// A chairman of a different complex may not cancel.
	if err := svc.Cancel(ctx, id, "foreign-chair"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for foreign chairman, got %v", err)
	}

	// The creator may.
	if err := svc.Cancel(ctx, id, resident.ID); err != nil {
		t.Fatalf("creator cancel failed: %v", err)
	}

	// The complex chairman may.
	id = issue()
	if err := svc.Cancel(ctx, id, chairman.ID); err != nil {
		t.Fatalf("chairman cancel failed: %v", err)
	}

	// Cancelling a terminal credential is a conflict.
	if err := svc.Cancel(ctx, id, resident.ID); !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict on repeat cancel, got %v", err)
	}
}

func TestGetScopedToComplex(t *testing.T) {
	ctx := context.Background()
	creds := memory.NewCredentialStore()
	residents, resident, _ := seedResidents()
	svc := NewGuestAccessService(creds, residents, nil, testLogger(), testConfig())

	cred, err := svc.Issue(ctx, IssueRequest{
		CreatorID:       resident.ID,
		ComplexID:       resident.ComplexID,
		GuestName:       "Ivan",
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := svc.Get(ctx, cred.ID, "complex-1"); err != nil {
		t.Fatalf("same-complex get failed: %v", err)
	}
	if _, err := svc.Get(ctx, cred.ID, "complex-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-complex get must read as not found, got %v", err)
	}
}
