package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captureNotifier struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (n *captureNotifier) Notify(ctx context.Context, targetUserID string, kind domain.EventKind, cred *domain.GuestCredential) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, cred.ID+":"+string(kind))
	if n.fail {
		return errors.New("gateway down")
	}
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func seedCredential(t *testing.T, creds *memory.CredentialStore, id string, status domain.CredentialStatus, expiresAt time.Time, enteredAt *time.Time, minutes int) {
	t.Helper()
	cred := &domain.GuestCredential{
		ID:              id,
		ComplexID:       "complex-1",
		CreatedBy:       "resident-1",
		GuestName:       "Guest " + id,
		AccessCode:      "10000" + id[len(id)-1:],
		DurationMinutes: minutes,
		ExpiresAt:       expiresAt,
		Status:          domain.StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := creds.Create(context.Background(), cred); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	if status == domain.StatusActive {
		at := time.Now().UTC()
		if enteredAt != nil {
			at = *enteredAt
		}
		if _, err := creds.MarkEntered(context.Background(), id, at); err != nil {
			t.Fatalf("seed enter %s: %v", id, err)
		}
	}
}

func TestSweepExpiresOverduePendingOnly(t *testing.T) {
	creds := memory.NewCredentialStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })

	// Overdue pending, fresh pending, and an overdue-but-entered guest.
	seedCredential(t, creds, "c1", domain.StatusPending, now.Add(-time.Minute), nil, 60)
	seedCredential(t, creds, "c2", domain.StatusPending, now.Add(time.Hour), nil, 60)
	entered := now.Add(-10 * time.Minute)
	seedCredential(t, creds, "c3", domain.StatusActive, now.Add(-time.Minute), &entered, 60)

	m := NewMonitor(creds, nil, clock, testLogger(), time.Minute, 0)
	m.RunSweep(context.Background())

	want := map[string]domain.CredentialStatus{
		"c1": domain.StatusExpired,
		"c2": domain.StatusPending,
		"c3": domain.StatusActive,
	}
	for id, status := range want {
		got, err := creds.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Status != status {
			t.Fatalf("%s: expected %s, got %s", id, status, got.Status)
		}
	}
}

func TestSweepExpiredCodeNoLongerValidates(t *testing.T) {
	creds := memory.NewCredentialStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })

	seedCredential(t, creds, "c1", domain.StatusPending, now.Add(-time.Minute), nil, 60)

	m := NewMonitor(creds, nil, clock, testLogger(), time.Minute, 0)
	m.RunSweep(context.Background())

	if _, err := creds.FindCurrentByCode(context.Background(), "100001"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired code must read as not found, got %v", err)
	}
}

func TestOverstayNotifiedOncePerCredential(t *testing.T) {
	creds := memory.NewCredentialStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })
	notifier := &captureNotifier{}

	// 30-minute pass, entered two hours ago.
	entered := now.Add(-2 * time.Hour)
	seedCredential(t, creds, "c1", domain.StatusActive, now.Add(time.Hour), &entered, 30)

	m := NewMonitor(creds, notifier, clock, testLogger(), time.Minute, 0)
	m.RunSweep(context.Background())
	m.RunSweep(context.Background())
	m.RunSweep(context.Background())

	if notifier.count() != 1 {
		t.Fatalf("expected exactly one overstay notification, got %d", notifier.count())
	}

	got, _ := creds.GetByID(context.Background(), "c1")
	if got.Status != domain.StatusActive {
		t.Fatalf("overstay must not change status, got %s", got.Status)
	}
	if !got.OverstayNotified {
		t.Fatalf("expected overstay flag set")
	}
}

func TestOverstayDeliveryFailureNotRetried(t *testing.T) {
	creds := memory.NewCredentialStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })
	notifier := &captureNotifier{fail: true}

	entered := now.Add(-2 * time.Hour)
	seedCredential(t, creds, "c1", domain.StatusActive, now.Add(time.Hour), &entered, 30)

	m := NewMonitor(creds, notifier, clock, testLogger(), time.Minute, 0)
	m.RunSweep(context.Background())
	m.RunSweep(context.Background())

	// The flag flip is the one-shot, not the delivery.
	if notifier.count() != 1 {
		t.Fatalf("expected a single delivery attempt, got %d", notifier.count())
	}
}

func TestOverstayFixedThreshold(t *testing.T) {
	creds := memory.NewCredentialStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })
	notifier := &captureNotifier{}

	// Entered 20 minutes ago on a 30-minute pass: not overstayed by its
	// own duration, but past a fixed 15-minute threshold.
	entered := now.Add(-20 * time.Minute)
	seedCredential(t, creds, "c1", domain.StatusActive, now.Add(time.Hour), &entered, 30)

	m := NewMonitor(creds, notifier, clock, testLogger(), time.Minute, 15*time.Minute)
	m.RunSweep(context.Background())

	if notifier.count() != 1 {
		t.Fatalf("expected overstay past fixed threshold, got %d notifications", notifier.count())
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	creds := memory.NewCredentialStore()
	m := NewMonitor(creds, nil, nil, testLogger(), 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("monitor did not stop on cancel")
	}
}
