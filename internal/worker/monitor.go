package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/observability/metrics"
)

// Monitor periodically advances overdue credentials and flags overstaying
// guests. It is the only writer of the pending -> expired transition; the
// validator treats overdue codes as not-found without writing, so the two
// never contend on that edge.
type Monitor struct {
	creds    domain.CredentialRepository
	notifier domain.Notifier
	clock    domain.Clock
	logger   *slog.Logger
	interval time.Duration
	// 0 means each credential's own requested duration.
	overstayThreshold time.Duration
}

// NewMonitor creates a new expiry and overstay monitor
func NewMonitor(
	creds domain.CredentialRepository,
	notifier domain.Notifier,
	clock domain.Clock,
	logger *slog.Logger,
	interval time.Duration,
	overstayThreshold time.Duration,
) *Monitor {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Monitor{
		creds:             creds,
		notifier:          notifier,
		clock:             clock,
		logger:            logger,
		interval:          interval,
		overstayThreshold: overstayThreshold,
	}
}

// Start begins the sweep loop. Runs until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("guest access monitor started",
		slog.Duration("interval", m.interval),
		slog.Duration("overstay_threshold", m.overstayThreshold),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("guest access monitor stopped")
			return
		case <-ticker.C:
			m.RunSweep(ctx)
		}
	}
}

// RunSweep executes one expiry pass and one overstay pass. Exported so
// tests can drive sweeps directly.
func (m *Monitor) RunSweep(ctx context.Context) {
	now := m.clock.Now()
	m.expirePass(ctx, now)
	m.overstayPass(ctx, now)
}

// expirePass moves every overdue pending credential to expired. The store
// guards the transition on status = pending, so a credential a concurrent
// entry scan just activated stays active. Active credentials are never
// expired by time: an entered guest is physically present regardless of
// the nominal duration.
func (m *Monitor) expirePass(ctx context.Context, now time.Time) {
	n, err := m.creds.ExpirePending(ctx, now)
	if err != nil {
		m.logger.Error("expiry sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		m.logger.Info("expired overdue credentials", slog.Int64("count", n))
		metrics.ObserveSweepExpired(n)
	}
}

// overstayPass flags active guests past the threshold, once per
// credential. Flagging never changes status: the system reports an
// overstay, it does not evict the guest.
func (m *Monitor) overstayPass(ctx context.Context, now time.Time) {
	overstayed, err := m.creds.ListOverstayed(ctx, m.overstayThreshold, now)
	if err != nil {
		m.logger.Error("overstay sweep failed", slog.String("error", err.Error()))
		return
	}

	for _, cred := range overstayed {
		flipped, err := m.creds.SetNotified(ctx, cred.ID, domain.FlagOverstayNotified)
		if err != nil {
			m.logger.Error("overstay flag update failed",
				slog.String("credential_id", cred.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !flipped {
			// Another sweep instance got here first.
			continue
		}

		metrics.ObserveOverstayNotified()
		m.logger.Info("guest overstay detected",
			slog.String("credential_id", cred.ID),
			slog.String("complex_id", cred.ComplexID),
			slog.Int("duration_minutes", cred.DurationMinutes),
		)

		if m.notifier != nil {
			if err := m.notifier.Notify(ctx, cred.CreatedBy, domain.EventGuestOverstay, cred); err != nil {
				// Flag stays set: a notification fired just before a late
				// exit or a delivery failure is not retracted or retried.
				m.logger.Warn("overstay notification failed",
					slog.String("credential_id", cred.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
