// Package notify implements the notification bridge: fire-and-forget SMS
// delivery to residents about guest movement. Delivery failures are logged
// and counted, never surfaced to the validation path.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/observability/metrics"
	"github.com/localhood/gatekeeper/internal/reliability/circuitbreaker"
	"github.com/localhood/gatekeeper/internal/reliability/retry"
)

// SMSNotifier implements domain.Notifier over an SMS gateway
type SMSNotifier struct {
	residents domain.ResidentRepository
	sender    SMSSender
	breaker   *circuitbreaker.CircuitBreaker
	retryCfg  *retry.Config
	logger    *slog.Logger
}

// NewSMSNotifier creates a notifier resolving target phones through the
// resident repository
func NewSMSNotifier(residents domain.ResidentRepository, sender SMSSender, logger *slog.Logger) *SMSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMSNotifier{
		residents: residents,
		sender:    sender,
		breaker:   circuitbreaker.New(5, 2, 30*time.Second),
		retryCfg: &retry.Config{
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
		logger: logger,
	}
}

// Notify sends one event to one resident. The error return exists for
// logging by direct callers; services invoke this from a goroutine and
// never act on it.
func (n *SMSNotifier) Notify(ctx context.Context, targetUserID string, kind domain.EventKind, cred *domain.GuestCredential) error {
	resident, err := n.residents.GetByID(ctx, targetUserID)
	if err != nil {
		metrics.ObserveNotificationFailure(string(kind))
		return fmt.Errorf("resolve notification target: %w", err)
	}

	text := n.message(kind, cred)

	err = n.breaker.Execute(func() error {
		_, sendErr := retry.Do(ctx, n.retryCfg, n.logger, "send_sms", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, n.sender.SendSMS(ctx, resident.Phone, text)
		})
		return sendErr
	})
	if err != nil {
		metrics.ObserveNotificationFailure(string(kind))
		n.logger.Error("notification delivery failed",
			slog.String("kind", string(kind)),
			slog.String("user_id", targetUserID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

func (n *SMSNotifier) message(kind domain.EventKind, cred *domain.GuestCredential) string {
	guest := cred.GuestName
	if guest == "" {
		guest = "Guest"
	}

	switch kind {
	case domain.EventGuestEntered:
		at := time.Now()
		if cred.EnteredAt != nil {
			at = *cred.EnteredAt
		}
		return fmt.Sprintf("%s entered at %s (code %s).", guest, at.Format("15:04"), cred.AccessCode)
	case domain.EventGuestOverstay:
		return fmt.Sprintf("%s is still on the premises past the requested %d minutes.", guest, cred.DurationMinutes)
	default:
		return fmt.Sprintf("Guest access update for %s.", guest)
	}
}
