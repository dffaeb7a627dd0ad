package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/featureflags"
	"github.com/localhood/gatekeeper/internal/observability/metrics"
)

// DenyReason explains a denied barrier decision
type DenyReason string

const (
	// DenyCodeInvalid covers unknown, expired, cancelled and completed
	// codes alike. The barrier cannot tell these apart, so lifecycle
	// detail does not leak at the gate.
	DenyCodeInvalid DenyReason = "code_invalid"
	// DenyCodeAlreadyUsed is the loser's verdict in an entry/exit race
	// or a repeat scan.
	DenyCodeAlreadyUsed DenyReason = "code_already_used"
	// DenyBarrierInactive rejects scans from unknown or disabled barriers.
	DenyBarrierInactive DenyReason = "barrier_inactive"
)

// Decision is a barrier decision. The adapter opens the barrier only on
// Granted.
type Decision struct {
	Granted    bool
	Reason     DenyReason
	Credential *domain.GuestCredential
	Barrier    *domain.Barrier
}

// EventSink receives audit entries as they are recorded; the live guard
// console feed hangs off this.
type EventSink interface {
	Publish(entry *domain.AccessLogEntry)
}

// ValidationService is the barrier decision engine. All credential state
// changes on the scan path go through conditional transitions in the
// store, so concurrent scans of the same code at different barriers
// resolve to exactly one winner.
type ValidationService struct {
	creds     domain.CredentialRepository
	logs      domain.AccessLogRepository
	barriers  domain.BarrierRepository
	residents domain.ResidentRepository
	notifier  domain.Notifier
	sink      EventSink
	clock     domain.Clock
	logger    *slog.Logger
}

// ValidateRequest is one scan presented by a barrier adapter
type ValidateRequest struct {
	AccessCode    string
	BarrierID     string
	Action        domain.BarrierAction
	VehicleNumber string
}

// NewValidationService creates a new validation service. sink may be nil.
func NewValidationService(
	creds domain.CredentialRepository,
	logs domain.AccessLogRepository,
	barriers domain.BarrierRepository,
	residents domain.ResidentRepository,
	notifier domain.Notifier,
	sink EventSink,
	clock domain.Clock,
	logger *slog.Logger,
) *ValidationService {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &ValidationService{
		creds:     creds,
		logs:      logs,
		barriers:  barriers,
		residents: residents,
		notifier:  notifier,
		sink:      sink,
		clock:     clock,
		logger:    logger,
	}
}

// Validate decides one scan.
//
// An infrastructure error returns err != nil and no decision; the adapter
// must surface a transport failure, not a denial. Every other path returns
// a Decision.
func (s *ValidationService) Validate(ctx context.Context, req ValidateRequest) (Decision, error) {
	barrier, err := s.barriers.GetByID(ctx, req.BarrierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.deny(req.Action, DenyBarrierInactive, nil), nil
		}
		return Decision{}, err
	}
	if !barrier.IsActive {
		return s.deny(req.Action, DenyBarrierInactive, nil), nil
	}

	cred, err := s.creds.FindCurrentByCode(ctx, req.AccessCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.deny(req.Action, DenyCodeInvalid, nil), nil
		}
		return Decision{}, err
	}

	now := s.clock.Now()

	// Past-deadline pending codes read as invalid without writing anything:
	// moving them to expired is the monitor's job alone, which keeps the
	// validator and the sweep from racing on the same transition.
	if cred.Status == domain.StatusPending && !now.Before(cred.ExpiresAt) {
		return s.deny(req.Action, DenyCodeInvalid, cred), nil
	}

	switch req.Action {
	case domain.ActionEntry:
		return s.validateEntry(ctx, cred, barrier, req, now)
	case domain.ActionExit:
		return s.validateExit(ctx, cred, barrier, req, now)
	default:
		return s.deny(req.Action, DenyCodeInvalid, cred), nil
	}
}

func (s *ValidationService) validateEntry(ctx context.Context, cred *domain.GuestCredential, barrier *domain.Barrier, req ValidateRequest, now time.Time) (Decision, error) {
	if cred.Status != domain.StatusPending {
		return s.deny(req.Action, DenyCodeAlreadyUsed, cred), nil
	}

	updated, err := s.creds.MarkEntered(ctx, cred.ID, now)
	if err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			// Another barrier admitted this guest a moment ago. The loss
			// is final, never retried.
			return s.deny(req.Action, DenyCodeAlreadyUsed, cred), nil
		}
		return Decision{}, err
	}

	metrics.ObserveValidation(string(req.Action), "granted")
	metrics.GuestEntered()

	s.recordPassage(ctx, updated, barrier, domain.ActionEntry, req.VehicleNumber, now)
	s.notifyEntry(updated)

	return Decision{Granted: true, Credential: updated, Barrier: barrier}, nil
}

func (s *ValidationService) validateExit(ctx context.Context, cred *domain.GuestCredential, barrier *domain.Barrier, req ValidateRequest, now time.Time) (Decision, error) {
	if cred.Status != domain.StatusActive {
		// Never entered: nothing to exit from.
		return s.deny(req.Action, DenyCodeInvalid, cred), nil
	}

	updated, err := s.creds.MarkExited(ctx, cred.ID, now)
	if err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return s.deny(req.Action, DenyCodeAlreadyUsed, cred), nil
		}
		return Decision{}, err
	}

	metrics.ObserveValidation(string(req.Action), "granted")
	metrics.GuestLeft()

	s.recordPassage(ctx, updated, barrier, domain.ActionExit, req.VehicleNumber, now)

	return Decision{Granted: true, Credential: updated, Barrier: barrier}, nil
}

// ResidentOpen handles a resident opening the barrier from the app. No
// credential is involved; the passage is logged against the user.
func (s *ValidationService) ResidentOpen(ctx context.Context, userID, complexID, barrierID string) (*domain.Barrier, error) {
	barrier, err := s.barriers.GetByID(ctx, barrierID)
	if err != nil {
		return nil, err
	}
	if !barrier.IsActive || barrier.ComplexID != complexID {
		return nil, domain.ErrNotAuthorized
	}

	entry := &domain.AccessLogEntry{
		ID:        uuid.NewString(),
		ComplexID: complexID,
		BarrierID: barrierID,
		UserID:    userID,
		Action:    domain.ActionEntry,
		CreatedAt: s.clock.Now(),
	}
	s.record(ctx, entry)

	return barrier, nil
}

// History returns the audit trail of a complex, newest first
func (s *ValidationService) History(ctx context.Context, complexID string, limit, offset int) ([]*domain.AccessLogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.logs.ListByComplex(ctx, complexID, limit, offset)
}

func (s *ValidationService) deny(action domain.BarrierAction, reason DenyReason, cred *domain.GuestCredential) Decision {
	metrics.ObserveValidation(string(action), string(reason))
	return Decision{Granted: false, Reason: reason, Credential: cred}
}

// recordPassage appends the audit entry for a successful transition. The
// transition is already durable; a ledger failure is logged and swallowed,
// it must never retract a grant.
func (s *ValidationService) recordPassage(ctx context.Context, cred *domain.GuestCredential, barrier *domain.Barrier, action domain.BarrierAction, vehicleNumber string, at time.Time) {
	if vehicleNumber == "" {
		vehicleNumber = cred.VehicleNumber
	}

	entry := &domain.AccessLogEntry{
		ID:            uuid.NewString(),
		ComplexID:     cred.ComplexID,
		BarrierID:     barrier.ID,
		CredentialID:  cred.ID,
		Action:        action,
		VehicleNumber: vehicleNumber,
		CreatedAt:     at,
	}
	s.record(ctx, entry)
}

func (s *ValidationService) record(ctx context.Context, entry *domain.AccessLogEntry) {
	if err := s.logs.Record(ctx, entry); err != nil {
		s.logger.Error("audit ledger append failed",
			slog.String("complex_id", entry.ComplexID),
			slog.String("action", string(entry.Action)),
			slog.String("error", err.Error()),
		)
	}
	if s.sink != nil {
		s.sink.Publish(entry)
	}
}

// notifyEntry fires the owner (and optionally chairman) notifications for a
// first entry. Runs detached from the request: a slow or dead SMS gateway
// must not hold up the barrier.
func (s *ValidationService) notifyEntry(cred *domain.GuestCredential) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		flipped, err := s.creds.SetNotified(ctx, cred.ID, domain.FlagOwnerNotified)
		if err != nil {
			s.logger.Error("owner notification flag update failed",
				slog.String("credential_id", cred.ID),
				slog.String("error", err.Error()),
			)
		} else if flipped {
			_ = s.notifier.Notify(ctx, cred.CreatedBy, domain.EventGuestEntered, cred)
		}

		if !featureflags.Enabled(featureflags.ChairmanNotify) {
			return
		}

		chairman, err := s.residents.GetChairman(ctx, cred.ComplexID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.Error("chairman lookup failed",
					slog.String("complex_id", cred.ComplexID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		flipped, err = s.creds.SetNotified(ctx, cred.ID, domain.FlagChairmanNotified)
		if err == nil && flipped {
			_ = s.notifier.Notify(ctx, chairman.ID, domain.EventGuestEntered, cred)
		}
	}()
}
