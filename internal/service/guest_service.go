package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/observability/metrics"
	"github.com/localhood/gatekeeper/pkg/config"
)

// GuestAccessService issues, cancels and reads guest credentials
type GuestAccessService struct {
	creds     domain.CredentialRepository
	residents domain.ResidentRepository
	clock     domain.Clock
	logger    *slog.Logger
	config    *config.Config
}

// IssueRequest captures one issuance
type IssueRequest struct {
	CreatorID       string
	ComplexID       string
	GuestName       string
	GuestPhone      string
	VehicleNumber   string
	DurationMinutes int
}

// NewGuestAccessService creates a new guest access service
func NewGuestAccessService(
	creds domain.CredentialRepository,
	residents domain.ResidentRepository,
	clock domain.Clock,
	logger *slog.Logger,
	cfg *config.Config,
) *GuestAccessService {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &GuestAccessService{
		creds:     creds,
		residents: residents,
		clock:     clock,
		logger:    logger,
		config:    cfg,
	}
}

// Issue creates a new pending credential with a fresh access code.
// Code collisions with live credentials are treated as transient: the store
// rejects them through its uniqueness constraint and we regenerate, up to
// the configured attempt budget.
func (s *GuestAccessService) Issue(ctx context.Context, req IssueRequest) (*domain.GuestCredential, error) {
	creator, err := s.residents.GetByID(ctx, req.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("resolve creator: %w", err)
	}
	if creator.IsBlocked {
		return nil, domain.ErrNotAuthorized
	}

	if req.DurationMinutes < s.config.MinDurationMinutes || req.DurationMinutes > s.config.MaxDurationMinutes {
		return nil, fmt.Errorf("%w: %d minutes (allowed %d..%d)",
			domain.ErrInvalidDuration, req.DurationMinutes,
			s.config.MinDurationMinutes, s.config.MaxDurationMinutes)
	}

	now := s.clock.Now()

	for attempt := 1; attempt <= s.config.CodeGenerationAttempts; attempt++ {
		code, err := generateAccessCode(s.config.AccessCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate access code: %w", err)
		}

		cred := &domain.GuestCredential{
			ID:              uuid.NewString(),
			ComplexID:       req.ComplexID,
			CreatedBy:       req.CreatorID,
			GuestName:       req.GuestName,
			GuestPhone:      req.GuestPhone,
			VehicleNumber:   req.VehicleNumber,
			AccessCode:      code,
			DurationMinutes: req.DurationMinutes,
			ExpiresAt:       now.Add(time.Duration(req.DurationMinutes) * time.Minute),
			Status:          domain.StatusPending,
			CreatedAt:       now,
		}

		err = s.creds.Create(ctx, cred)
		if err == nil {
			s.logger.Info("guest credential issued",
				slog.String("credential_id", cred.ID),
				slog.String("complex_id", cred.ComplexID),
				slog.Int("duration_minutes", cred.DurationMinutes),
			)
			metrics.ObserveIssued()
			return cred, nil
		}
		if errors.Is(err, domain.ErrCodeTaken) {
			s.logger.Debug("access code collision, regenerating", slog.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	return nil, domain.ErrCodeSpaceExhausted
}

// Cancel revokes a non-terminal credential. Allowed for the creator and for
// the complex chairman; the conditional update competes with the validator
// and the monitor, and losing that race is reported as ErrStatusConflict.
func (s *GuestAccessService) Cancel(ctx context.Context, credentialID, byUserID string) error {
	cred, err := s.creds.GetByID(ctx, credentialID)
	if err != nil {
		return err
	}

	if cred.CreatedBy != byUserID {
		caller, err := s.residents.GetByID(ctx, byUserID)
		if err != nil {
			return fmt.Errorf("resolve caller: %w", err)
		}
		if caller.Role != domain.RoleChairman || caller.ComplexID != cred.ComplexID {
			return domain.ErrNotAuthorized
		}
	}

	if _, err := s.creds.Cancel(ctx, credentialID); err != nil {
		return err
	}

	s.logger.Info("guest credential cancelled",
		slog.String("credential_id", credentialID),
		slog.String("by_user_id", byUserID),
	)
	return nil
}

// Get returns a status snapshot, scoped to the caller's complex
func (s *GuestAccessService) Get(ctx context.Context, credentialID, complexID string) (*domain.GuestCredential, error) {
	cred, err := s.creds.GetByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.ComplexID != complexID {
		return nil, domain.ErrNotFound
	}
	return cred, nil
}

// ListActive returns the non-terminal credentials of a complex
func (s *GuestAccessService) ListActive(ctx context.Context, complexID string) ([]*domain.GuestCredential, error) {
	return s.creds.ListCurrentByComplex(ctx, complexID)
}

// generateAccessCode produces a numeric code of the requested length,
// keypad-enterable at a barrier or intercom
func generateAccessCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	// Avoid a leading zero so codes read and dial as fixed-length numbers.
	if digits[0] == '0' {
		digits[0] = '1'
	}
	return string(digits), nil
}
