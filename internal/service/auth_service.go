package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/security/auth"
)

// ErrInvalidCredentials is returned for any login failure; callers must not
// learn whether the phone or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates residents and mints API tokens
type AuthService struct {
	residents     domain.ResidentRepository
	tokens        *auth.TokenManager
	tokenLifetime time.Duration
	logger        *slog.Logger
}

// LoginResult carries a freshly minted token
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	ComplexID string
	Role      domain.Role
}

// NewAuthService creates a new auth service
func NewAuthService(residents domain.ResidentRepository, tokens *auth.TokenManager, tokenLifetime time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		residents:     residents,
		tokens:        tokens,
		tokenLifetime: tokenLifetime,
		logger:        logger,
	}
}

// Login verifies phone + password and returns a token
func (s *AuthService) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	resident, err := s.residents.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup resident: %w", err)
	}

	if resident.IsBlocked {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(resident.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(resident.ComplexID, resident.ID, string(resident.Role), s.tokenLifetime)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("resident logged in",
		slog.String("user_id", resident.ID),
		slog.String("complex_id", resident.ComplexID),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenLifetime),
		UserID:    resident.ID,
		ComplexID: resident.ComplexID,
		Role:      resident.Role,
	}, nil
}

// HashPassword produces a bcrypt hash for seeding and registration flows
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
