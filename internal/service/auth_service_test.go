package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/repository/memory"
	"github.com/localhood/gatekeeper/internal/security/auth"
)

func newAuthFixture(t *testing.T) (*AuthService, *memory.ResidentStore, *auth.TokenManager) {
	t.Helper()

	hash, err := HashPassword("Password123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	residents := memory.NewResidentStore()
	residents.Put(&domain.Resident{
		ID:           "resident-1",
		ComplexID:    "complex-1",
		Phone:        "+70000000002",
		PasswordHash: hash,
		Role:         domain.RoleResident,
	})
	residents.Put(&domain.Resident{
		ID:           "blocked-1",
		ComplexID:    "complex-1",
		Phone:        "+70000000003",
		PasswordHash: hash,
		Role:         domain.RoleResident,
		IsBlocked:    true,
	})

	tm := auth.NewTokenManager("test-secret", "gatekeeper")
	return NewAuthService(residents, tm, time.Hour, testLogger()), residents, tm
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, _, tm := newAuthFixture(t)

	result, err := svc.Login(context.Background(), "+70000000002", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected a token")
	}
	if result.Role != domain.RoleResident {
		t.Fatalf("expected resident role, got %s", result.Role)
	}

	claims, err := tm.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("token did not validate: %v", err)
	}
	if claims.UserID != "resident-1" || claims.ComplexID != "complex-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		phone    string
		password string
	}{
		{"unknown phone", "+79999999999", "Password123"},
		{"wrong password", "+70000000002", "wrong"},
		{"blocked resident", "+70000000003", "Password123"},
	}
	for _, tc := range cases {
		if _, err := svc.Login(ctx, tc.phone, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", tc.name, err)
		}
	}
}
