package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/repository/memory"
	"github.com/localhood/gatekeeper/internal/security/auth"
	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/service"
	"github.com/localhood/gatekeeper/pkg/config"
)

func withClaims(r *http.Request, userID, complexID string) *http.Request {
	claims := &auth.Claims{UserID: userID, ComplexID: complexID}
	ctx := context.WithValue(r.Context(), middleware.ClaimsContextKey{}, claims)
	return r.WithContext(ctx)
}

func newGuestService(t *testing.T) (*service.GuestAccessService, *memory.CredentialStore) {
	t.Helper()

	creds := memory.NewCredentialStore()
	residents := memory.NewResidentStore()
	residents.Put(&domain.Resident{
		ID:        "resident-1",
		ComplexID: "complex-1",
		Role:      domain.RoleResident,
	})

	cfg := &config.Config{
		MinDurationMinutes:     1,
		MaxDurationMinutes:     720,
		AccessCodeLength:       6,
		CodeGenerationAttempts: 5,
	}
	return service.NewGuestAccessService(creds, residents, nil, testLogger(), cfg), creds
}

func TestIssueHandlerCreatesCredential(t *testing.T) {
	guests, _ := newGuestService(t)
	h := NewIssueGuestHandler(guests, testLogger())

	body, _ := json.Marshal(IssueGuestRequest{GuestName: "Ivan Petrov", DurationMinutes: 120})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/barrier/guest-access", bytes.NewReader(body)), "resident-1", "complex-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CredentialResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.ID == "" || resp.AccessCode == "" || resp.Status != "pending" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestIssueHandlerRejectsBadDuration(t *testing.T) {
	guests, _ := newGuestService(t)
	h := NewIssueGuestHandler(guests, testLogger())

	body, _ := json.Marshal(IssueGuestRequest{GuestName: "Ivan", DurationMinutes: 5000})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/barrier/guest-access", bytes.NewReader(body)), "resident-1", "complex-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIssueHandlerRequiresClaims(t *testing.T) {
	guests, _ := newGuestService(t)
	h := NewIssueGuestHandler(guests, testLogger())

	body, _ := json.Marshal(IssueGuestRequest{GuestName: "Ivan", DurationMinutes: 60})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/barrier/guest-access", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", rec.Code)
	}
}

func TestCredentialHandlerStatusAndCancel(t *testing.T) {
	guests, _ := newGuestService(t)
	h := NewCredentialHandler(guests, testLogger())

	cred, err := guests.Issue(context.Background(), service.IssueRequest{
		CreatorID:       "resident-1",
		ComplexID:       "complex-1",
		GuestName:       "Ivan",
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/guest-access/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/guest-access/{id}", h.Cancel)

	// Status lookup.
	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/guest-access/"+cred.ID, nil), "resident-1", "complex-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}

	// Cross-complex lookup reads as not found.
	req = withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/guest-access/"+cred.ID, nil), "resident-9", "complex-9")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-complex status: expected 404, got %d", rec.Code)
	}

	// Cancel by creator.
	req = withClaims(httptest.NewRequest(http.MethodDelete, "/api/v1/guest-access/"+cred.ID, nil), "resident-1", "complex-1")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Repeat cancel conflicts.
	req = withClaims(httptest.NewRequest(http.MethodDelete, "/api/v1/guest-access/"+cred.ID, nil), "resident-1", "complex-1")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat cancel: expected 409, got %d", rec.Code)
	}
}
