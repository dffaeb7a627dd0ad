package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/infrastructure/barrier"
	"github.com/localhood/gatekeeper/internal/repository/memory"
	"github.com/localhood/gatekeeper/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scanFixture struct {
	creds    *memory.CredentialStore
	barriers domain.BarrierRepository
	handler  *ValidateHandler
	code     string
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()

	creds := memory.NewCredentialStore()
	logs := memory.NewAccessLogStore()
	barriers := memory.NewBarrierStore()
	residents := memory.NewResidentStore()

	residents.Put(&domain.Resident{
		ID:        "resident-1",
		ComplexID: "complex-1",
		Role:      domain.RoleResident,
	})
	barriers.Put(&domain.Barrier{
		ID:        "barrier-1",
		ComplexID: "complex-1",
		Name:      "Main Gate",
		APIKey:    "gate-key",
		IsActive:  true,
	})

	now := time.Now().UTC()
	cred := &domain.GuestCredential{
		ID:              "cred-1",
		ComplexID:       "complex-1",
		CreatedBy:       "resident-1",
		GuestName:       "Ivan Petrov",
		AccessCode:      "482913",
		DurationMinutes: 60,
		ExpiresAt:       now.Add(time.Hour),
		Status:          domain.StatusPending,
		CreatedAt:       now,
	}
	if err := creds.Create(context.Background(), cred); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	validation := service.NewValidationService(creds, logs, barriers, residents, nil, nil, nil, testLogger())
	opener := barrier.NewClient(testLogger())
	h := NewValidateHandler(validation, barriers, opener, domain.ActionEntry, testLogger())

	return &scanFixture{creds: creds, barriers: barriers, handler: h, code: cred.AccessCode}
}

func scan(t *testing.T, h http.Handler, body ValidateRequest, key string) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/barrier/entry", bytes.NewReader(data))
	if key != "" {
		req.Header.Set("X-Barrier-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScanGranted(t *testing.T) {
	f := newScanFixture(t)

	rec := scan(t, f.handler, ValidateRequest{AccessCode: f.code, BarrierID: "barrier-1"}, "gate-key")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ValidateResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.Granted || resp.GuestName != "Ivan Petrov" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestScanDeniedMapsTo403(t *testing.T) {
	f := newScanFixture(t)

	rec := scan(t, f.handler, ValidateRequest{AccessCode: "000000", BarrierID: "barrier-1"}, "gate-key")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var resp ValidateResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Granted || resp.Reason != "code_invalid" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestScanRepeatDenied(t *testing.T) {
	f := newScanFixture(t)

	if rec := scan(t, f.handler, ValidateRequest{AccessCode: f.code, BarrierID: "barrier-1"}, "gate-key"); rec.Code != http.StatusOK {
		t.Fatalf("first scan: expected 200, got %d", rec.Code)
	}
	rec := scan(t, f.handler, ValidateRequest{AccessCode: f.code, BarrierID: "barrier-1"}, "gate-key")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("second scan: expected 403, got %d", rec.Code)
	}

	var resp ValidateResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Reason != "code_already_used" {
		t.Fatalf("expected code_already_used, got %s", resp.Reason)
	}
}

func TestScanWrongBarrierKey(t *testing.T) {
	f := newScanFixture(t)

	for _, key := range []string{"", "wrong-key"} {
		rec := scan(t, f.handler, ValidateRequest{AccessCode: f.code, BarrierID: "barrier-1"}, key)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("key %q: expected 401, got %d", key, rec.Code)
		}
	}

	// The rejected scans must not have consumed the credential.
	got, _ := f.creds.GetByID(context.Background(), "cred-1")
	if got.Status != domain.StatusPending {
		t.Fatalf("credential consumed by unauthenticated scan: %s", got.Status)
	}
}

func TestScanMissingFields(t *testing.T) {
	f := newScanFixture(t)

	rec := scan(t, f.handler, ValidateRequest{AccessCode: f.code}, "gate-key")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// failingCredentialStore simulates an unreachable database on the lookup
// path of the scan.
type failingCredentialStore struct {
	*memory.CredentialStore
}

func (s *failingCredentialStore) FindCurrentByCode(ctx context.Context, accessCode string) (*domain.GuestCredential, error) {
	return nil, domain.ErrStorageUnavailable
}

func TestScanStorageFailureIs503NotDenial(t *testing.T) {
	f := newScanFixture(t)

	failing := &failingCredentialStore{CredentialStore: f.creds}
	validation := service.NewValidationService(
		failing, memory.NewAccessLogStore(), f.barriers,
		memory.NewResidentStore(), nil, nil, nil, testLogger(),
	)
	h := NewValidateHandler(validation, f.barriers, barrier.NewClient(testLogger()), domain.ActionEntry, testLogger())

	rec := scan(t, h, ValidateRequest{AccessCode: f.code, BarrierID: "barrier-1"}, "gate-key")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

