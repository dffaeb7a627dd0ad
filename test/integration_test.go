package test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
)

// TestHealthEndpoint verifies the liveness endpoint
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/healthz")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected ok status, got %s", string(body))
	}
}

// TestGuestLifecycleEndToEnd walks the happy path over the wire: login,
// issue a pass, enter, exit, and read the ledger back.
func TestGuestLifecycleEndToEnd(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.Login(t)

	// Issue.
	resp := server.PostJSON(t, "/api/v1/barrier/guest-access", token, map[string]any{
		"guestName":       "Ivan Petrov",
		"vehicleNumber":   "A123BC",
		"durationMinutes": 120,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	issued := DecodeBody(t, resp)
	resp.Body.Close()

	code, _ := issued["accessCode"].(string)
	credID, _ := issued["id"].(string)
	if code == "" || credID == "" {
		t.Fatalf("issue returned incomplete credential: %v", issued)
	}

	// Entry scan.
	resp = server.Scan(t, "entry", code)
	AssertStatusCode(t, resp, http.StatusOK)
	entry := DecodeBody(t, resp)
	resp.Body.Close()
	if granted, _ := entry["granted"].(bool); !granted {
		t.Fatalf("entry not granted: %v", entry)
	}

	// Repeat entry is refused.
	resp = server.Scan(t, "entry", code)
	AssertStatusCode(t, resp, http.StatusForbidden)
	repeat := DecodeBody(t, resp)
	resp.Body.Close()
	if repeat["reason"] != "code_already_used" {
		t.Fatalf("expected code_already_used, got %v", repeat["reason"])
	}

	// Status shows active.
	resp = server.Do(t, http.MethodGet, "/api/v1/guest-access/"+credID, token)
	AssertStatusCode(t, resp, http.StatusOK)
	status := DecodeBody(t, resp)
	resp.Body.Close()
	if status["status"] != "active" {
		t.Fatalf("expected active, got %v", status["status"])
	}

	// Exit scan completes the visit.
	resp = server.Scan(t, "exit", code)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	// Exactly two passages on the ledger.
	resp = server.Do(t, http.MethodGet, "/api/v1/barrier/history", token)
	AssertStatusCode(t, resp, http.StatusOK)
	history := DecodeBody(t, resp)
	resp.Body.Close()
	entries, _ := history["history"].([]any)
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
}

// TestCancelledPassRefusedAtBarrier verifies a revoked code stops working
func TestCancelledPassRefusedAtBarrier(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.Login(t)

	resp := server.PostJSON(t, "/api/v1/barrier/guest-access", token, map[string]any{
		"guestName":       "Ivan Petrov",
		"durationMinutes": 60,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	issued := DecodeBody(t, resp)
	resp.Body.Close()

	resp = server.Do(t, http.MethodDelete, "/api/v1/guest-access/"+issued["id"].(string), token)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = server.Scan(t, "entry", issued["accessCode"].(string))
	AssertStatusCode(t, resp, http.StatusForbidden)
	denial := DecodeBody(t, resp)
	resp.Body.Close()
	if denial["reason"] != "code_invalid" {
		t.Fatalf("expected code_invalid, got %v", denial["reason"])
	}
}

// TestExpiredPassRefusedAfterSweep drives a pass over its deadline and runs
// the monitor, then confirms the barrier refuses it.
func TestExpiredPassRefusedAfterSweep(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.Login(t)

	resp := server.PostJSON(t, "/api/v1/barrier/guest-access", token, map[string]any{
		"guestName":       "Ivan Petrov",
		"durationMinutes": 1,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	issued := DecodeBody(t, resp)
	resp.Body.Close()
	credID := issued["id"].(string)

	// Push the deadline into the past behind the API's back, then sweep.
	cred, err := server.Creds.GetByID(context.Background(), credID)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	server.Creds.ExpirePending(context.Background(), cred.ExpiresAt.Add(time.Minute))
	server.Sweep()

	resp = server.Scan(t, "entry", issued["accessCode"].(string))
	AssertStatusCode(t, resp, http.StatusForbidden)
	resp.Body.Close()

	got, _ := server.Creds.GetByID(context.Background(), credID)
	if got.Status != domain.StatusExpired {
		t.Fatalf("expected expired, got %s", got.Status)
	}
}

// TestGuestListShowsLivePassesOnly verifies terminal passes drop off the list
func TestGuestListShowsLivePassesOnly(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.Login(t)

	var ids []string
	for i := 0; i < 2; i++ {
		resp := server.PostJSON(t, "/api/v1/barrier/guest-access", token, map[string]any{
			"guestName":       "Ivan Petrov",
			"durationMinutes": 60,
		})
		AssertStatusCode(t, resp, http.StatusCreated)
		issued := DecodeBody(t, resp)
		resp.Body.Close()
		ids = append(ids, issued["id"].(string))
	}

	resp := server.Do(t, http.MethodDelete, "/api/v1/guest-access/"+ids[0], token)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = server.Do(t, http.MethodGet, "/api/v1/guests", token)
	AssertStatusCode(t, resp, http.StatusOK)
	list := DecodeBody(t, resp)
	resp.Body.Close()

	guests, _ := list["guests"].([]any)
	if len(guests) != 1 {
		t.Fatalf("expected 1 live pass, got %d", len(guests))
	}
}

// TestAPIRequiresToken verifies the resident surface is closed without auth
func TestAPIRequiresToken(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp := server.Do(t, http.MethodGet, "/api/v1/guests", "")
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}
