// Package test wires a full HTTP stack over the in-memory stores for
// end-to-end exercises of the guest access flows.
package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/handler"
	"github.com/localhood/gatekeeper/internal/infrastructure/barrier"
	"github.com/localhood/gatekeeper/internal/infrastructure/logger"
	"github.com/localhood/gatekeeper/internal/repository/memory"
	"github.com/localhood/gatekeeper/internal/security/auth"
	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/service"
	"github.com/localhood/gatekeeper/internal/worker"
	"github.com/localhood/gatekeeper/pkg/config"
)

const (
	residentPhone = "+70000000002"
	demoPassword  = "Password123"
	barrierKey    = "gate-key"
)

// TestServerHelper is a running server plus handles into its stores so a
// test can reach behind the API when it needs to.
type TestServerHelper struct {
	server    *httptest.Server
	Creds     *memory.CredentialStore
	Logs      *memory.AccessLogStore
	Monitor   *worker.Monitor
	BarrierID string
}

// NewTestServer builds the full handler stack: middleware chain, routes
// and services over in-memory stores.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := logger.NewLogger("error", "test")
	cfg := &config.Config{
		JWTSecret:              "test-secret",
		TokenLifetime:          time.Hour,
		MinDurationMinutes:     1,
		MaxDurationMinutes:     720,
		AccessCodeLength:       6,
		CodeGenerationAttempts: 5,
	}

	creds := memory.NewCredentialStore()
	logs := memory.NewAccessLogStore()
	barriers := memory.NewBarrierStore()
	residents := memory.NewResidentStore()

	hash, err := service.HashPassword(demoPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	residents.Put(&domain.Resident{
		ID:           "resident-1",
		ComplexID:    "complex-1",
		Phone:        residentPhone,
		FullName:     "Test Resident",
		PasswordHash: hash,
		Role:         domain.RoleResident,
	})
	gate := &domain.Barrier{
		ID:        "barrier-1",
		ComplexID: "complex-1",
		Name:      "Main Gate",
		APIKey:    barrierKey,
		IsActive:  true,
	}
	barriers.Put(gate)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "gatekeeper")
	guestService := service.NewGuestAccessService(creds, residents, nil, log, cfg)
	validationService := service.NewValidationService(creds, logs, barriers, residents, nil, nil, nil, log)
	authService := service.NewAuthService(residents, tokenManager, cfg.TokenLifetime, log)
	opener := barrier.NewClient(log)

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/auth/login", handler.NewLoginHandler(authService, log))
	mux.Handle("POST /api/v1/barrier/guest-access", handler.NewIssueGuestHandler(guestService, log))
	credentialHandler := handler.NewCredentialHandler(guestService, log)
	mux.HandleFunc("GET /api/v1/guest-access/{id}", credentialHandler.Get)
	mux.HandleFunc("DELETE /api/v1/guest-access/{id}", credentialHandler.Cancel)
	mux.Handle("GET /api/v1/guests", handler.NewGuestListHandler(guestService, log))
	mux.Handle("GET /api/v1/barrier/history", handler.NewHistoryHandler(validationService, log))
	mux.Handle("POST /api/v1/barrier/open", handler.NewOpenBarrierHandler(validationService, opener, log))
	mux.Handle("POST /api/v1/barrier/entry", handler.NewValidateHandler(validationService, barriers, opener, domain.ActionEntry, log))
	mux.Handle("POST /api/v1/barrier/exit", handler.NewValidateHandler(validationService, barriers, opener, domain.ActionExit, log))
	healthHandler := handler.NewHealthHandler(nil, nil, log)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	root := middleware.JWTMiddleware(tokenManager, log)(mux)

	return &TestServerHelper{
		server:    httptest.NewServer(root),
		Creds:     creds,
		Logs:      logs,
		Monitor:   worker.NewMonitor(creds, nil, nil, log, time.Minute, 0),
		BarrierID: gate.ID,
	}
}

// URL returns the base URL of the test server
func (h *TestServerHelper) URL() string {
	return h.server.URL
}

// Close shuts down the test server
func (h *TestServerHelper) Close() {
	h.server.Close()
}

// Sweep runs one monitor pass against the server's credential store
func (h *TestServerHelper) Sweep() {
	h.Monitor.RunSweep(context.Background())
}

// Login authenticates the seeded resident and returns a bearer token
func (h *TestServerHelper) Login(t *testing.T) string {
	t.Helper()

	resp := h.PostJSON(t, "/api/v1/auth/login", "", map[string]string{
		"phone":    residentPhone,
		"password": demoPassword,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var result struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Token == "" {
		t.Fatalf("login returned no token")
	}
	return result.Token
}

// PostJSON posts a JSON body, optionally with a bearer token
func (h *TestServerHelper) PostJSON(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	return h.do(t, http.MethodPost, path, token, "", body)
}

// Scan posts one barrier scan with the barrier's shared key
func (h *TestServerHelper) Scan(t *testing.T, action, code string) *http.Response {
	t.Helper()
	return h.do(t, http.MethodPost, "/api/v1/barrier/"+action, "", barrierKey, map[string]string{
		"accessCode": code,
		"barrierId":  h.BarrierID,
	})
}

// Do performs an authorized request without a body
func (h *TestServerHelper) Do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	return h.do(t, method, path, token, "", nil)
}

func (h *TestServerHelper) do(t *testing.T, method, path, token, key string, body any) *http.Response {
	t.Helper()

	var req *http.Request
	var err error
	if body != nil {
		data, _ := json.Marshal(body)
		req, err = http.NewRequest(method, h.server.URL+path, bytes.NewReader(data))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequest(method, h.server.URL+path, nil)
	}
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if key != "" {
		req.Header.Set("X-Barrier-Key", key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// DecodeBody decodes a JSON response body into a map
func DecodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}
