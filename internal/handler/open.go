package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/service"
)

// OpenBarrierRequest names the barrier a resident wants opened
type OpenBarrierRequest struct {
	BarrierID string `json:"barrierId"`
}

// OpenBarrierHandler lets an authenticated resident open a barrier in
// their own complex without a credential.
type OpenBarrierHandler struct {
	validation *service.ValidationService
	opener     domain.BarrierOpener
	logger     *slog.Logger
}

// NewOpenBarrierHandler creates a new open handler
func NewOpenBarrierHandler(validation *service.ValidationService, opener domain.BarrierOpener, logger *slog.Logger) *OpenBarrierHandler {
	return &OpenBarrierHandler{validation: validation, opener: opener, logger: logger}
}

// ServeHTTP handles POST /api/v1/barrier/open requests
func (h *OpenBarrierHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req OpenBarrierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.BarrierID == "" {
		writeError(w, http.StatusBadRequest, "barrierId is required")
		return
	}

	barrier, err := h.validation.ResidentOpen(r.Context(), claims.UserID, claims.ComplexID, req.BarrierID)
	if err != nil {
		h.logger.Warn("resident open rejected",
			slog.String("user_id", claims.UserID),
			slog.String("barrier_id", req.BarrierID),
			slog.String("error", err.Error()),
		)
		serviceError(w, err)
		return
	}

	if err := h.opener.Open(r.Context(), barrier); err != nil {
		// The passage is already on the ledger; the device is the only
		// thing that failed.
		h.logger.Error("barrier device open failed",
			slog.String("barrier_id", barrier.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "barrier device unreachable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "opened"})
}
