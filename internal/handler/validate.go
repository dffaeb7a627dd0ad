package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/service"
)

// ValidateRequest is the payload a barrier adapter posts on each scan
type ValidateRequest struct {
	AccessCode    string `json:"accessCode"`
	BarrierID     string `json:"barrierId"`
	VehicleNumber string `json:"vehicleNumber,omitempty"`
}

// ValidateResponse is the decision returned to the adapter
type ValidateResponse struct {
	Granted      bool   `json:"granted"`
	Reason       string `json:"reason,omitempty"`
	GuestName    string `json:"guestName,omitempty"`
	CredentialID string `json:"credentialId,omitempty"`
}

// ValidateHandler is the scan endpoint for barrier adapters. It is not
// behind JWT auth; each barrier authenticates with its own shared key.
type ValidateHandler struct {
	validation *service.ValidationService
	barriers   domain.BarrierRepository
	opener     domain.BarrierOpener
	action     domain.BarrierAction
	logger     *slog.Logger
}

// NewValidateHandler creates a scan handler bound to one direction
func NewValidateHandler(
	validation *service.ValidationService,
	barriers domain.BarrierRepository,
	opener domain.BarrierOpener,
	action domain.BarrierAction,
	logger *slog.Logger,
) *ValidateHandler {
	return &ValidateHandler{
		validation: validation,
		barriers:   barriers,
		opener:     opener,
		action:     action,
		logger:     logger,
	}
}

// ServeHTTP handles POST /api/v1/barrier/entry and /api/v1/barrier/exit
func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.AccessCode == "" || req.BarrierID == "" {
		writeError(w, http.StatusBadRequest, "accessCode and barrierId required")
		return
	}

	if !h.authenticate(r, req.BarrierID) {
		writeError(w, http.StatusUnauthorized, "unknown barrier key")
		return
	}

	decision, err := h.validation.Validate(r.Context(), service.ValidateRequest{
		AccessCode:    req.AccessCode,
		BarrierID:     req.BarrierID,
		Action:        h.action,
		VehicleNumber: req.VehicleNumber,
	})
	if err != nil {
		// Infrastructure failure is not a denial: the adapter must be able
		// to tell "no" apart from "could not decide".
		h.logger.Error("validation unavailable",
			slog.String("barrier_id", req.BarrierID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "validation unavailable")
		return
	}

	if !decision.Granted {
		writeJSON(w, http.StatusForbidden, ValidateResponse{
			Granted: false,
			Reason:  string(decision.Reason),
		})
		return
	}

	if err := h.opener.Open(r.Context(), decision.Barrier); err != nil {
		// The transition is already durable; report the grant and let the
		// adapter retry its local relay.
		h.logger.Error("barrier device open failed",
			slog.String("barrier_id", decision.Barrier.ID),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, ValidateResponse{
		Granted:      true,
		GuestName:    decision.Credential.GuestName,
		CredentialID: decision.Credential.ID,
	})
}

// authenticate matches the X-Barrier-Key header against the configured
// key of the barrier named in the request.
func (h *ValidateHandler) authenticate(r *http.Request, barrierID string) bool {
	key := r.Header.Get("X-Barrier-Key")
	if key == "" {
		return false
	}
	barrier, err := h.barriers.GetByID(r.Context(), barrierID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("barrier lookup failed", slog.String("error", err.Error()))
		}
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(barrier.APIKey)) == 1
}
