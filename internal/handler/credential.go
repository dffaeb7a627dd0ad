package handler

import (
	"log/slog"
	"net/http"

	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/service"
)

// CredentialHandler serves a single credential: status lookup and
// cancellation, keyed by path id.
type CredentialHandler struct {
	guests *service.GuestAccessService
	logger *slog.Logger
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(guests *service.GuestAccessService, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{guests: guests, logger: logger}
}

// Get handles GET /api/v1/guest-access/{id} requests
func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	cred, err := h.guests.Get(r.Context(), id, claims.ComplexID)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, credentialResponse(cred))
}

// Cancel handles DELETE /api/v1/guest-access/{id} requests
func (h *CredentialHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.guests.Cancel(r.Context(), id, claims.UserID); err != nil {
		h.logger.Warn("cancel rejected",
			slog.String("credential_id", id),
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
