package handler

import (
	"log/slog"
	"net/http"

	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/service"
)

// GuestListHandler lists live credentials for the caller's complex
type GuestListHandler struct {
	guests *service.GuestAccessService
	logger *slog.Logger
}

// NewGuestListHandler creates a new guest list handler
func NewGuestListHandler(guests *service.GuestAccessService, logger *slog.Logger) *GuestListHandler {
	return &GuestListHandler{guests: guests, logger: logger}
}

// ServeHTTP handles GET /api/v1/guests requests
func (h *GuestListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	creds, err := h.guests.ListActive(r.Context(), claims.ComplexID)
	if err != nil {
		h.logger.Error("failed to list guests", slog.String("error", err.Error()))
		serviceError(w, err)
		return
	}

	items := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		items = append(items, credentialResponse(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{"guests": items})
}
