package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/service"
)

// HistoryEntry is one audit record as served over the API
type HistoryEntry struct {
	ID            string    `json:"id"`
	BarrierID     string    `json:"barrierId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	CredentialID  string    `json:"credentialId,omitempty"`
	Action        string    `json:"action"`
	VehicleNumber string    `json:"vehicleNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HistoryHandler serves the barrier passage ledger, newest first
type HistoryHandler struct {
	validation *service.ValidationService
	logger     *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(validation *service.ValidationService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{validation: validation, logger: logger}
}

// ServeHTTP handles GET /api/v1/barrier/history requests
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.validation.History(r.Context(), claims.ComplexID, limit, offset)
	if err != nil {
		h.logger.Error("failed to load history", slog.String("error", err.Error()))
		serviceError(w, err)
		return
	}

	items := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryEntry{
			ID:            e.ID,
			BarrierID:     e.BarrierID,
			UserID:        e.UserID,
			CredentialID:  e.CredentialID,
			Action:        string(e.Action),
			VehicleNumber: e.VehicleNumber,
			CreatedAt:     e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}
