package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/service"
)

// IssueGuestRequest represents the request to issue guest access
type IssueGuestRequest struct {
	GuestName       string `json:"guestName"`
	GuestPhone      string `json:"guestPhone,omitempty"`
	VehicleNumber   string `json:"vehicleNumber,omitempty"`
	DurationMinutes int    `json:"durationMinutes"`
}

// IssueGuestHandler handles guest credential issuance
type IssueGuestHandler struct {
	guests *service.GuestAccessService
	logger *slog.Logger
}

// NewIssueGuestHandler creates a new issue handler
func NewIssueGuestHandler(guests *service.GuestAccessService, logger *slog.Logger) *IssueGuestHandler {
	return &IssueGuestHandler{guests: guests, logger: logger}
}

// ServeHTTP handles POST /api/v1/barrier/guest-access requests
func (h *IssueGuestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IssueGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode issue request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.GuestName == "" {
		writeError(w, http.StatusBadRequest, "guestName is required")
		return
	}

	cred, err := h.guests.Issue(r.Context(), service.IssueRequest{
		CreatorID:       claims.UserID,
		ComplexID:       claims.ComplexID,
		GuestName:       req.GuestName,
		GuestPhone:      req.GuestPhone,
		VehicleNumber:   req.VehicleNumber,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		h.logger.Error("failed to issue credential",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, credentialResponse(cred))
}
