// Package handler contains the HTTP surface of the service. Handlers stay
// thin: decode, call a service, map domain errors to status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
)

// CredentialResponse is the wire shape of a guest credential
type CredentialResponse struct {
	ID              string     `json:"id"`
	GuestName       string     `json:"guestName"`
	GuestPhone      string     `json:"guestPhone,omitempty"`
	VehicleNumber   string     `json:"vehicleNumber,omitempty"`
	AccessCode      string     `json:"accessCode"`
	DurationMinutes int        `json:"durationMinutes"`
	Status          string     `json:"status"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	EnteredAt       *time.Time `json:"enteredAt,omitempty"`
	ExitedAt        *time.Time `json:"exitedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func credentialResponse(c *domain.GuestCredential) CredentialResponse {
	return CredentialResponse{
		ID:              c.ID,
		GuestName:       c.GuestName,
		GuestPhone:      c.GuestPhone,
		VehicleNumber:   c.VehicleNumber,
		AccessCode:      c.AccessCode,
		DurationMinutes: c.DurationMinutes,
		Status:          string(c.Status),
		ExpiresAt:       c.ExpiresAt,
		EnteredAt:       c.EnteredAt,
		ExitedAt:        c.ExitedAt,
		CreatedAt:       c.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serviceError maps domain sentinels onto HTTP statuses. Unrecognized
// errors become a generic 500 so internals never leak to the caller.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, domain.ErrStatusConflict):
		writeError(w, http.StatusConflict, "credential state changed")
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		writeError(w, http.StatusServiceUnavailable, "could not allocate access code")
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
