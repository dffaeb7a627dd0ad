package domain

import (
	"context"
	"time"
)

// Role of a resident within a complex
type Role string

const (
	RoleResident Role = "resident"
	RoleChairman Role = "chairman"
)

// Resident is a user of the complex who may issue and cancel guest passes
type Resident struct {
	ID           string
	ComplexID    string
	Phone        string
	FullName     string
	PasswordHash string
	Role         Role
	IsBlocked    bool
	CreatedAt    time.Time
}

// ResidentRepository defines data access for residents
type ResidentRepository interface {
	GetByID(ctx context.Context, id string) (*Resident, error)
	GetByPhone(ctx context.Context, phone string) (*Resident, error)
	// Chairman lookup for the complex, ErrNotFound if none is registered.
	GetChairman(ctx context.Context, complexID string) (*Resident, error)
}

// EventKind classifies outgoing notifications
type EventKind string

const (
	EventGuestEntered  EventKind = "guest_entered"
	EventGuestOverstay EventKind = "guest_overstay"
)

// Notifier is the fire-and-forget notification bridge. A failed delivery is
// the implementation's problem to log; callers never let it affect an
// authorization outcome.
type Notifier interface {
	Notify(ctx context.Context, targetUserID string, kind EventKind, cred *GuestCredential) error
}
