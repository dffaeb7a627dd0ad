package domain

import (
	"context"
	"time"
)

// CredentialStatus is the lifecycle state of a guest credential
type CredentialStatus string

const (
	StatusPending   CredentialStatus = "pending"   // issued, not yet used
	StatusActive    CredentialStatus = "active"    // guest entered, on the property
	StatusCompleted CredentialStatus = "completed" // guest exited
	StatusExpired   CredentialStatus = "expired"   // never used before the deadline
	StatusCancelled CredentialStatus = "cancelled" // revoked by creator or chairman
)

// IsTerminal reports whether no further status transition is permitted.
// Terminal credentials are kept for history and never mutated again, except
// for the one-shot notification flags.
func (s CredentialStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusCancelled
}

// GuestCredential represents one issued guest access pass
type GuestCredential struct {
	ID              string
	ComplexID       string
	CreatedBy       string // issuing resident
	GuestName       string
	GuestPhone      string
	VehicleNumber   string
	AccessCode      string // short code typed at the barrier keypad
	DurationMinutes int
	ExpiresAt       time.Time // CreatedAt + DurationMinutes, fixed at issuance
	EnteredAt       *time.Time
	ExitedAt        *time.Time
	Status          CredentialStatus
	OwnerNotified    bool
	ChairmanNotified bool
	OverstayNotified bool
	CreatedAt        time.Time
}

// NotificationFlag names one of the one-shot notification markers on a credential
type NotificationFlag string

const (
	FlagOwnerNotified    NotificationFlag = "owner_notified"
	FlagChairmanNotified NotificationFlag = "chairman_notified"
	FlagOverstayNotified NotificationFlag = "overstay_notified"
)

// CredentialRepository defines data access for guest credentials.
//
// Every status mutation is a conditional update guarded by the expected
// current status: implementations report a lost race as ErrStatusConflict
// (or a zero count for the bulk sweep) instead of overwriting. Create must
// enforce access-code uniqueness across non-terminal credentials and return
// ErrCodeTaken on a collision.
type CredentialRepository interface {
	Create(ctx context.Context, cred *GuestCredential) error
	GetByID(ctx context.Context, id string) (*GuestCredential, error)

	// FindCurrentByCode returns the credential holding the code in a
	// non-terminal status, or ErrNotFound.
	FindCurrentByCode(ctx context.Context, accessCode string) (*GuestCredential, error)

	// MarkEntered transitions pending -> active and stamps EnteredAt.
	MarkEntered(ctx context.Context, id string, at time.Time) (*GuestCredential, error)

	// MarkExited transitions active -> completed and stamps ExitedAt.
	MarkExited(ctx context.Context, id string, at time.Time) (*GuestCredential, error)

	// Cancel transitions pending or active -> cancelled.
	Cancel(ctx context.Context, id string) (*GuestCredential, error)

	// ExpirePending transitions every pending credential whose deadline has
	// passed to expired and returns how many rows moved. Credentials that a
	// concurrent entry scan already activated are left alone.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)

	// ListOverstayed returns active credentials whose guest entered more
	// than the threshold ago and has not been flagged yet. A zero threshold
	// means each credential's own requested duration.
	ListOverstayed(ctx context.Context, threshold time.Duration, now time.Time) ([]*GuestCredential, error)

	// SetNotified flips a one-shot notification flag. Returns false if the
	// flag was already set, so callers can keep notifications idempotent.
	SetNotified(ctx context.Context, id string, flag NotificationFlag) (bool, error)

	ListCurrentByComplex(ctx context.Context, complexID string) ([]*GuestCredential, error)
}

// Clock abstracts time for the issuer, validator and monitor so temporal
// rules can be tested without sleeping
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns wall-clock time in UTC
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}
