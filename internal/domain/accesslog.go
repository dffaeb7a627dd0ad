package domain

import (
	"context"
	"time"
)

// BarrierAction is the direction of a passage
type BarrierAction string

const (
	ActionEntry BarrierAction = "entry"
	ActionExit  BarrierAction = "exit"
)

// AccessLogEntry is one append-only audit fact: who passed, when, where.
// Exactly one of UserID / CredentialID is populated — residents open the
// barrier directly, guests pass with a credential.
type AccessLogEntry struct {
	ID            string
	ComplexID     string
	BarrierID     string // empty for entries not originated at a barrier
	UserID        string
	CredentialID  string
	Action        BarrierAction
	VehicleNumber string
	CreatedAt     time.Time
}

// AccessLogRepository is the append-only audit ledger. There is deliberately
// no update or delete in this contract.
type AccessLogRepository interface {
	Record(ctx context.Context, entry *AccessLogEntry) error
	ListByComplex(ctx context.Context, complexID string, limit, offset int) ([]*AccessLogEntry, error)
}
