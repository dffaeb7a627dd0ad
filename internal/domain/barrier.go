package domain

import "context"

// Barrier is a physical access point. Read-mostly configuration: the
// validation flow reads it, never writes it.
type Barrier struct {
	ID        string
	ComplexID string
	Name      string
	Location  string
	DeviceURL string // device endpoint for the open command
	APIKey    string // shared secret presented by the barrier adapter
	IsActive  bool
}

// BarrierRepository defines read access to barrier configuration
type BarrierRepository interface {
	GetByID(ctx context.Context, id string) (*Barrier, error)
	ListByComplex(ctx context.Context, complexID string) ([]*Barrier, error)
}

// BarrierOpener drives the physical device. Invoked only after a Granted
// decision, never inside the validation critical section.
type BarrierOpener interface {
	Open(ctx context.Context, barrier *Barrier) error
}
