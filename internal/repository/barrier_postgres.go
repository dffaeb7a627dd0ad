package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/localhood/gatekeeper/internal/domain"
)

// PostgresBarrierRepository implements domain.BarrierRepository
type PostgresBarrierRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresBarrierRepository creates a new barrier repository
func NewPostgresBarrierRepository(db *sql.DB, logger *slog.Logger) *PostgresBarrierRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBarrierRepository{db: db, logger: logger}
}

// GetByID retrieves one barrier
func (r *PostgresBarrierRepository) GetByID(ctx context.Context, id string) (*domain.Barrier, error) {
	query := `
		SELECT id, complex_id, name, location, device_url, api_key, is_active
		FROM barriers WHERE id = $1
	`

	b := &domain.Barrier{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.ComplexID, &b.Name, &b.Location, &b.DeviceURL, &b.APIKey, &b.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get barrier", err)
	}
	return b, nil
}

// ListByComplex returns the barriers of a complex
func (r *PostgresBarrierRepository) ListByComplex(ctx context.Context, complexID string) ([]*domain.Barrier, error) {
	query := `
		SELECT id, complex_id, name, location, device_url, api_key, is_active
		FROM barriers WHERE complex_id = $1 ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, complexID)
	if err != nil {
		return nil, storageErr("list barriers", err)
	}
	defer rows.Close()

	var out []*domain.Barrier
	for rows.Next() {
		b := &domain.Barrier{}
		if err := rows.Scan(&b.ID, &b.ComplexID, &b.Name, &b.Location, &b.DeviceURL, &b.APIKey, &b.IsActive); err != nil {
			return nil, storageErr("list barriers", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list barriers", err)
	}
	return out, nil
}
