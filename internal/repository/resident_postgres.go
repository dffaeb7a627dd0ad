package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/localhood/gatekeeper/internal/domain"
)

const residentColumns = `id, complex_id, phone, full_name, password_hash, role, is_blocked, created_at`

// PostgresResidentRepository implements domain.ResidentRepository
type PostgresResidentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresResidentRepository creates a new resident repository
func NewPostgresResidentRepository(db *sql.DB, logger *slog.Logger) *PostgresResidentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresResidentRepository{db: db, logger: logger}
}

// GetByID retrieves a resident by ID
func (r *PostgresResidentRepository) GetByID(ctx context.Context, id string) (*domain.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByPhone retrieves a resident by phone number
func (r *PostgresResidentRepository) GetByPhone(ctx context.Context, phone string) (*domain.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE phone = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, phone))
}

// GetChairman returns the chairman of a complex
func (r *PostgresResidentRepository) GetChairman(ctx context.Context, complexID string) (*domain.Resident, error) {
	query := `SELECT ` + residentColumns + `
		FROM residents
		WHERE complex_id = $1 AND role = 'chairman'
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, complexID))
}

func (r *PostgresResidentRepository) scanOne(row *sql.Row) (*domain.Resident, error) {
	res := &domain.Resident{}
	err := row.Scan(
		&res.ID, &res.ComplexID, &res.Phone, &res.FullName,
		&res.PasswordHash, &res.Role, &res.IsBlocked, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get resident", err)
	}
	return res, nil
}
