package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/localhood/gatekeeper/internal/domain"
)

// PostgresAccessLogRepository implements domain.AccessLogRepository.
// Insert-only: neither this type nor the schema offers an update or delete
// path, so history cannot be rewritten through the application.
type PostgresAccessLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAccessLogRepository creates a new access log repository
func NewPostgresAccessLogRepository(db *sql.DB, logger *slog.Logger) *PostgresAccessLogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAccessLogRepository{db: db, logger: logger}
}

// Record appends one audit entry
func (r *PostgresAccessLogRepository) Record(ctx context.Context, entry *domain.AccessLogEntry) error {
	query := `
		INSERT INTO barrier_access_logs
			(id, complex_id, barrier_id, user_id, credential_id, action, vehicle_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ComplexID,
		nullable(entry.BarrierID), nullable(entry.UserID), nullable(entry.CredentialID),
		entry.Action, entry.VehicleNumber, entry.CreatedAt,
	)
	if err != nil {
		return storageErr("record access log", err)
	}
	return nil
}

// ListByComplex returns audit entries for a complex, newest first
func (r *PostgresAccessLogRepository) ListByComplex(ctx context.Context, complexID string, limit, offset int) ([]*domain.AccessLogEntry, error) {
	query := `
		SELECT id, complex_id, barrier_id, user_id, credential_id, action, vehicle_number, created_at
		FROM barrier_access_logs
		WHERE complex_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, complexID, limit, offset)
	if err != nil {
		return nil, storageErr("list access logs", err)
	}
	defer rows.Close()

	var out []*domain.AccessLogEntry
	for rows.Next() {
		entry := &domain.AccessLogEntry{}
		var barrierID, userID, credentialID sql.NullString

		err := rows.Scan(
			&entry.ID, &entry.ComplexID,
			&barrierID, &userID, &credentialID,
			&entry.Action, &entry.VehicleNumber, &entry.CreatedAt,
		)
		if err != nil {
			return nil, storageErr("list access logs", err)
		}
		entry.BarrierID = barrierID.String
		entry.UserID = userID.String
		entry.CredentialID = credentialID.String
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list access logs", err)
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
