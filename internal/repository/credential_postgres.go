package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/localhood/gatekeeper/internal/domain"
)

const credentialColumns = `id, complex_id, created_by, guest_name, guest_phone,
	vehicle_number, access_code, duration_minutes, expires_at, entered_at,
	exited_at, status, owner_notified, chairman_notified, overstay_notified,
	created_at`

// PostgresCredentialRepository implements domain.CredentialRepository.
//
// Status is only ever mutated through single-statement conditional updates:
// the WHERE clause carries the expected current status and the affected-row
// count is the race verdict. No transaction or row lock is needed beyond
// that.
type PostgresCredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCredentialRepository creates a new credential repository
func NewPostgresCredentialRepository(db *sql.DB, logger *slog.Logger) *PostgresCredentialRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCredentialRepository{db: db, logger: logger}
}

// Create inserts a new credential. The partial unique index on access_code
// converts a live-code collision into domain.ErrCodeTaken.
func (r *PostgresCredentialRepository) Create(ctx context.Context, cred *domain.GuestCredential) error {
	query := `
		INSERT INTO guest_credentials
			(id, complex_id, created_by, guest_name, guest_phone, vehicle_number,
			 access_code, duration_minutes, expires_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		cred.ID, cred.ComplexID, cred.CreatedBy,
		cred.GuestName, cred.GuestPhone, cred.VehicleNumber,
		cred.AccessCode, cred.DurationMinutes, cred.ExpiresAt,
		cred.Status, cred.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrCodeTaken
		}
		return storageErr("create credential", err)
	}
	return nil
}

// GetByID retrieves a credential by ID
func (r *PostgresCredentialRepository) GetByID(ctx context.Context, id string) (*domain.GuestCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM guest_credentials WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "get credential")
}

// FindCurrentByCode looks up the credential holding the code in a
// non-terminal status.
func (r *PostgresCredentialRepository) FindCurrentByCode(ctx context.Context, accessCode string) (*domain.GuestCredential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM guest_credentials
		WHERE access_code = $1 AND status IN ('pending', 'active')`
	return r.scanOne(r.db.QueryRowContext(ctx, query, accessCode), "find credential by code")
}

// MarkEntered transitions pending -> active
func (r *PostgresCredentialRepository) MarkEntered(ctx context.Context, id string, at time.Time) (*domain.GuestCredential, error) {
	query := `UPDATE guest_credentials
		SET status = 'active', entered_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + credentialColumns
	return r.scanTransition(ctx, query, id, at)
}

// MarkExited transitions active -> completed
func (r *PostgresCredentialRepository) MarkExited(ctx context.Context, id string, at time.Time) (*domain.GuestCredential, error) {
	query := `UPDATE guest_credentials
		SET status = 'completed', exited_at = $2
		WHERE id = $1 AND status = 'active'
		RETURNING ` + credentialColumns
	return r.scanTransition(ctx, query, id, at)
}

// Cancel transitions pending or active -> cancelled
func (r *PostgresCredentialRepository) Cancel(ctx context.Context, id string) (*domain.GuestCredential, error) {
	query := `UPDATE guest_credentials
		SET status = 'cancelled'
		WHERE id = $1 AND status IN ('pending', 'active')
		RETURNING ` + credentialColumns

	cred, err := r.scanOne(r.db.QueryRowContext(ctx, query, id), "cancel credential")
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrStatusConflict
	}
	return cred, err
}

// ExpirePending sweeps every overdue pending credential to expired
func (r *PostgresCredentialRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE guest_credentials
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, storageErr("expire pending credentials", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("expire pending credentials", err)
	}
	return n, nil
}

// ListOverstayed returns active, unflagged credentials past the threshold.
// A zero threshold compares against each credential's own duration, the
// same rule the sweep query in the original platform used.
func (r *PostgresCredentialRepository) ListOverstayed(ctx context.Context, threshold time.Duration, now time.Time) ([]*domain.GuestCredential, error) {
	var (
		query string
		args  []any
	)
	if threshold > 0 {
		query = `SELECT ` + credentialColumns + `
			FROM guest_credentials
			WHERE status = 'active'
			  AND overstay_notified = FALSE
			  AND entered_at IS NOT NULL
			  AND entered_at + $2 * INTERVAL '1 second' < $1`
		args = []any{now, int64(threshold.Seconds())}
	} else {
		query = `SELECT ` + credentialColumns + `
			FROM guest_credentials
			WHERE status = 'active'
			  AND overstay_notified = FALSE
			  AND entered_at IS NOT NULL
			  AND entered_at + duration_minutes * INTERVAL '1 minute' < $1`
		args = []any{now}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list overstayed credentials", err)
	}
	defer rows.Close()
	return r.scanMany(rows, "list overstayed credentials")
}

// SetNotified flips a one-shot notification flag, reporting whether this
// call was the one that flipped it.
func (r *PostgresCredentialRepository) SetNotified(ctx context.Context, id string, flag domain.NotificationFlag) (bool, error) {
	var column string
	switch flag {
	case domain.FlagOwnerNotified:
		column = "owner_notified"
	case domain.FlagChairmanNotified:
		column = "chairman_notified"
	case domain.FlagOverstayNotified:
		column = "overstay_notified"
	default:
		return false, fmt.Errorf("unknown notification flag %q", flag)
	}

	query := fmt.Sprintf(`UPDATE guest_credentials
		SET %s = TRUE
		WHERE id = $1 AND %s = FALSE`, column, column)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, storageErr("set notification flag", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("set notification flag", err)
	}
	return n == 1, nil
}

// ListCurrentByComplex returns the non-terminal credentials of a complex,
// newest first.
func (r *PostgresCredentialRepository) ListCurrentByComplex(ctx context.Context, complexID string) ([]*domain.GuestCredential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM guest_credentials
		WHERE complex_id = $1 AND status IN ('pending', 'active')
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, complexID)
	if err != nil {
		return nil, storageErr("list current credentials", err)
	}
	defer rows.Close()
	return r.scanMany(rows, "list current credentials")
}

func (r *PostgresCredentialRepository) scanTransition(ctx context.Context, query, id string, at time.Time) (*domain.GuestCredential, error) {
	cred, err := r.scanOne(r.db.QueryRowContext(ctx, query, id, at), "transition credential")
	if errors.Is(err, domain.ErrNotFound) {
		// Zero rows matched the guard: someone else won the race.
		return nil, domain.ErrStatusConflict
	}
	return cred, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresCredentialRepository) scanOne(row rowScanner, op string) (*domain.GuestCredential, error) {
	cred := &domain.GuestCredential{}
	var enteredAt, exitedAt sql.NullTime

	err := row.Scan(
		&cred.ID, &cred.ComplexID, &cred.CreatedBy,
		&cred.GuestName, &cred.GuestPhone, &cred.VehicleNumber,
		&cred.AccessCode, &cred.DurationMinutes, &cred.ExpiresAt,
		&enteredAt, &exitedAt, &cred.Status,
		&cred.OwnerNotified, &cred.ChairmanNotified, &cred.OverstayNotified,
		&cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr(op, err)
	}

	if enteredAt.Valid {
		cred.EnteredAt = &enteredAt.Time
	}
	if exitedAt.Valid {
		cred.ExitedAt = &exitedAt.Time
	}
	return cred, nil
}

func (r *PostgresCredentialRepository) scanMany(rows *sql.Rows, op string) ([]*domain.GuestCredential, error) {
	var out []*domain.GuestCredential
	for rows.Next() {
		cred, err := r.scanOne(rows, op)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}
