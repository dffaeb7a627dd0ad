package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so startup can run
// this unconditionally.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS residents (
			id UUID PRIMARY KEY,
			complex_id UUID NOT NULL,
			phone TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'resident',
			is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS barriers (
			id UUID PRIMARY KEY,
			complex_id UUID NOT NULL,
			name TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			device_url TEXT NOT NULL DEFAULT '',
			api_key TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS guest_credentials (
			id UUID PRIMARY KEY,
			complex_id UUID NOT NULL,
			created_by UUID NOT NULL,
			guest_name TEXT NOT NULL DEFAULT '',
			guest_phone TEXT NOT NULL DEFAULT '',
			vehicle_number TEXT NOT NULL DEFAULT '',
			access_code TEXT NOT NULL,
			duration_minutes INT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			entered_at TIMESTAMPTZ,
			exited_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'pending',
			owner_notified BOOLEAN NOT NULL DEFAULT FALSE,
			chairman_notified BOOLEAN NOT NULL DEFAULT FALSE,
			overstay_notified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// A retired code may be reused, but never while another credential
		// still holds it in a non-terminal status.
		`CREATE UNIQUE INDEX IF NOT EXISTS guest_credentials_code_live
			ON guest_credentials (access_code)
			WHERE status IN ('pending', 'active')`,
		`CREATE INDEX IF NOT EXISTS guest_credentials_sweep
			ON guest_credentials (status, expires_at)`,
		`CREATE TABLE IF NOT EXISTS barrier_access_logs (
			id UUID PRIMARY KEY,
			complex_id UUID NOT NULL,
			barrier_id UUID,
			user_id UUID,
			credential_id UUID,
			action TEXT NOT NULL,
			vehicle_number TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK ((user_id IS NULL) <> (credential_id IS NULL))
		)`,
		`CREATE INDEX IF NOT EXISTS barrier_access_logs_complex
			ON barrier_access_logs (complex_id, created_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
