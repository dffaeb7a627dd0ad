package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist
	// or, for code lookups, only exists in a terminal status.
	ErrNotFound = errors.New("not found")

	// ErrCodeTaken signals an access-code collision with a non-terminal
	// credential. The issuer treats it as transient and regenerates.
	ErrCodeTaken = errors.New("access code already in use")

	// ErrStatusConflict is a lost conditional update: another caller
	// already moved the credential out of the expected status. The loss is
	// final, never retried.
	ErrStatusConflict = errors.New("credential status changed concurrently")

	// ErrInvalidDuration rejects issuance outside the configured bounds.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrCodeSpaceExhausted is returned after the issuer's bounded number
	// of regeneration attempts all collided.
	ErrCodeSpaceExhausted = errors.New("access code space exhausted")

	// ErrNotAuthorized rejects cancels by anyone who is neither the
	// creator nor the complex chairman, and issuance by blocked residents.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrStorageUnavailable wraps infrastructure failures of the
	// credential store. Retryable by the caller; the validation flow is
	// idempotent with respect to final state.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
