package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	// Mirror stores return it when a content hash is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown file or MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a reconciliation is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrNotConfigured indicates an optional collaborator is missing.
	ErrNotConfigured = errors.New("not configured")

	// ErrRateLimited indicates a remote API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates remote credentials were rejected.
	ErrAuthInvalid = errors.New("authentication invalid")
)
