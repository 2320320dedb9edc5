package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// SQLSTATE codes we map.
const (
	pgErrUniqueViolation  = "23505"
	pgErrLockNotAvailable = "55P03"
)

// isSQLState reports whether err is a Postgres error with the given code.
func isSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// isDuplicateKey reports whether err is a unique constraint violation.
func isDuplicateKey(err error) bool { return isSQLState(err, pgErrUniqueViolation) }

// mapError translates pgx errors into domain sentinels, wrapping the
// rest with msg.
func mapError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case isDuplicateKey(err):
		return fmt.Errorf("%w: %s: %v", domain.ErrAlreadyExists, msg, err)
	case isSQLState(err, pgErrLockNotAvailable):
		return fmt.Errorf("%w: %s: %v", domain.ErrSyncInProgress, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
