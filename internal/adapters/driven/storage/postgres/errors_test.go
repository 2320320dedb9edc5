package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "records_content_hash_key"}, domain.ErrAlreadyExists},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, domain.ErrSyncInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err, "op"), tt.want)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	assert.NoError(t, mapError(nil, "op"))

	boom := errors.New("connection refused")
	err := mapError(boom, "inserting record")
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "inserting record: connection refused")

	other := &pgconn.PgError{Code: "23503"}
	assert.False(t, errors.Is(mapError(other, "op"), domain.ErrAlreadyExists))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isDuplicateKey(errors.New("23505")))
}

func TestOpen_RequiresURL(t *testing.T) {
	_, err := Open(t.Context(), Config{}, nil)
	assert.Error(t, err)
}
