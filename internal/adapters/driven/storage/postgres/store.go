package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
)

//go:embed schema.sql
var schema string

// Config configures the connection pool.
type Config struct {
	URL      string
	MaxConns int32
}

// Store is a Postgres-backed mirror store.
type Store struct {
	Pool *pgxpool.Pool
}

var newPool = pgxpool.NewWithConfig

// Open connects to Postgres. poolCfgMut may adjust the pool config
// before the pool is created.
func Open(ctx context.Context, cfg Config, poolCfgMut func(*pgxpool.Config)) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres: connection URL is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if poolCfgMut != nil {
		poolCfgMut(pcfg)
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// MirrorStore returns a MirrorStore interface backed by this store.
func (s *Store) MirrorStore() driven.MirrorStore {
	return &mirrorStore{pool: s.Pool}
}

// RunLock returns a RunLock backed by session advisory locks.
func (s *Store) RunLock() driven.RunLock {
	return &runLock{pool: s.Pool}
}
