// Package sqlite provides the embedded SQLite implementation of the mirror store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database file backs:
//
//   - MirrorStore: Canonical Record persistence, unique on content hash
//   - RunLock: Lease-based mutual exclusion for reconciliation runs
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// List fields are stored as one JSON object keyed by field name.
//
// # Data Location
//
// By default, the database is stored at ~/.reqsync/data/mirror.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
