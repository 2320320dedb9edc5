// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Turns submitted text into a canonical record
//   - MirrorStore: Queryable record persistence (SQLite, Postgres, memory)
//   - AuthoritativeStore: The source of truth (a folder or a GitHub repo)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - RunLock: Cross-process reconciliation lock. Without it only an
//     in-process lock guards reconciliation.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
