// Package domain defines the core business entities for reqsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: A parsed requirement document (the canonical record)
//   - Submission: Raw text handed to the core by an intake channel
//   - AuthoritativeEntry: One file in the authoritative store
//   - ReconcileReport: The outcome of a reconciliation pass
//   - ScheduledTask: State of the background reconciliation task
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
