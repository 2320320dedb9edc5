package domain

import "time"

// ActionKind is the kind of change a reconciliation pass makes.
type ActionKind string

const (
	// ActionPrune deletes a mirror record with no authoritative file.
	ActionPrune ActionKind = "prune"

	// ActionFill inserts an authoritative file missing from the mirror.
	ActionFill ActionKind = "fill"

	// ActionRepair replaces a mirror record whose content drifted.
	ActionRepair ActionKind = "repair"

	// ActionRelink points a mirror record at a moved authoritative file.
	ActionRelink ActionKind = "relink"

	// ActionSkip records a fill avoided because the fingerprint
	// is already present under another title.
	ActionSkip ActionKind = "skip"
)

// ReconcileAction is a single planned or applied change.
type ReconcileAction struct {
	Kind     ActionKind
	Title    string
	Path     string
	RecordID string

	// Error is set when applying the action failed.
	Error string
}

// ReconcileOptions configures a reconciliation pass.
type ReconcileOptions struct {
	// DryRun computes the plan without writing.
	DryRun bool
}

// ReconcileReport summarises a reconciliation pass.
type ReconcileReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	AuthoritativeCount int
	MirrorCountBefore  int
	MirrorCountAfter   int

	Pruned    int
	Filled    int
	Repaired  int
	Relinked  int
	Skipped   int
	Unchanged int
	Failed    int

	Actions  []ReconcileAction
	Warnings []string
}

// Converged reports whether the mirror ended up the same size as the
// authoritative store with no failed actions.
func (r *ReconcileReport) Converged() bool {
	return r.Failed == 0 && r.MirrorCountAfter == r.AuthoritativeCount
}

// Duration returns the wall time of the pass.
func (r *ReconcileReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
