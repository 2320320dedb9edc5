package domain

import "time"

// TaskIDReconcile identifies the background reconciliation task.
const TaskIDReconcile = "reconcile"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Runs counts completed runs, successful or not.
	Runs int
}

// Enabled reports whether the task runs at all.
func (t ScheduledTask) Enabled() bool {
	return t.Interval > 0
}

// Due reports whether the task should run at now.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.Enabled() && !now.Before(t.NextRun)
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Skipped is set when another run held the lock.
	Skipped bool

	// Error contains the error message, if any.
	Error string

	// Changes counts records pruned, filled, repaired or relinked.
	Changes int

	// Report is the reconciliation report, when one was produced.
	Report *ReconcileReport
}

// Success reports whether the run completed without error.
func (r *TaskResult) Success() bool {
	return r.Error == "" && !r.Skipped
}
