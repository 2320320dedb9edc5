package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
	"github.com/custodia-labs/reqsync/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs reconciliation on a fixed interval while a long-running
// command (watch, serve) is active. Runs never overlap.
type Scheduler struct {
	reconciler driving.Reconciler
	now        func() time.Time

	// OnResult, when set, is called after every run.
	OnResult func(domain.TaskResult)

	mu      sync.Mutex
	task    domain.ScheduledTask
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler. An interval <= 0 disables it.
func NewScheduler(reconciler driving.Reconciler, interval time.Duration) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		now:        time.Now,
		task:       domain.ScheduledTask{ID: domain.TaskIDReconcile, Interval: interval},
	}
}

// Task returns a snapshot of the task state.
func (s *Scheduler) Task() domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// Start runs the first pass after one interval and then every interval.
// It blocks until ctx is cancelled or Stop is called. A disabled
// scheduler returns at once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || !s.task.Enabled() || s.reconciler == nil {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.task.NextRun = s.now().Add(s.task.Interval)
	interval := s.task.Interval
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	logger.Info("Background reconciliation every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runTask(ctx)
		}
	}
}

// Stop ends a running Start and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
}

// RunOnce performs one pass immediately, regardless of the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) domain.TaskResult {
	return s.runTask(ctx)
}

func (s *Scheduler) runTask(ctx context.Context) domain.TaskResult {
	result := domain.TaskResult{TaskID: domain.TaskIDReconcile, StartedAt: s.now()}

	report, err := s.reconciler.Reconcile(ctx, domain.ReconcileOptions{})
	result.EndedAt = s.now()
	result.Report = report

	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		result.Skipped = true
		logger.Debug("Scheduled reconciliation skipped: another run holds the lock")
	case err != nil:
		result.Error = err.Error()
		logger.Error(err, "Scheduled reconciliation failed")
	default:
		result.Changes = report.Pruned + report.Filled + report.Repaired + report.Relinked
		if report.Failed > 0 {
			result.Error = "one or more records failed to reconcile"
		}
	}

	s.mu.Lock()
	s.task.Runs++
	s.task.LastRun = result.StartedAt
	s.task.NextRun = result.EndedAt.Add(s.task.Interval)
	s.task.LastError = result.Error
	if result.Success() {
		s.task.LastSuccess = result.EndedAt
	}
	s.mu.Unlock()

	if s.OnResult != nil {
		s.OnResult(result)
	}
	return result
}
