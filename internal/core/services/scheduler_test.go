package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
)

// countingReconciler records calls and returns canned results.
type countingReconciler struct {
	mu     sync.Mutex
	calls  int
	report *domain.ReconcileReport
	err    error
}

func (c *countingReconciler) Reconcile(_ context.Context, _ domain.ReconcileOptions) (*domain.ReconcileReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	r := *c.report
	return &r, nil
}

func (c *countingReconciler) Status() driving.ReconcileStatus { return driving.ReconcileStatus{} }

func (c *countingReconciler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestScheduler_DisabledReturnsImmediately(t *testing.T) {
	rec := &countingReconciler{report: &domain.ReconcileReport{}}
	s := NewScheduler(rec, 0)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 0, rec.count())
	assert.False(t, s.Task().Enabled())
	s.Stop()
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	rec := &countingReconciler{report: &domain.ReconcileReport{Filled: 2, Pruned: 1}}
	s := NewScheduler(rec, 10*time.Millisecond)

	var mu sync.Mutex
	var results []domain.TaskResult
	s.OnResult = func(r domain.TaskResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return rec.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, results)
	assert.Equal(t, 3, results[0].Changes)
	assert.True(t, results[0].Success())

	task := s.Task()
	assert.GreaterOrEqual(t, task.Runs, 2)
	assert.False(t, task.LastSuccess.IsZero())
	assert.Empty(t, task.LastError)
}

func TestScheduler_Stop(t *testing.T) {
	rec := &countingReconciler{report: &domain.ReconcileReport{}}
	s := NewScheduler(rec, time.Hour)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, time.Second, time.Millisecond)

	s.Stop()
	require.NoError(t, <-done)
	assert.Equal(t, 0, rec.count())
}

func TestScheduler_RunOnce(t *testing.T) {
	t.Run("busy is skipped", func(t *testing.T) {
		s := NewScheduler(&countingReconciler{err: domain.ErrSyncInProgress}, time.Minute)

		res := s.RunOnce(context.Background())
		assert.True(t, res.Skipped)
		assert.Empty(t, res.Error)
		assert.False(t, res.Success())
		assert.True(t, s.Task().LastSuccess.IsZero())
	})

	t.Run("error is recorded", func(t *testing.T) {
		s := NewScheduler(&countingReconciler{err: errors.New("store down")}, time.Minute)
		s.now = fixedClock

		res := s.RunOnce(context.Background())
		assert.Equal(t, "store down", res.Error)
		task := s.Task()
		assert.Equal(t, "store down", task.LastError)
		assert.Equal(t, fixedNow.Add(time.Minute), task.NextRun)
	})

	t.Run("failed records make the run unsuccessful", func(t *testing.T) {
		s := NewScheduler(&countingReconciler{report: &domain.ReconcileReport{Failed: 1}}, time.Minute)

		res := s.RunOnce(context.Background())
		assert.NotEmpty(t, res.Error)
		assert.NotNil(t, res.Report)
	})
}
