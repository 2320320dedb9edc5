//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// startPostgres runs a throwaway Postgres container.
func startPostgres(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, Config{URL: startPostgres(t), MaxConns: 8}, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "schema must be re-runnable")
	return store
}

func testRecord(id, hash string) *domain.Record {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	return &domain.Record{
		ID:                      id,
		Title:                   "Login Service",
		Description:             "Lets users log in.",
		Category:                domain.CategoryAgent,
		Requirements:            []string{"OAuth support", "Session timeout"},
		PerformanceRequirements: map[string]string{"latency": "200ms"},
		StartDate:               &start,
		ContentHash:             hash,
		Status:                  domain.StatusQueue,
		CreatedAt:               time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestMirrorStore_Integration(t *testing.T) {
	store := openTestStore(t)
	mirror := store.MirrorStore()
	ctx := context.Background()

	_, err := mirror.Insert(ctx, testRecord("r1", "h1"))
	require.NoError(t, err)

	got, err := mirror.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"OAuth support", "Session timeout"}, got.Requirements)
	assert.Equal(t, []string{}, got.Risks)
	assert.Equal(t, "200ms", got.PerformanceRequirements["latency"])
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2025-01-15", got.StartDate.Format(domain.DateLayout))
	assert.Nil(t, got.TargetCompletionDate)

	_, err = mirror.Insert(ctx, testRecord("r2", "h1"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	byHash, err := mirror.GetByFingerprint(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "r1", byHash.ID)

	status := domain.StatusCompleted
	updated, err := mirror.Update(ctx, "r1", domain.RecordPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, domain.CategoryAgent, updated.Category)

	_, err = mirror.Update(ctx, "missing", domain.RecordPatch{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted, err := mirror.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = mirror.Get(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMirrorStore_ConcurrentInsert_Integration(t *testing.T) {
	store := openTestStore(t)
	mirror := store.MirrorStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := mirror.Insert(ctx, testRecord(fmt.Sprintf("r%d", i), "shared"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestRunLock_Integration(t *testing.T) {
	store := openTestStore(t)
	lock := store.RunLock()
	ctx := context.Background()

	release, err := lock.TryLock(ctx, "reconcile")
	require.NoError(t, err)

	_, err = lock.TryLock(ctx, "reconcile")
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	release()
	release()

	again, err := lock.TryLock(ctx, "reconcile")
	require.NoError(t, err)
	again()
}
