package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reqsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/normalisers/markdown"
)

type reconcileFixture struct {
	authority *svcMockAuthority
	mirror    *svcMockMirror
	ingest    *IngestService
	r         *Reconciler
}

func newReconcileFixture(opts ...ReconcileOption) *reconcileFixture {
	f := &reconcileFixture{
		authority: newSvcMockAuthority(),
		mirror:    newSvcMockMirror(),
	}
	f.ingest = newTestIngest(f.mirror)
	opts = append([]ReconcileOption{WithReconcileClock(fixedClock)}, opts...)
	f.r = NewReconciler(f.authority, f.mirror, markdown.New(nil), f.ingest, opts...)
	return f
}

func (f *reconcileFixture) writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, f.authority.Write(context.Background(), path, text))
}

// mirrorDoc stores a record as if it had been ingested from path.
func (f *reconcileFixture) mirrorDoc(t *testing.T, text, path string) *domain.Record {
	t.Helper()
	res, err := f.ingest.Submit(context.Background(), domain.Submission{
		Content:    []byte(text),
		Channel:    domain.ChannelReconcile,
		SourcePath: path,
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.Record
}

func (f *reconcileFixture) run(t *testing.T, opts domain.ReconcileOptions) *domain.ReconcileReport {
	t.Helper()
	report, err := f.r.Reconcile(context.Background(), opts)
	require.NoError(t, err)
	return report
}

func (f *reconcileFixture) records(t *testing.T) []domain.Record {
	t.Helper()
	list, err := f.mirror.MirrorStore.List(context.Background())
	require.NoError(t, err)
	return list
}

func TestReconciler_FillsEmptyMirror(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	f.writeFile(t, "b.md", weatherDoc)

	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 2, report.Filled)
	assert.Equal(t, 2, report.AuthoritativeCount)
	assert.Equal(t, 0, report.MirrorCountBefore)
	assert.Equal(t, 2, report.MirrorCountAfter)
	assert.True(t, report.Converged())
	assert.Empty(t, report.Warnings)

	paths := map[string]string{}
	for _, rec := range f.records(t) {
		paths[rec.Title] = rec.SourcePath
	}
	assert.Equal(t, map[string]string{"Login Service": "a.md", "Weather Dashboard": "b.md"}, paths)
}

func TestReconciler_SecondPassIsNoOp(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	f.writeFile(t, "b.md", weatherDoc)
	f.run(t, domain.ReconcileOptions{})
	inserts := f.mirror.insertCount()

	report := f.run(t, domain.ReconcileOptions{})
	assert.Empty(t, report.Actions)
	assert.Equal(t, 2, report.Unchanged)
	assert.True(t, report.Converged())
	assert.Equal(t, inserts, f.mirror.insertCount())
}

func TestReconciler_PrunesOrphans(t *testing.T) {
	f := newReconcileFixture()
	orphan := f.mirrorDoc(t, loginDoc, "gone.md")

	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Pruned)
	require.Len(t, report.Actions, 1)
	assert.Equal(t, domain.ActionPrune, report.Actions[0].Kind)
	assert.Equal(t, orphan.ID, report.Actions[0].RecordID)
	assert.Empty(t, f.records(t))
	assert.True(t, report.Converged())
}

func TestReconciler_RepairsDriftedBody(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	rec := f.mirrorDoc(t, loginDoc, "a.md")

	status := domain.StatusInProgress
	_, err := f.mirror.Update(context.Background(), rec.ID, domain.RecordPatch{Status: &status})
	require.NoError(t, err)

	f.writeFile(t, "a.md", loginDoc+"- Audit log\n")
	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Repaired)
	assert.Zero(t, report.Filled)
	assert.Zero(t, report.Pruned)

	got, err := f.mirror.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"OAuth support", "Session timeout", "Audit log"}, got.Requirements)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
	assert.Equal(t, loginDoc+"- Audit log\n", got.FileContent)
}

func TestReconciler_TitleChangeIsRepairNotPruneAndFill(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	rec := f.mirrorDoc(t, loginDoc, "a.md")

	f.writeFile(t, "a.md", strings.Replace(loginDoc, "# Login Service", "# Sign-in Service", 1))
	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Repaired)
	assert.Zero(t, report.Pruned)
	assert.Zero(t, report.Filled)

	got, err := f.mirror.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sign-in Service", got.Title)
	assert.NotEqual(t, rec.ContentHash, got.ContentHash)
}

func TestReconciler_RelinksByFingerprint(t *testing.T) {
	tests := []struct {
		name       string
		sourcePath string
	}{
		{"moved file", "old.md"},
		{"uploaded record", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcileFixture()
			f.writeFile(t, "new.md", loginDoc)
			rec := f.mirrorDoc(t, loginDoc, tt.sourcePath)

			report := f.run(t, domain.ReconcileOptions{})

			assert.Equal(t, 1, report.Relinked)
			assert.Zero(t, report.Pruned)
			assert.Zero(t, report.Filled)

			got, err := f.mirror.Get(context.Background(), rec.ID)
			require.NoError(t, err)
			assert.Equal(t, "new.md", got.SourcePath)
		})
	}
}

func TestReconciler_SkipsDuplicateFingerprint(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	f.writeFile(t, "b.md", loginDoc+"- Extra requirement\n")

	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Filled)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.MirrorCountAfter)
	assert.False(t, report.Converged())
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, strings.Join(report.Warnings, "\n"), "b.md")
}

func TestReconciler_SkipsFingerprintHeldByMatchedRecord(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	f.writeFile(t, "copy.md", loginDoc)
	f.mirrorDoc(t, loginDoc, "a.md")

	report := f.run(t, domain.ReconcileOptions{})

	assert.Zero(t, report.Filled)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Unchanged)
	assert.Len(t, f.records(t), 1)
}

func TestReconciler_ContentMovedToNewFileConvergesInOnePass(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	rec := f.mirrorDoc(t, loginDoc, "a.md")

	f.writeFile(t, "a.md", weatherDoc)
	f.writeFile(t, "b.md", loginDoc)
	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, 1, report.Filled)
	assert.Zero(t, report.Skipped)
	assert.Empty(t, report.Warnings)
	assert.True(t, report.Converged())

	paths := map[string]string{}
	for _, r := range f.records(t) {
		paths[r.SourcePath] = r.Title
	}
	assert.Equal(t, map[string]string{"a.md": "Weather Dashboard", "b.md": "Login Service"}, paths)

	got, err := f.mirror.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weather Dashboard", got.Title)

	again := f.run(t, domain.ReconcileOptions{})
	assert.Empty(t, again.Actions)
	assert.Equal(t, 2, again.Unchanged)
}

func TestReconciler_SwappedContentsRepairBoth(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	f.writeFile(t, "b.md", weatherDoc)
	f.mirrorDoc(t, loginDoc, "a.md")
	f.mirrorDoc(t, weatherDoc, "b.md")

	f.writeFile(t, "a.md", weatherDoc)
	f.writeFile(t, "b.md", loginDoc)
	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 2, report.Repaired)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Skipped)
	assert.True(t, report.Converged())

	paths := map[string]string{}
	for _, r := range f.records(t) {
		paths[r.SourcePath] = r.Title
	}
	assert.Equal(t, map[string]string{"a.md": "Weather Dashboard", "b.md": "Login Service"}, paths)
}

func TestReconciler_RepairOntoHeldFingerprintPrunesStaleRecord(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	f.writeFile(t, "b.md", weatherDoc)
	f.mirrorDoc(t, loginDoc, "a.md")
	stale := f.mirrorDoc(t, weatherDoc, "b.md")

	f.writeFile(t, "b.md", loginDoc)
	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Contains(t, strings.Join(report.Warnings, "\n"), "b.md")

	_, err := f.mirror.Get(context.Background(), stale.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, f.records(t), 1)
}

func TestReconciler_DryRunWritesNothing(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	orphan := f.mirrorDoc(t, weatherDoc, "gone.md")
	inserts := f.mirror.insertCount()

	report := f.run(t, domain.ReconcileOptions{DryRun: true})

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, 1, report.Filled)
	assert.Equal(t, 1, report.MirrorCountAfter)

	list := f.records(t)
	require.Len(t, list, 1)
	assert.Equal(t, orphan.ID, list[0].ID)
	assert.Equal(t, inserts, f.mirror.insertCount())
}

func TestReconciler_ItemFailureDoesNotAbort(t *testing.T) {
	f := newReconcileFixture()
	f.writeFile(t, "a.md", loginDoc)
	stuck := f.mirrorDoc(t, weatherDoc, "gone.md")
	f.mirror.deleteErrs[stuck.ID] = errors.New("locked")

	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Filled)
	assert.False(t, report.Converged())

	var failed *domain.ReconcileAction
	for i := range report.Actions {
		if report.Actions[i].Error != "" {
			failed = &report.Actions[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, domain.ActionPrune, failed.Kind)
	assert.Equal(t, "locked", failed.Error)
}

func TestReconciler_UnparseableFileProtectsRecord(t *testing.T) {
	f := newReconcileFixture()
	rec := f.mirrorDoc(t, loginDoc, "a.md")
	f.writeFile(t, "a.md", "# Login Service\n\xff\xfe")

	report := f.run(t, domain.ReconcileOptions{})

	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Pruned)
	_, err := f.mirror.Get(context.Background(), rec.ID)
	assert.NoError(t, err)
}

func TestReconciler_ListFailures(t *testing.T) {
	t.Run("mirror", func(t *testing.T) {
		f := newReconcileFixture()
		f.mirror.listErr = errors.New("db down")
		_, err := f.r.Reconcile(context.Background(), domain.ReconcileOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list mirror store")
	})

	t.Run("authority", func(t *testing.T) {
		f := newReconcileFixture()
		f.authority.listErr = errors.New("permission denied")
		_, err := f.r.Reconcile(context.Background(), domain.ReconcileOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list authoritative store")
	})
}

func TestReconciler_RejectsConcurrentRuns(t *testing.T) {
	t.Run("in process", func(t *testing.T) {
		f := newReconcileFixture()
		require.True(t, f.r.start())
		defer f.r.finish(nil)

		_, err := f.r.Reconcile(context.Background(), domain.ReconcileOptions{})
		assert.ErrorIs(t, err, domain.ErrSyncInProgress)
		assert.True(t, f.r.Status().Running)
	})

	t.Run("run lock", func(t *testing.T) {
		lock := memory.NewRunLock()
		release, err := lock.TryLock(context.Background(), runLockName)
		require.NoError(t, err)
		defer release()

		f := newReconcileFixture(WithRunLock(lock))
		_, err = f.r.Reconcile(context.Background(), domain.ReconcileOptions{})
		assert.ErrorIs(t, err, domain.ErrSyncInProgress)
		assert.False(t, f.r.Status().Running)
	})
}

func TestReconciler_Status(t *testing.T) {
	f := newReconcileFixture(WithRunLock(memory.NewRunLock()))
	assert.Nil(t, f.r.Status().Last)

	f.writeFile(t, "a.md", loginDoc)
	report := f.run(t, domain.ReconcileOptions{})

	status := f.r.Status()
	assert.False(t, status.Running)
	assert.Same(t, report, status.Last)
	assert.Equal(t, fixedNow, report.StartedAt)
}

func TestReconciler_NotConfigured(t *testing.T) {
	r := NewReconciler(nil, nil, nil, nil)
	_, err := r.Reconcile(context.Background(), domain.ReconcileOptions{})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
