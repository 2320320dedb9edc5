package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// Ensure Reconciler implements the interface.
var _ driving.Reconciler = (*Reconciler)(nil)

// runLockName names the cross-process lock held during a pass.
const runLockName = "reconcile"

// Reconciler brings the mirror store back in line with the
// authoritative store. The authoritative store always wins.
type Reconciler struct {
	authority  driven.AuthoritativeStore
	mirror     driven.MirrorStore
	normaliser driven.Normaliser
	ingest     *IngestService
	lock       driven.RunLock

	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	running bool
	last    *domain.ReconcileReport
}

// ReconcileOption configures a Reconciler.
type ReconcileOption func(*Reconciler)

// WithRunLock adds a cross-process lock on top of the in-process one.
func WithRunLock(lock driven.RunLock) ReconcileOption {
	return func(r *Reconciler) { r.lock = lock }
}

// WithReconcileTimeout sets the per-call store timeout.
func WithReconcileTimeout(d time.Duration) ReconcileOption {
	return func(r *Reconciler) { r.timeout = d }
}

// WithReconcileClock overrides the clock used for report timestamps.
func WithReconcileClock(now func() time.Time) ReconcileOption {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a new reconciler. Fills go through the ingest
// service so they share its duplicate guard.
func NewReconciler(
	authority driven.AuthoritativeStore,
	mirror driven.MirrorStore,
	normaliser driven.Normaliser,
	ingest *IngestService,
	opts ...ReconcileOption,
) *Reconciler {
	r := &Reconciler{
		authority:  authority,
		mirror:     mirror,
		normaliser: normaliser,
		ingest:     ingest,
		timeout:    DefaultStoreTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// parsedEntry is an authoritative entry with its parsed record.
type parsedEntry struct {
	entry  domain.AuthoritativeEntry
	record domain.Record
}

// pairing is a mirror record matched to an authoritative entry.
type pairing struct {
	record domain.Record
	entry  *parsedEntry
}

// reconcilePlan is the set of changes computed from one snapshot.
type reconcilePlan struct {
	prune     []domain.Record
	fill      []*parsedEntry
	skip      []*parsedEntry
	repair    []pairing
	relink    []pairing
	unchanged int
	failed    []domain.ReconcileAction
}

// Reconcile runs one prune, fill and repair pass.
func (r *Reconciler) Reconcile(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconcileReport, error) {
	if r.authority == nil || r.mirror == nil || r.normaliser == nil || r.ingest == nil {
		return nil, domain.ErrNotConfigured
	}
	if !r.start() {
		return nil, domain.ErrSyncInProgress
	}
	defer r.finish(nil)

	if r.lock != nil {
		release, err := r.lock.TryLock(ctx, runLockName)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		defer release()
	}

	report := &domain.ReconcileReport{StartedAt: r.now().UTC(), DryRun: opts.DryRun}
	logger.Info("Starting reconciliation (dry run: %t)", opts.DryRun)

	entries, records, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report.AuthoritativeCount = len(entries)
	report.MirrorCountBefore = len(records)
	logger.Debug("Snapshot: %d authoritative, %d mirrored", len(entries), len(records))

	plan := r.plan(ctx, entries, records)
	r.apply(ctx, plan, report, opts.DryRun)

	report.MirrorCountAfter = len(records) - report.Pruned + report.Filled
	if !opts.DryRun {
		after, err := readRetry(ctx, r.timeout, "recount mirror store", r.mirror.List)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("could not recount mirror store: %v", err))
		} else {
			report.MirrorCountAfter = len(after)
		}
	}
	if report.MirrorCountAfter != report.AuthoritativeCount {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"mirror store has %d records but authoritative store has %d documents",
			report.MirrorCountAfter, report.AuthoritativeCount))
	}

	report.FinishedAt = r.now().UTC()
	r.finish(report)

	logger.Info("Reconciliation finished: %d pruned, %d filled, %d repaired, %d relinked, %d skipped, %d failed",
		report.Pruned, report.Filled, report.Repaired, report.Relinked, report.Skipped, report.Failed)
	for _, w := range report.Warnings {
		logger.Warn("%s", w)
	}
	return report, nil
}

// Status returns the in-process state.
func (r *Reconciler) Status() driving.ReconcileStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return driving.ReconcileStatus{Running: r.running, Last: r.last}
}

func (r *Reconciler) start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Reconciler) finish(report *domain.ReconcileReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if report != nil {
		r.last = report
	}
}

// snapshot lists both stores concurrently.
func (r *Reconciler) snapshot(ctx context.Context) ([]domain.AuthoritativeEntry, []domain.Record, error) {
	var (
		entries []domain.AuthoritativeEntry
		records []domain.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = readRetry(gctx, r.timeout, "list authoritative store", r.authority.List)
		if err != nil {
			return fmt.Errorf("list authoritative store: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = readRetry(gctx, r.timeout, "list mirror store", r.mirror.List)
		if err != nil {
			return fmt.Errorf("list mirror store: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return entries, records, nil
}

// plan matches mirror records to authoritative entries by source path,
// then by fingerprint. Titles are never used as identity.
//
//nolint:gocyclo // Matching passes are clearer inline
func (r *Reconciler) plan(ctx context.Context, entries []domain.AuthoritativeEntry, records []domain.Record) *reconcilePlan {
	p := &reconcilePlan{}

	parsed := make([]*parsedEntry, 0, len(entries))
	unreadable := make(map[string]bool)
	for _, e := range entries {
		res, err := r.normaliser.Normalise(ctx, &domain.Submission{
			Content:    []byte(e.Text),
			Filename:   path.Base(e.Path),
			Channel:    domain.ChannelReconcile,
			SourcePath: e.Path,
		})
		if err != nil {
			unreadable[e.Path] = true
			p.failed = append(p.failed, domain.ReconcileAction{
				Kind:  domain.ActionFill,
				Title: e.Title,
				Path:  e.Path,
				Error: err.Error(),
			})
			continue
		}
		parsed = append(parsed, &parsedEntry{entry: e, record: res.Record})
	}

	byPath := make(map[string]*parsedEntry, len(parsed))
	for _, pe := range parsed {
		byPath[pe.entry.Path] = pe
	}

	claimed := make(map[*parsedEntry]bool, len(parsed))
	var pairs []pairing
	var unmatched []domain.Record
	for _, rec := range records {
		if pe, ok := byPath[rec.SourcePath]; ok && rec.SourcePath != "" && !claimed[pe] {
			claimed[pe] = true
			pairs = append(pairs, pairing{record: rec, entry: pe})
			continue
		}
		unmatched = append(unmatched, rec)
	}

	byHash := make(map[string][]*parsedEntry)
	for _, pe := range parsed {
		if !claimed[pe] {
			byHash[pe.record.ContentHash] = append(byHash[pe.record.ContentHash], pe)
		}
	}
	// known holds every fingerprint the mirror will carry once the plan
	// is applied. Pruned records and pre-repair hashes are never in it.
	known := make(map[string]bool, len(records))
	for _, rec := range unmatched {
		if rec.SourcePath != "" && unreadable[rec.SourcePath] {
			// Keep records whose file exists but could not be parsed.
			known[rec.ContentHash] = true
			continue
		}
		if candidates := byHash[rec.ContentHash]; len(candidates) > 0 {
			pe := candidates[0]
			byHash[rec.ContentHash] = candidates[1:]
			claimed[pe] = true
			pairs = append(pairs, pairing{record: rec, entry: pe})
			continue
		}
		p.prune = append(p.prune, rec)
	}

	// Pairs that keep their content claim fingerprints before repairs,
	// so a repair never lands on a hash another record still holds.
	var drifted []pairing
	for _, pr := range pairs {
		if !fingerprint.SameContent(pr.record.FileContent, pr.entry.entry.Text) {
			drifted = append(drifted, pr)
			continue
		}
		known[pr.record.ContentHash] = true
		if pr.record.SourcePath != pr.entry.entry.Path {
			p.relink = append(p.relink, pr)
		} else {
			p.unchanged++
		}
	}
	for _, pr := range drifted {
		hash := pr.entry.record.ContentHash
		if known[hash] {
			// The new content is already stored under another record.
			p.prune = append(p.prune, pr.record)
			p.skip = append(p.skip, pr.entry)
			continue
		}
		known[hash] = true
		p.repair = append(p.repair, pr)
	}

	for _, pe := range parsed {
		if claimed[pe] {
			continue
		}
		if known[pe.record.ContentHash] {
			p.skip = append(p.skip, pe)
			continue
		}
		known[pe.record.ContentHash] = true
		p.fill = append(p.fill, pe)
	}

	return p
}

// apply executes a plan in prune, repair, relink, fill order. Fills
// run last so the duplicate guard sees post-repair fingerprints.
// Failures are counted and the pass continues.
//
//nolint:gocyclo // Sequential passes with per-item error handling
func (r *Reconciler) apply(ctx context.Context, p *reconcilePlan, report *domain.ReconcileReport, dryRun bool) {
	for _, a := range p.failed {
		r.fail(report, a, errors.New(a.Error))
	}
	report.Unchanged = p.unchanged

	for _, rec := range p.prune {
		action := domain.ReconcileAction{Kind: domain.ActionPrune, Title: rec.Title, Path: rec.SourcePath, RecordID: rec.ID}
		if !dryRun {
			if _, err := writeOnce(ctx, r.timeout, func(ctx context.Context) (bool, error) {
				return r.mirror.Delete(ctx, rec.ID)
			}); err != nil {
				r.fail(report, action, err)
				continue
			}
		}
		report.Pruned++
		report.Actions = append(report.Actions, action)
	}

	// Every stale copy goes before any reinsert so content moving
	// between records never collides with itself.
	removed := make([]bool, len(p.repair))
	for i, pr := range p.repair {
		if dryRun {
			removed[i] = true
			continue
		}
		if _, err := writeOnce(ctx, r.timeout, func(ctx context.Context) (bool, error) {
			return r.mirror.Delete(ctx, pr.record.ID)
		}); err != nil {
			r.fail(report, repairAction(pr), fmt.Errorf("delete stale record: %w", err))
			continue
		}
		removed[i] = true
	}
	for i, pr := range p.repair {
		if !removed[i] {
			continue
		}
		action := repairAction(pr)
		if !dryRun {
			if err := r.reinsert(ctx, pr); err != nil {
				r.fail(report, action, err)
				continue
			}
		}
		report.Repaired++
		report.Actions = append(report.Actions, action)
	}

	for _, pr := range p.relink {
		action := domain.ReconcileAction{
			Kind:     domain.ActionRelink,
			Title:    pr.record.Title,
			Path:     pr.entry.entry.Path,
			RecordID: pr.record.ID,
		}
		if !dryRun {
			target := pr.entry.entry.Path
			if _, err := writeOnce(ctx, r.timeout, func(ctx context.Context) (*domain.Record, error) {
				return r.mirror.Update(ctx, pr.record.ID, domain.RecordPatch{SourcePath: &target})
			}); err != nil {
				r.fail(report, action, err)
				continue
			}
		}
		report.Relinked++
		report.Actions = append(report.Actions, action)
	}

	for _, pe := range p.skip {
		r.skip(report, pe, "")
	}

	for _, pe := range p.fill {
		action := domain.ReconcileAction{Kind: domain.ActionFill, Title: pe.record.Title, Path: pe.entry.Path}
		if !dryRun {
			rec, created, err := r.ingest.Create(ctx, &pe.record)
			if err != nil {
				r.fail(report, action, err)
				continue
			}
			if !created {
				r.skip(report, pe, rec.ID)
				continue
			}
			action.RecordID = rec.ID
		}
		report.Filled++
		report.Actions = append(report.Actions, action)
	}
}

func repairAction(pr pairing) domain.ReconcileAction {
	return domain.ReconcileAction{
		Kind:     domain.ActionRepair,
		Title:    pr.entry.record.Title,
		Path:     pr.entry.entry.Path,
		RecordID: pr.record.ID,
	}
}

// reinsert stores the record parsed from the authoritative copy in
// place of a drifted one, keeping its ID, status and creation time.
func (r *Reconciler) reinsert(ctx context.Context, pr pairing) error {
	fresh := pr.entry.record.Clone()
	fresh.ID = pr.record.ID
	fresh.Status = pr.record.Status
	if fresh.Status == "" {
		fresh.Status = domain.StatusQueue
	}
	fresh.CreatedAt = pr.record.CreatedAt
	fresh.UpdatedAt = r.now().UTC()

	if _, err := writeOnce(ctx, r.timeout, func(ctx context.Context) (*domain.Record, error) {
		return r.mirror.Insert(ctx, fresh)
	}); err != nil {
		return fmt.Errorf("reinsert record: %w", err)
	}
	return nil
}

func (r *Reconciler) skip(report *domain.ReconcileReport, pe *parsedEntry, recordID string) {
	report.Skipped++
	report.Actions = append(report.Actions, domain.ReconcileAction{
		Kind:     domain.ActionSkip,
		Title:    pe.record.Title,
		Path:     pe.entry.Path,
		RecordID: recordID,
	})
	report.Warnings = append(report.Warnings,
		fmt.Sprintf("%s: content already stored under another record", pe.entry.Path))
}

func (r *Reconciler) fail(report *domain.ReconcileReport, action domain.ReconcileAction, err error) {
	action.Error = err.Error()
	report.Failed++
	report.Actions = append(report.Actions, action)
	logger.Error(err, "%s %s failed", action.Kind, action.Path)
}
