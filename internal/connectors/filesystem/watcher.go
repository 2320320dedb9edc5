package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// DefaultSettle is how long a file must be quiet before it is processed.
const DefaultSettle = 500 * time.Millisecond

// WatchResult is the outcome of processing one incoming file.
type WatchResult struct {
	// Path is the incoming file path.
	Path string

	// MovedTo is set when the file was moved to the uploaded directory.
	MovedTo string

	// Result is the ingest result when submission succeeded.
	Result *domain.SubmitResult

	// Err is set when the file was left in place.
	Err error
}

// Watcher submits files dropped into an incoming directory and moves
// each accepted file to an uploaded directory. Rejected files stay put
// for manual review.
type Watcher struct {
	incoming string
	uploaded string
	ingest   driving.IngestService
	settle   time.Duration

	// OnResult is called after each processed file, if set.
	OnResult func(WatchResult)

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a watcher. A zero settle means DefaultSettle.
func NewWatcher(incoming, uploaded string, ingest driving.IngestService, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		incoming: incoming,
		uploaded: uploaded,
		ingest:   ingest,
		settle:   settle,
		pending:  make(map[string]time.Time),
	}
}

// Run processes files already present, then watches for new ones until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.ingest == nil {
		return domain.ErrNotConfigured
	}
	for _, dir := range []string{w.incoming, w.uploaded} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.incoming); err != nil {
		return fmt.Errorf("watching %s: %w", w.incoming, err)
	}
	logger.Info("Watching %s (uploaded files go to %s)", w.incoming, w.uploaded)

	if err := w.processExisting(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopped watching %s", w.incoming)
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				w.report(w.Process(ctx, path))
			}
		}
	}
}

// handleEvent queues created or written documents. Each event pushes the
// file's deadline back so partially written files are not read.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !IsDocument(filepath.Base(event.Name)) {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = time.Now()
	logger.Debug("Queued %s", event.Name)
}

// due returns pending files that have been quiet for the settle period.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) processExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.incoming)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.incoming, err)
	}
	var found []string
	for _, de := range entries {
		if !de.IsDir() && IsDocument(de.Name()) {
			found = append(found, filepath.Join(w.incoming, de.Name()))
		}
	}
	if len(found) > 0 {
		logger.Info("Found %d existing file(s), processing", len(found))
	}
	for _, path := range found {
		if err := ctx.Err(); err != nil {
			return nil
		}
		w.report(w.Process(ctx, path))
	}
	return nil
}

// Process submits one file and moves it to the uploaded directory on
// success. Duplicates count as success.
func (w *Watcher) Process(ctx context.Context, path string) WatchResult {
	res := WatchResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
		return res
	}

	name := filepath.Base(path)
	submitted, err := w.ingest.Submit(ctx, domain.Submission{
		Content:  data,
		Filename: name,
		Channel:  domain.ChannelWatch,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Result = submitted

	dest := filepath.Join(w.uploaded, name)
	if err := moveFile(path, dest); err != nil {
		res.Err = fmt.Errorf("moving %s: %w", name, err)
		return res
	}
	res.MovedTo = dest
	return res
}

func (w *Watcher) report(res WatchResult) {
	switch {
	case res.Err != nil:
		logger.Warn("Kept %s in incoming folder for review: %v", filepath.Base(res.Path), res.Err)
	case res.Result != nil && !res.Result.Created:
		logger.Info("%s is a duplicate of %s, moved to %s", filepath.Base(res.Path), res.Result.Record.ID, res.MovedTo)
	case res.Result != nil:
		logger.Info("Uploaded %s as %s (%s)", filepath.Base(res.Path), res.Result.Record.ID, res.Result.Record.Title)
	}
	if w.OnResult != nil {
		w.OnResult(res)
	}
}

// moveFile renames src to dst, copying when a rename is not possible
// (for example across filesystems).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}
