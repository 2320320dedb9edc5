package github

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/reqsync/internal/connectors/filesystem"
	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.AuthoritativeStore = (*Store)(nil)

// Store is an authoritative store over one repository directory.
type Store struct {
	client *Client
	cfg    Config

	// shas caches the last known blob SHA per document so writes and
	// deletes can skip a lookup.
	mu   sync.Mutex
	shas map[string]string
}

// NewStore creates a store. cfg is validated and copied.
func NewStore(client *Client, cfg *Config) (*Store, error) {
	if client == nil || cfg == nil {
		return nil, domain.ErrNotConfigured
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Store{client: client, cfg: c, shas: make(map[string]string)}, nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// List returns every document sorted by filename.
func (s *Store) List(ctx context.Context) ([]domain.AuthoritativeEntry, error) {
	contents, err := s.client.ListDir(ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Dir, s.cfg.Branch)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", s.cfg.Repository(), s.cfg.Dir, err)
	}

	names := make([]string, 0, len(contents))
	for _, item := range contents {
		if item.GetType() != "file" || !filesystem.IsDocument(item.GetName()) {
			continue
		}
		names = append(names, item.GetName())
	}
	sort.Strings(names)

	entries := make([]domain.AuthoritativeEntry, 0, len(names))
	for _, name := range names {
		e, err := s.read(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			// Removed between the listing and the read.
			logger.Debug("GitHub document %s vanished during listing", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// Read returns a single document.
func (s *Store) Read(ctx context.Context, name string) (*domain.AuthoritativeEntry, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.read(ctx, name)
}

func (s *Store) read(ctx context.Context, name string) (*domain.AuthoritativeEntry, error) {
	text, sha, err := s.client.GetFile(ctx, s.cfg.Owner, s.cfg.Repo, s.fullPath(name), s.cfg.Branch)
	if err != nil {
		if IsNotFound(err) {
			s.forget(name)
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	s.remember(name, sha)

	return &domain.AuthoritativeEntry{
		Path:  name,
		Text:  text,
		Title: fingerprint.EntryTitle(name, text),
		Hash:  fingerprint.FileHash(text),
	}, nil
}

// Write commits a new or replaced document. A stale SHA is refreshed
// once before giving up.
func (s *Store) Write(ctx context.Context, name, text string) error {
	if err := checkName(name); err != nil {
		return err
	}

	sha, err := s.currentSHA(ctx, name, false)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		opts := s.fileOptions(commitMessage("Update", name), sha)
		opts.Content = []byte(text)

		newSHA, err := s.client.PutFile(ctx, s.cfg.Owner, s.cfg.Repo, s.fullPath(name), opts)
		if err == nil {
			s.remember(name, newSHA)
			return nil
		}
		if attempt > 0 || !isStale(err) {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		if sha, err = s.currentSHA(ctx, name, true); err != nil {
			return err
		}
	}
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	sha, err := s.currentSHA(ctx, name, false)
	if err != nil {
		return err
	}
	if sha == "" {
		return domain.ErrNotFound
	}

	opts := s.fileOptions(commitMessage("Remove", name), sha)
	if err := s.client.DeleteFile(ctx, s.cfg.Owner, s.cfg.Repo, s.fullPath(name), opts); err != nil {
		if IsNotFound(err) {
			s.forget(name)
			return domain.ErrNotFound
		}
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	s.forget(name)
	return nil
}

// currentSHA returns the blob SHA of name, or "" if the file does not
// exist. Cached values are used unless refresh is set.
func (s *Store) currentSHA(ctx context.Context, name string, refresh bool) (string, error) {
	if !refresh {
		s.mu.Lock()
		sha, ok := s.shas[name]
		s.mu.Unlock()
		if ok {
			return sha, nil
		}
	}

	_, sha, err := s.client.GetFile(ctx, s.cfg.Owner, s.cfg.Repo, s.fullPath(name), s.cfg.Branch)
	if err != nil {
		if IsNotFound(err) {
			s.forget(name)
			return "", nil
		}
		return "", fmt.Errorf("looking up %s: %w", name, err)
	}
	s.remember(name, sha)
	return sha, nil
}

func (s *Store) fileOptions(message, sha string) *gh.RepositoryContentFileOptions {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Branch:  gh.Ptr(s.cfg.Branch),
	}
	if sha != "" {
		opts.SHA = gh.Ptr(sha)
	}
	if s.cfg.CommitterName != "" && s.cfg.CommitterEmail != "" {
		opts.Committer = &gh.CommitAuthor{
			Name:  gh.Ptr(s.cfg.CommitterName),
			Email: gh.Ptr(s.cfg.CommitterEmail),
		}
	}
	return opts
}

func (s *Store) fullPath(name string) string {
	if s.cfg.Dir == "" {
		return name
	}
	return path.Join(s.cfg.Dir, name)
}

func (s *Store) remember(name, sha string) {
	s.mu.Lock()
	s.shas[name] = sha
	s.mu.Unlock()
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	delete(s.shas, name)
	s.mu.Unlock()
}

func commitMessage(verb, name string) string {
	return fmt.Sprintf("%s %s", verb, name)
}

// isStale reports a write rejected because the SHA no longer matches
// (409) or was required but missing (422).
func isStale(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 409 || apiErr.StatusCode == 422
	}
	return false
}

// checkName rejects anything but a plain document filename.
func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid document name %q", domain.ErrInvalidInput, name)
	}
	if !filesystem.IsDocument(name) {
		return fmt.Errorf("%w: %q is not a markdown document", domain.ErrInvalidInput, name)
	}
	return nil
}
