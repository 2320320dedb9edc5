package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
)

// Ensure Store implements the interface.
var _ driven.AuthoritativeStore = (*Store)(nil)

// Store is an authoritative store over the top level of one directory.
// Only ".md" files count; README.md is ignored.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// List returns every document sorted by filename.
func (s *Store) List(ctx context.Context) ([]domain.AuthoritativeEntry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s", domain.ErrNotFound, s.root)
		}
		return nil, fmt.Errorf("reading %s: %w", s.root, err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !IsDocument(de.Name()) {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	entries := make([]domain.AuthoritativeEntry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := s.read(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// Read returns a single document.
func (s *Store) Read(ctx context.Context, name string) (*domain.AuthoritativeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.read(name)
}

func (s *Store) read(name string) (*domain.AuthoritativeEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	text := string(data)
	return &domain.AuthoritativeEntry{
		Path:  name,
		Text:  text,
		Title: fingerprint.EntryTitle(name, text),
		Hash:  fingerprint.FileHash(text),
	}, nil
}

// Write creates or replaces a document. The file is written to a
// temporary name first and renamed into place.
func (s *Store) Write(ctx context.Context, name, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", s.root, err)
	}

	tmp, err := os.CreateTemp(s.root, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// IsDocument reports whether a filename is a tracked document: a
// visible ".md" file other than README.md.
func IsDocument(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !strings.EqualFold(filepath.Ext(name), ".md") {
		return false
	}
	return !strings.EqualFold(name, "readme.md")
}

// checkName rejects anything but a plain document filename.
func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == ".." {
		return fmt.Errorf("%w: invalid document name %q", domain.ErrInvalidInput, name)
	}
	if !IsDocument(name) {
		return fmt.Errorf("%w: %q is not a markdown document", domain.ErrInvalidInput, name)
	}
	return nil
}
