package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
)

func writeFile(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0644))
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "# Beta\n\nbody")
	writeFile(t, dir, "a.md", "no heading")
	writeFile(t, dir, "README.md", "# Readme")
	writeFile(t, dir, ".hidden.md", "# Hidden")
	writeFile(t, dir, "notes.txt", "# Notes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.md"), 0755))

	entries, err := NewStore(dir).List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a.md", entries[0].Path)
	assert.Equal(t, "a", entries[0].Title)
	assert.Equal(t, "b.md", entries[1].Path)
	assert.Equal(t, "Beta", entries[1].Title)
	assert.Equal(t, "# Beta\n\nbody", entries[1].Text)
	assert.Equal(t, fingerprint.FileHash("# Beta\n\nbody"), entries[1].Hash)
}

func TestStore_ListMissingDir(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore(dir).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_WriteReadDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	store := NewStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "x.md", "# X\n"))
	entry, err := store.Read(ctx, "x.md")
	require.NoError(t, err)
	assert.Equal(t, "X", entry.Title)
	assert.Equal(t, "# X\n", entry.Text)

	require.NoError(t, store.Write(ctx, "x.md", "# X2\n"))
	entry, err = store.Read(ctx, "x.md")
	require.NoError(t, err)
	assert.Equal(t, "X2", entry.Title)

	info, err := os.Stat(filepath.Join(dir, "x.md"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	require.NoError(t, store.Delete(ctx, "x.md"))
	_, err = store.Read(ctx, "x.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "x.md"), domain.ErrNotFound)
}

func TestStore_RejectsBadNames(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	tests := []string{"", "../x.md", "sub/x.md", `sub\x.md`, "x.txt", "README.md", ".x.md"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Write(ctx, name, "# X"), domain.ErrInvalidInput)
			_, err := store.Read(ctx, name)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.ErrorIs(t, store.Delete(ctx, name), domain.ErrInvalidInput)
		})
	}
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"notes.md", true},
		{"NOTES.MD", true},
		{"readme.md", false},
		{"Readme.MD", false},
		{".draft.md", false},
		{"notes.txt", false},
		{"md", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDocument(tt.name))
		})
	}
}
