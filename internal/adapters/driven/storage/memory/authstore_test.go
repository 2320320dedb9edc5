package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
)

func TestAuthoritativeStore_WriteListRead(t *testing.T) {
	store := NewAuthoritativeStore()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "b.md", "# Beta\n\nText"))
	require.NoError(t, store.Write(ctx, "a.md", "no heading here"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.md", list[0].Path)
	assert.Equal(t, "a", list[0].Title)
	assert.Equal(t, "Beta", list[1].Title)
	assert.Equal(t, fingerprint.FileHash("# Beta\n\nText"), list[1].Hash)

	e, err := store.Read(ctx, "b.md")
	require.NoError(t, err)
	assert.Equal(t, "# Beta\n\nText", e.Text)
}

func TestAuthoritativeStore_Errors(t *testing.T) {
	store := NewAuthoritativeStore()
	ctx := context.Background()

	_, err := store.Read(ctx, "missing.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing.md"), domain.ErrNotFound)
	assert.ErrorIs(t, store.Write(ctx, " ", "x"), domain.ErrInvalidInput)
}

func TestAuthoritativeStore_Delete(t *testing.T) {
	store := NewAuthoritativeStore()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "a.md", "# A"))
	require.NoError(t, store.Delete(ctx, "a.md"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
