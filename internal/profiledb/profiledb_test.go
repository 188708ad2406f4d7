package profiledb

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddIsNoOpForExistingPath(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, "a.txt", 5, false))
	require.NoError(t, s.Add(ctx, "a.txt", 99, false))

	entry, ok, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, entry.Priority)
}

func TestAddInflatedOnlyAffectsNewEntries(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, "existing.txt", 3, false))
	require.NoError(t, s.AddInflated(ctx, map[string]bool{"existing.txt": true, "new.txt": true}, nil))

	existing, _, err := s.Get(ctx, "existing.txt")
	require.NoError(t, err)
	assert.Equal(t, 3.0, existing.Priority)

	fresh, ok, err := s.Get(ctx, "new.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4.0, fresh.Priority)
}

func TestIncrementAndAdjustAll(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, "a.txt", 1, false))
	require.NoError(t, s.Increment(ctx, "a.txt"))

	entry, _, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2.0, entry.Priority)

	require.NoError(t, s.AdjustAll(ctx, 0.5))
	entry, _, err = s.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1.0, entry.Priority)
}

func TestGetTreeFiltersByPrefixAndDirectory(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, "dir", 1, true))
	require.NoError(t, s.Add(ctx, "dir/a.txt", 1, false))
	require.NoError(t, s.Add(ctx, "other.txt", 1, false))

	tree, err := s.GetTree(ctx, "dir", nil)
	require.NoError(t, err)
	assert.Contains(t, tree, "dir")
	assert.Contains(t, tree, "dir/a.txt")
	assert.NotContains(t, tree, "other.txt")

	dirsOnly := true
	onlyDirs, err := s.GetTree(ctx, "", &dirsOnly)
	require.NoError(t, err)
	assert.Contains(t, onlyDirs, "dir")
	assert.NotContains(t, onlyDirs, "other.txt")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, "a.txt", 1, false))
	require.NoError(t, s.Remove(ctx, "a.txt"))

	_, ok, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}
