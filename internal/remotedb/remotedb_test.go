package remotedb

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

func TestAddIsNoOpForExistingKey(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, map[string]bool{"a.txt": true}, nil, 100, false))
	require.NoError(t, s.Add(ctx, map[string]bool{"a.txt": true}, nil, 999, false))

	entry, ok, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, entry.LastSync)
}

func TestSetDeletedMarksEntryDeleted(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, map[string]bool{"a.txt": true}, nil, 1, false))
	require.NoError(t, s.SetDeleted(ctx, "a.txt", true))

	entry, ok, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Deleted)
}

func TestGetTreeFiltersByDeletedAndMinLastSync(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, map[string]bool{"a.txt": true}, nil, 100, false))
	require.NoError(t, s.Add(ctx, map[string]bool{"b_deleted-20260101-000000.txt": true}, nil, 200, true))

	deleted := true
	tree, err := s.GetTree(ctx, "", nil, &deleted, nil)
	require.NoError(t, err)
	assert.Contains(t, tree, "b_deleted-20260101-000000.txt")
	assert.NotContains(t, tree, "a.txt")

	min := 150.0
	fresh, err := s.GetTree(ctx, "", nil, nil, &min)
	require.NoError(t, err)
	assert.Contains(t, fresh, "b_deleted-20260101-000000.txt")
	assert.NotContains(t, fresh, "a.txt")
}

func TestUpdateSyncTime(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Add(ctx, map[string]bool{"a.txt": true}, nil, 1, false))
	require.NoError(t, s.UpdateSyncTime(ctx, "a.txt", 500))

	entry, _, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 500.0, entry.LastSync)
}
