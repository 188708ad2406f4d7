package deletion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullpilot/retainsync/internal/pathtree"
)

func TestCompute_BasicDifferences(t *testing.T) {
	known := mapset.NewSet[string]("a.txt", "b.txt", "c.txt")
	local := mapset.NewSet[string]("a.txt", "c.txt")
	remote := mapset.NewSet[string]("a.txt", "b.txt")

	c := Compute(known, local, remote, true, nil, nil)

	assert.True(t, c.LocalToDelete.Contains("c.txt"))
	assert.True(t, c.RemoteToDelete.Contains("b.txt"))
	assert.Equal(t, 0, c.Trash.Cardinality())
}

func TestCompute_DeleteAlwaysSkipsTrash(t *testing.T) {
	known := mapset.NewSet[string]("b.txt")
	local := mapset.NewSet[string]()
	remote := mapset.NewSet[string]("b.txt")

	c := Compute(known, local, remote, true, []string{"/nonexistent-trash"}, nil)

	assert.True(t, c.RemoteToDelete.Contains("b.txt"))
	assert.Equal(t, 0, c.Trash.Cardinality())
}

func TestCompute_SoftDeletesWhenNotInTrash(t *testing.T) {
	known := mapset.NewSet[string]("b.txt")
	local := mapset.NewSet[string]()
	remote := mapset.NewSet[string]("b.txt")

	c := Compute(known, local, remote, false, []string{t.TempDir()}, nil)

	assert.True(t, c.Trash.Contains("b.txt"))
	assert.False(t, c.RemoteToDelete.Contains("b.txt"))
}

func TestCompute_SkipsTrashWhenAlreadyInUserTrash(t *testing.T) {
	trashDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(trashDir, "b.txt"), nil, 0o644))

	known := mapset.NewSet[string]("b.txt")
	local := mapset.NewSet[string]()
	remote := mapset.NewSet[string]("b.txt")

	c := Compute(known, local, remote, false, []string{trashDir}, nil)

	assert.False(t, c.Trash.Contains("b.txt"))
	assert.True(t, c.RemoteToDelete.Contains("b.txt"))
}

func TestCompute_DirectoriesNeverTrashed(t *testing.T) {
	known := mapset.NewSet[string]("sub")
	local := mapset.NewSet[string]()
	remote := mapset.NewSet[string]("sub")

	isDir := func(relpath string) bool { return relpath == "sub" }
	c := Compute(known, local, remote, false, []string{t.TempDir()}, isDir)

	assert.False(t, c.Trash.Contains("sub"))
	assert.True(t, c.RemoteToDelete.Contains("sub"))
}

func fakeUpdater() (*DBUpdater, *map[string]bool, *map[string]bool) {
	var removedProfile, removedRemote map[string]bool
	u := &DBUpdater{
		RemoveProfile: func(_ context.Context, paths map[string]bool) error {
			removedProfile = paths
			return nil
		},
		RemoveRemote: func(_ context.Context, paths map[string]bool) error {
			removedRemote = paths
			return nil
		},
		AddRemote: func(_ context.Context, files, dirs map[string]bool, lastSync float64, deleted bool) error {
			return nil
		},
	}
	return u, &removedProfile, &removedRemote
}

func TestRemoveLocalFiles_RemovesAndFlushesDB(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	tree := pathtree.NewLocalTree(root)

	updater, removedProfile, removedRemote := fakeUpdater()

	err := RemoveLocalFiles(context.Background(), tree, *updater, mapset.NewSet[string]("a.txt"))
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "a.txt"))
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, (*removedProfile)["a.txt"])
	assert.True(t, (*removedRemote)["a.txt"])
}

func TestRemoveRemoteFiles_RemovesAndFlushesDB(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	tree := pathtree.NewRemoteTree(root)

	updater, removedProfile, removedRemote := fakeUpdater()

	err := RemoveRemoteFiles(context.Background(), tree, *updater, mapset.NewSet[string]("a.txt"))
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "a.txt"))
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, (*removedProfile)["a.txt"])
	assert.True(t, (*removedRemote)["a.txt"])
}

func TestTrashFiles_RenamesWithDeletedSuffix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	tree := pathtree.NewRemoteTree(root)

	updater, removedProfile, _ := fakeUpdater()

	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	err := TrashFiles(context.Background(), tree, *updater, mapset.NewSet[string]("a.txt"), nil, now)
	require.NoError(t, err)

	assert.True(t, (*removedProfile)["a.txt"])

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "a_deleted-20260729-100000.txt")
}

func TestSortedChildrenFirst_DeeperPathsBeforeShallower(t *testing.T) {
	paths := mapset.NewSet[string]("a", "a/b", "a/b/c")
	out := sortedChildrenFirst(paths)
	require.Len(t, out, 3)
	assert.Equal(t, "a/b/c", out[0])
	assert.Equal(t, "a/b", out[1])
	assert.Equal(t, "a", out[2])
}
