package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_LayoutUnderDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dir, err := Dir("work")
	require.NoError(t, err)

	base, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "profiles", "work"), dir)

	configPath, err := ConfigPath("work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config"), configPath)

	localDB, err := LocalDBPath("work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "local.db"), localDB)

	mount, err := MountDir("work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mnt"), mount)
}

func TestListProfileNames_EmptyWhenMissing(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	names, err := ListProfileNames()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListProfileNames_ListsDirectoriesOnly(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)

	profilesDir := filepath.Join(xdg, appName, "profiles")
	require.NoError(t, os.MkdirAll(filepath.Join(profilesDir, "alpha"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(profilesDir, "beta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(profilesDir, "stray-file"), nil, 0o644))

	names, err := ListProfileNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}
