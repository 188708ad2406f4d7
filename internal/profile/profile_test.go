package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localRaw() map[string]string {
	return map[string]string{
		"LocalDir":     "/home/user/sync",
		"RemoteHost":   "",
		"RemoteDir":    "/home/user/remote",
		"StorageLimit": "10G",
	}
}

func TestBuildProfile_LocalRemoteSkipsUserAndPort(t *testing.T) {
	p, err := buildProfile("work", localRaw(), nil)
	require.NoError(t, err)
	assert.True(t, p.IsLocalRemote())
	assert.Equal(t, int64(10)*unitG, p.StorageLimitBytes)
}

func TestBuildProfile_RemoteHostRequiresUserAndPort(t *testing.T) {
	raw := localRaw()
	raw["RemoteHost"] = "example.com"

	_, err := buildProfile("work", raw, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RemoteUser")
}

func TestBuildProfile_RemoteHostWithUserAndPort(t *testing.T) {
	raw := localRaw()
	raw["RemoteHost"] = "example.com"
	raw["RemoteUser"] = "alice"
	raw["Port"] = "22"

	p, err := buildProfile("work", raw, nil)
	require.NoError(t, err)
	assert.False(t, p.IsLocalRemote())
	assert.Equal(t, "alice", p.RemoteUser)
}

func TestBuildProfile_MissingRequiredKey(t *testing.T) {
	raw := localRaw()
	delete(raw, "RemoteDir")

	_, err := buildProfile("work", raw, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RemoteDir")
}

func TestBuildProfile_BadStorageLimit(t *testing.T) {
	raw := localRaw()
	raw["StorageLimit"] = "bogus"

	_, err := buildProfile("work", raw, nil)
	assert.Error(t, err)
}

func TestBuildProfile_BoolDefaultsTrue(t *testing.T) {
	p, err := buildProfile("work", localRaw(), nil)
	require.NoError(t, err)
	assert.True(t, p.SyncExtraFiles)
	assert.True(t, p.InflatePriority)
	assert.True(t, p.AccountForSize)
	assert.False(t, p.DeleteAlways)
}

func TestBuildProfile_BoolOverrides(t *testing.T) {
	raw := localRaw()
	raw["SyncExtraFiles"] = "no"
	raw["DeleteAlways"] = "true"

	p, err := buildProfile("work", raw, nil)
	require.NoError(t, err)
	assert.False(t, p.SyncExtraFiles)
	assert.True(t, p.DeleteAlways)
}

func TestBuildProfile_InvalidBool(t *testing.T) {
	raw := localRaw()
	raw["DeleteAlways"] = "sometimes"

	_, err := buildProfile("work", raw, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeleteAlways")
}

func TestBuildProfile_TrashDirsSplit(t *testing.T) {
	raw := localRaw()
	raw["TrashDirs"] = "/a/trash:/b/trash"

	p, err := buildProfile("work", raw, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/trash", "/b/trash"}, p.TrashDirs)
}

func TestBuildProfile_RegistryOverlapRejected(t *testing.T) {
	registry := NewRegistry()
	existing, err := buildProfile("home", localRaw(), nil)
	require.NoError(t, err)
	registry.Register(existing)

	raw := localRaw()
	raw["LocalDir"] = "/home/user/sync/nested"

	_, err = buildProfile("other", raw, registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}
