package profile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsPrompt(t *testing.T) {
	assert.True(t, NeedsPrompt(map[string]string{}))
	assert.False(t, NeedsPrompt(localRaw()))
}

func TestNeedsPrompt_LocalRemoteSkipsUserAndPort(t *testing.T) {
	raw := map[string]string{
		"LocalDir":     "/a",
		"RemoteHost":   "",
		"RemoteDir":    "/b",
		"StorageLimit": "1G",
	}
	assert.False(t, NeedsPrompt(raw))
}

func TestPrompt_FillsOnlyMissingKeys(t *testing.T) {
	raw := map[string]string{"LocalDir": "/already/set"}
	in := strings.NewReader("example.com\nalice\n22\n/remote/dir\n5G\n")
	var out bytes.Buffer

	filled, err := Prompt(raw, in, &out)
	require.NoError(t, err)

	assert.Equal(t, "/already/set", filled["LocalDir"])
	assert.Equal(t, "example.com", filled["RemoteHost"])
	assert.Equal(t, "alice", filled["RemoteUser"])
	assert.Equal(t, "22", filled["Port"])
	assert.Equal(t, "/remote/dir", filled["RemoteDir"])
	assert.Equal(t, "5G", filled["StorageLimit"])
}

func TestPrompt_SkipsUserAndPortForLocalHost(t *testing.T) {
	raw := map[string]string{"LocalDir": "/a"}
	in := strings.NewReader("\n/remote\n5G\n")
	var out bytes.Buffer

	filled, err := Prompt(raw, in, &out)
	require.NoError(t, err)

	_, hasUser := filled["RemoteUser"]
	_, hasPort := filled["Port"]
	assert.False(t, hasUser)
	assert.False(t, hasPort)
	assert.Equal(t, "/remote", filled["RemoteDir"])
}

func TestWriteConfig_SortedKeyValueLines(t *testing.T) {
	var buf bytes.Buffer
	err := WriteConfig(&buf, map[string]string{"B": "2", "A": "1"})
	require.NoError(t, err)
	assert.Equal(t, "A=1\nB=2\n", buf.String())
}
