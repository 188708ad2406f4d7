package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgress2Percent(t *testing.T) {
	tests := []struct {
		line     string
		expected float64
		ok       bool
	}{
		{"      1,048,576 100%    2.00MB/s    0:00:00 (xfr#1, to-chk=0/1)", 1.0, true},
		{"         32,768  50%    1.00MB/s    0:00:01", 0.5, true},
		{"receiving file list ...", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			fraction, ok := parseProgress2Percent(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, fraction, 0.0001)
			}
		})
	}
}

func TestLastN(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, lastN([]string{"a", "b"}, 5))
	assert.Equal(t, []string{"d", "e"}, lastN([]string{"a", "b", "c", "d", "e"}, 2))
}

func TestWriteTempList_ForcesLeadingSlash(t *testing.T) {
	path, cleanup, err := writeTempList([]string{"a.txt", "/b.txt"})
	require.NoError(t, err)
	defer cleanup()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/a.txt\n/b.txt\n", string(content))
}

func TestWriteTempList_CleanupRemovesFile(t *testing.T) {
	path, cleanup, err := writeTempList([]string{"a.txt"})
	require.NoError(t, err)

	cleanup()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFake_CopiesSelectedFilesAndSkipsExcluded(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("world"), 0o644))

	f := &Fake{}
	err := f.Transfer(nil, src, dst, []string{"a.txt", "b.txt"}, []string{"b.txt"}, "", nil)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	_, err = os.Stat(filepath.Join(dst, "b.txt"))
	assert.True(t, os.IsNotExist(err))

	require.Len(t, f.Calls, 1)
	assert.Equal(t, src, f.Calls[0].SrcRoot)
}

func TestFake_NilFilesCopiesWholeTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("x"), 0o644))

	f := &Fake{}
	err := f.Transfer(nil, src, dst, nil, nil, "", nil)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dst, "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))
}

func TestFake_SkipsSymlinks(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(src, "real.txt"), filepath.Join(src, "link.txt")))

	f := &Fake{}
	err := f.Transfer(nil, src, dst, []string{"real.txt", "link.txt"}, nil, "", nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dst, "link.txt"))
	assert.True(t, os.IsNotExist(err))
}
