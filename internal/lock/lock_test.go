package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullpilot/retainsync/internal/errs"
)

func TestAcquireAndRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".lock")

	l, err := Acquire(lockPath)
	require.NoError(t, err)
	require.NotNil(t, l)

	require.NoError(t, l.Release())
}

func TestAcquire_FailsWhenAlreadyHeld(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".lock")

	first, err := Acquire(lockPath)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(lockPath)
	require.Error(t, err)

	var statusErr *errs.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestRelease_NilReceiverIsSafe(t *testing.T) {
	var l *ProfileLock
	assert.NoError(t, l.Release())
}
