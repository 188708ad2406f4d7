// Package lock provides the per-profile advisory lock described in spec
// §5: acquired before a sync run begins, released on process exit by any
// path (normal, error, or signal). Grounded on OpenMined-syftbox's
// internal/client/workspace/workspace.go and internal/client/apps/app_manager.go,
// both of which guard a single mutable resource with a gofrs/flock.Flock
// acquired via TryLock and released with defer.
package lock

import (
	"fmt"

	"github.com/gofrs/flock"

	"github.com/nullpilot/retainsync/internal/errs"
)

// ProfileLock guards a single profile directory against concurrent sync
// invocations. Two different profiles lock independent files and may run
// in parallel in separate processes.
type ProfileLock struct {
	fl *flock.Flock
}

// Acquire attempts to take the advisory lock at lockPath (conventionally
// a ".lock" file inside the profile directory). It does not block: a
// held lock surfaces immediately as a *errs.StatusError, matching spec
// §5's "another operation is already taking place" error class.
func Acquire(lockPath string) (*ProfileLock, error) {
	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock: acquire %s: %w", lockPath, err)
	}
	if !locked {
		return nil, errs.NewStatus("another operation is already taking place on this profile")
	}

	return &ProfileLock{fl: fl}, nil
}

// Release unlocks the profile. Safe to call from a deferred statement on
// every exit path, including after a signal-triggered cleanup.
func (l *ProfileLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
