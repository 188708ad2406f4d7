//go:build linux

package orchestrator

import "syscall"

// syncDurable flushes buffered filesystem writes before the sync metadata
// is stamped, so a crash immediately after Run returns can't leave the
// on-disk trees ahead of what LastSyncUTC records.
func syncDurable() {
	syscall.Sync()
}
