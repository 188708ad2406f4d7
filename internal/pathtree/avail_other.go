//go:build !linux

package pathtree

import (
	"fmt"
	"syscall"
)

// AvailableSpace returns the free space available to an unprivileged user
// on the filesystem containing Root, in bytes.
func (t *Tree) AvailableSpace() (uint64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(t.Root, &st); err != nil {
		return 0, fmt.Errorf("pathtree: statfs %s: %w", t.Root, err)
	}

	return uint64(st.Bsize) * uint64(st.Bavail), nil
}
