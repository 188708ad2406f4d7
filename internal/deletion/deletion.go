// Package deletion computes and executes the set differences that
// propagate a deletion from one side of a sync profile to the other,
// grounded on original_source/zielen/commands/sync.py's
// _compute_deleted/_rm_local_files/_rm_remote_files/_trash_files.
package deletion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nullpilot/retainsync/internal/clock"
	"github.com/nullpilot/retainsync/internal/conflict"
	"github.com/nullpilot/retainsync/internal/pathtree"
)

// Computed holds the three path sets spec §4.5 derives from a snapshot of
// the known (profile DB), local, and remote path sets.
type Computed struct {
	// LocalToDelete is present in the profile DB but gone from the remote
	// tree: the remote-side deletion must propagate to the local tree.
	LocalToDelete mapset.Set[string]
	// RemoteToDelete is present in the profile DB but gone from the local
	// tree: the local-side deletion must propagate to the remote tree,
	// either as a hard delete or (by default) a soft delete/trash.
	RemoteToDelete mapset.Set[string]
	// Trash is the subset of RemoteToDelete that should be soft-deleted
	// (renamed with a _deleted-<timestamp> suffix) rather than hard
	// deleted, because the file was not found in any trash directory.
	Trash mapset.Set[string]
}

// Compute derives the deletion sets from the known/local/remote path
// snapshots. When deleteAlways is true, Trash is left empty and every
// path in RemoteToDelete is hard-deleted. Otherwise, each path in
// RemoteToDelete is checked against trashDirs (as a file basename lookup
// under each configured trash directory): files not found there are
// trashed (soft-deleted); files the user already trashed explicitly are
// hard-deleted. Directories are never explicitly trashed — spec §4.5
// says they disappear from the remote DB when their last child does, so
// only file-kind entries participate in the trash check.
func Compute(
	known, local, remote mapset.Set[string],
	deleteAlways bool,
	trashDirs []string,
	isRemoteDir func(relpath string) bool,
) Computed {
	c := Computed{
		LocalToDelete:  known.Difference(remote),
		RemoteToDelete: known.Difference(local),
		Trash:          mapset.NewSet[string](),
	}

	if deleteAlways {
		return c
	}

	trashed := mapset.NewSet[string]()
	for path := range c.RemoteToDelete.Iter() {
		if isRemoteDir != nil && isRemoteDir(path) {
			continue
		}
		if !inTrash(path, trashDirs) {
			trashed.Add(path)
		}
	}

	c.Trash = trashed
	c.RemoteToDelete = c.RemoteToDelete.Difference(trashed)

	return c
}

// inTrash reports whether a file with the same basename as relpath
// exists in any of the configured trash directories — a user explicitly
// emptied or moved the file there themselves, so the sync should treat
// it as already handled rather than soft-deleting it again.
func inTrash(relpath string, trashDirs []string) bool {
	base := filepath.Base(relpath)

	for _, dir := range trashDirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, base)); err == nil {
			return true
		}
	}

	return false
}

// DBUpdater is the pair of database handles a deletion executor keeps
// consistent with the filesystem. Both internal/profiledb.Store and
// internal/remotedb.Store satisfy the relevant subset via small adapter
// closures constructed by the orchestrator.
type DBUpdater struct {
	RemoveProfile func(ctx context.Context, paths map[string]bool) error
	RemoveRemote  func(ctx context.Context, paths map[string]bool) error
	AddRemote     func(ctx context.Context, files, dirs map[string]bool, lastSync float64, deleted bool) error
}

// RemoveLocalFiles deletes every path in paths from localTree and removes
// it from both databases. Every successfully-removed path is recorded in
// a local buffer before the loop returns, and the buffer is flushed to
// both databases regardless of whether a deletion mid-loop fails — spec
// §7 "Propagation policy": a partial deletion must still be reflected so
// the next sync doesn't try to re-delete (or worse, re-materialize) it.
func RemoveLocalFiles(ctx context.Context, localTree *pathtree.Tree, db DBUpdater, paths mapset.Set[string]) error {
	deleted := make(map[string]bool)
	var firstErr error

	for _, path := range sortedChildrenFirst(paths) {
		if err := localTree.RemovePath(path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deletion: remove local %s: %w", path, err)
			break
		}
		deleted[path] = true
	}

	if err := db.RemoveRemote(ctx, deleted); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := db.RemoveProfile(ctx, deleted); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// RemoveRemoteFiles deletes every path in paths from remoteTree (hard
// delete) and removes it from both databases, with the same
// buffer-then-flush recovery semantics as RemoveLocalFiles.
func RemoveRemoteFiles(ctx context.Context, remoteTree *pathtree.Tree, db DBUpdater, paths mapset.Set[string]) error {
	deleted := make(map[string]bool)
	var firstErr error

	for _, path := range sortedChildrenFirst(paths) {
		if err := remoteTree.RemovePath(path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deletion: remove remote %s: %w", path, err)
			break
		}
		deleted[path] = true
	}

	if err := db.RemoveProfile(ctx, deleted); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := db.RemoveRemote(ctx, deleted); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// TrashFiles soft-deletes every path in paths: each is renamed in
// remoteTree to its _deleted-<timestamp> form, removed from the profile
// DB, and re-added to the remote DB under its new name with deleted=true.
// isRemoteDir classifies each original path so the new name is re-added
// with the right is_directory flag (directories are never explicitly
// trashed by Compute, but the classifier is threaded through regardless
// for symmetry with the original).
func TrashFiles(
	ctx context.Context,
	remoteTree *pathtree.Tree,
	db DBUpdater,
	paths mapset.Set[string],
	isRemoteDir func(relpath string) bool,
	now time.Time,
) error {
	oldRenamed := make(map[string]bool)
	newFiles := make(map[string]bool)
	newDirs := make(map[string]bool)
	var firstErr error

	for _, path := range sortedChildrenFirst(paths) {
		newPath := conflict.Timestamp(path, "deleted", now)

		if err := remoteTree.Rename(path, newPath); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deletion: trash %s: %w", path, err)
			break
		}

		oldRenamed[path] = true
		if isRemoteDir != nil && isRemoteDir(path) {
			newDirs[newPath] = true
		} else {
			newFiles[newPath] = true
		}
	}

	if err := db.RemoveProfile(ctx, oldRenamed); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := db.RemoveRemote(ctx, oldRenamed); err != nil && firstErr == nil {
		firstErr = err
	}

	if err := db.AddRemote(ctx, newFiles, newDirs, clock.UTCSeconds(now), true); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// sortedChildrenFirst orders paths by descending separator count so a
// directory's children are always deleted before the directory itself —
// spec §3's relative-path ordering invariant.
func sortedChildrenFirst(paths mapset.Set[string]) []string {
	out := paths.ToSlice()

	depth := func(p string) int {
		n := 0
		for _, r := range p {
			if r == '/' {
				n++
			}
		}
		return n
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && depth(out[j-1]) < depth(out[j]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}

	return out
}
