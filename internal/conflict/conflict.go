// Package conflict resolves paths that were modified on both the local
// and remote side of a sync profile between two runs. It is grounded on
// original_source/zielen/commands/sync.py's _handle_conflicts: the older
// side of a conflicting file is renamed with a timestamp suffix; the
// newer side is left in place and synced normally.
package conflict

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nullpilot/retainsync/internal/pathtree"
)

// Side identifies which tree a renamed path belonged to.
type Side int

const (
	// SideLocal marks a path renamed in the local tree.
	SideLocal Side = iota
	// SideRemote marks a path renamed in the remote tree.
	SideRemote
)

// Rename records one conflict-driven rename.
type Rename struct {
	Side    Side
	OldPath string
	NewPath string
}

// Result is the outcome of resolving conflicts between two candidate sets
// of modified/added paths. Local and Remote are the path sets each side
// should be treated as "updated" going forward — with renamed-away paths
// removed and renamed-to paths added — and All is their union.
type Result struct {
	Local   mapset.Set[string]
	Remote  mapset.Set[string]
	All     mapset.Set[string]
	Renames []Rename
}

// Timestamp produces the spec's conflict/deletion suffix grammar:
// {stem}_{keyword}-YYYYMMDD-HHMMSS{ext}. now is formatted in its own
// location; the sync command passes local wall-clock time.
func Timestamp(relpath, keyword string, now time.Time) string {
	dir := filepath.Dir(relpath)
	base := filepath.Base(relpath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	newBase := fmt.Sprintf("%s_%s-%s%s", stem, keyword, now.Format("20060102-150405"), ext)

	if dir == "." {
		return newBase
	}

	return filepath.ToSlash(filepath.Join(dir, newBase))
}

// Resolve finds the intersection of localPaths and remotePaths (paths
// modified or added on both sides since the last sync) and, for each
// conflicting path that is a file, renames the side with the older mtime.
// Directories never conflict at the path level — their children are
// evaluated independently, so directory paths present in both sets are
// left untouched here.
//
// localTree/remoteTree provide the mtimes and perform the renames.
// isDir reports whether path is a directory; when isDir is nil, every
// conflicting path is treated as a file.
func Resolve(
	localTree, remoteTree *pathtree.Tree,
	localPaths, remotePaths mapset.Set[string],
	isDir func(relpath string) bool,
	now time.Time,
) (Result, error) {
	conflicts := localPaths.Intersect(remotePaths)

	oldLocal := mapset.NewSet[string]()
	newLocal := mapset.NewSet[string]()
	oldRemote := mapset.NewSet[string]()
	newRemote := mapset.NewSet[string]()
	var renames []Rename

	for path := range conflicts.Iter() {
		if isDir != nil && isDir(path) {
			continue
		}

		localStat, err := localTree.StatRel(path)
		if err != nil {
			return Result{}, fmt.Errorf("conflict: stat local %s: %w", path, err)
		}

		remoteStat, err := remoteTree.StatRel(path)
		if err != nil {
			return Result{}, fmt.Errorf("conflict: stat remote %s: %w", path, err)
		}

		switch {
		case localStat.ModTime.Before(remoteStat.ModTime):
			newPath := Timestamp(path, "conflict", now)
			if err := localTree.Rename(path, newPath); err != nil {
				return Result{}, fmt.Errorf("conflict: rename local %s: %w", path, err)
			}
			oldLocal.Add(path)
			newLocal.Add(newPath)
			renames = append(renames, Rename{Side: SideLocal, OldPath: path, NewPath: newPath})

		case remoteStat.ModTime.Before(localStat.ModTime):
			newPath := Timestamp(path, "conflict", now)
			if err := remoteTree.Rename(path, newPath); err != nil {
				return Result{}, fmt.Errorf("conflict: rename remote %s: %w", path, err)
			}
			oldRemote.Add(path)
			newRemote.Add(newPath)
			renames = append(renames, Rename{Side: SideRemote, OldPath: path, NewPath: newPath})

		default:
			// Equal mtimes: no action. The path remains in both modified
			// sets and may cause a no-op transfer later; that is safe and
			// intentionally left as-is (spec §9, Open Questions).
		}
	}

	local := localPaths.Difference(oldLocal).Union(newLocal)
	remote := remotePaths.Difference(oldRemote).Union(newRemote)

	return Result{
		Local:   local,
		Remote:  remote,
		All:     local.Union(remote),
		Renames: renames,
	}, nil
}
