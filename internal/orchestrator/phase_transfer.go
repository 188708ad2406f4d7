package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nullpilot/retainsync/internal/clock"
	"github.com/nullpilot/retainsync/internal/deletion"
	"github.com/nullpilot/retainsync/internal/exclude"
	"github.com/nullpilot/retainsync/internal/pathtree"
	"github.com/nullpilot/retainsync/internal/priority"
)

func dirsSet(snap *snapshot) mapset.Set[string] {
	return keysSet(snap.localDirs).Union(keysSet(snap.remoteDirs))
}

func remoteDeletedMap(ctx context.Context, o *Orchestrator) (map[string]bool, error) {
	deletedTrue := true
	entries, err := o.cfg.RemoteDB.GetTree(ctx, "", nil, &deletedTrue, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(entries))
	for path := range entries {
		out[path] = true
	}
	return out, nil
}

// pushLocalToRemote implements spec §4.8 step 10: copy locally-updated
// paths to the remote directory and record them in the remote DB with a
// fresh sync time.
func (o *Orchestrator) pushLocalToRemote(ctx context.Context, snap *snapshot, updatedLocal mapset.Set[string], now time.Time) error {
	cfg := &o.cfg
	dirs := dirsSet(snap)

	files := updatedLocal.Difference(dirs)
	updatedDirs := updatedLocal.Intersect(dirs)

	if files.Cardinality() > 0 {
		if err := cfg.Transfer.Transfer(ctx, cfg.LocalTree.Root, cfg.RemoteTree.Root, files.ToSlice(), nil, "Updating remote files...", nil); err != nil {
			return wrapRemoteErr(err)
		}
	}

	if err := cfg.RemoteDB.Add(ctx, boolMap(files), boolMap(updatedDirs), clock.UTCSeconds(now), false); err != nil {
		return fmt.Errorf("orchestrator: add pushed paths to remote db: %w", err)
	}

	for path := range updatedLocal.Iter() {
		if err := cfg.RemoteDB.UpdateSyncTime(ctx, path, clock.UTCSeconds(now)); err != nil {
			return fmt.Errorf("orchestrator: update remote sync time for %s: %w", path, err)
		}
	}

	return nil
}

// overlayRemoteAdditions implements spec §4.8 step 11: lay down local
// symlinks for paths newly present on the remote side, before the
// profile DB is updated, so an interruption before step 12 still leaves
// the local tree pointing at the remote content.
func (o *Orchestrator) overlayRemoteAdditions(ctx context.Context, snap *snapshot, updatedRemote mapset.Set[string]) error {
	cfg := &o.cfg
	dirs := dirsSet(snap)

	files := updatedRemote.Difference(dirs)
	updatedDirs := updatedRemote.Intersect(dirs)

	excludeMap, err := remoteDeletedMap(ctx, o)
	if err != nil {
		return fmt.Errorf("orchestrator: read trashed remote entries: %w", err)
	}

	if err := cfg.RemoteTree.SymlinkTree(cfg.LocalTree.Root, boolMap(files), boolMap(updatedDirs), excludeMap); err != nil {
		return wrapRemoteErr(fmt.Errorf("orchestrator: overlay remote additions: %w", err))
	}

	return nil
}

// updateProfileDB implements spec §4.8 step 12: add every updated path
// to the profile database, inflating new entries' priority when
// configured to do so.
func (o *Orchestrator) updateProfileDB(ctx context.Context, snap *snapshot, updatedAll mapset.Set[string]) error {
	cfg := &o.cfg
	dirs := dirsSet(snap)

	files := updatedAll.Difference(dirs)
	updatedDirs := updatedAll.Intersect(dirs)

	if cfg.Profile.InflatePriority {
		return cfg.ProfileDB.AddInflated(ctx, boolMap(files), boolMap(updatedDirs))
	}

	for path := range files.Iter() {
		if err := cfg.ProfileDB.Add(ctx, path, 0, false); err != nil {
			return err
		}
	}
	for path := range updatedDirs.Iter() {
		if err := cfg.ProfileDB.Add(ctx, path, 0, true); err != nil {
			return err
		}
	}

	return nil
}

// solvePriority implements spec §4.8 step 14: run the two-stage priority
// solver over the profile DB's current tracked paths and combine the
// result with the remote-excluded set, which is always kept local
// regardless of priority.
func (o *Orchestrator) solvePriority(ctx context.Context, snap *snapshot, remoteExcluded mapset.Set[string]) (mapset.Set[string], error) {
	cfg := &o.cfg

	isDir := true
	isFile := false
	dirEntries, err := cfg.ProfileDB.GetTree(ctx, "", &isDir)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read profile dirs: %w", err)
	}
	fileEntries, err := cfg.ProfileDB.GetTree(ctx, "", &isFile)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read profile files: %w", err)
	}

	dirPriorities := make(map[string]float64, len(dirEntries))
	for path, e := range dirEntries {
		dirPriorities[path] = e.Priority
	}
	filePriorities := make(map[string]float64, len(fileEntries))
	for path, e := range fileEntries {
		filePriorities[path] = e.Priority
	}

	remoteFileSizes := make(map[string]int64, len(snap.remoteFiles))
	for path, stat := range snap.remoteFiles {
		remoteFileSizes[path] = stat.Size
	}

	symlinkBlock, err := cfg.LocalTree.BlockSize()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read local block size: %w", err)
	}

	result := priority.Solve(priority.Input{
		StorageLimit:    cfg.Profile.StorageLimitBytes,
		SymlinkBlock:    symlinkBlock,
		AccountForSize:  cfg.Profile.AccountForSize,
		SyncExtraFiles:  cfg.Profile.SyncExtraFiles,
		ProfileDirs:     dirPriorities,
		ProfileFiles:    filePriorities,
		RemoteFileSizes: remoteFileSizes,
	})

	return result.Materialized().Union(remoteExcluded), nil
}

// materializeLocal implements spec §4.8 step 15: remove any materialized
// content that fell out of the selected set, overlay symlinks for
// everything tracked but not selected, then copy every selected path
// down from the remote.
func (o *Orchestrator) materializeLocal(ctx context.Context, selected mapset.Set[string]) error {
	cfg := &o.cfg

	isDir := true
	isFile := false
	trackedDirs, err := cfg.ProfileDB.GetTree(ctx, "", &isDir)
	if err != nil {
		return fmt.Errorf("orchestrator: read tracked dirs: %w", err)
	}
	trackedFiles, err := cfg.ProfileDB.GetTree(ctx, "", &isFile)
	if err != nil {
		return fmt.Errorf("orchestrator: read tracked files: %w", err)
	}

	// A selected directory's own tracked sub-directories must stay
	// selected too, mirroring the original's db_file.get_tree(path)
	// subtree expansion — otherwise a nested tracked dir is diffed as
	// stale, removed, and immediately recreated by the overlay below.
	selectedDirPrefixes := make([]string, 0, len(trackedDirs))
	for path := range trackedDirs {
		if selected.Contains(path) {
			selectedDirPrefixes = append(selectedDirPrefixes, path)
		}
	}

	expanded := selected.Clone()
	for path := range trackedDirs {
		if underAnyPrefix(path, selectedDirPrefixes) {
			expanded.Add(path)
		}
	}
	for path := range trackedFiles {
		if underAnyPrefix(path, selectedDirPrefixes) {
			expanded.Add(path)
		}
	}

	nonSelectedFiles := make(map[string]bool)
	for path := range trackedFiles {
		if !expanded.Contains(path) {
			nonSelectedFiles[path] = true
		}
	}
	nonSelectedDirs := make(map[string]bool)
	for path := range trackedDirs {
		if !expanded.Contains(path) {
			nonSelectedDirs[path] = true
		}
	}

	real, err := cfg.LocalTree.Enumerate(pathtree.Filters{Files: true, Dirs: true})
	if err != nil {
		return fmt.Errorf("orchestrator: enumerate local real entries: %w", err)
	}

	var stale []string
	for path := range real {
		_, isTrackedFile := trackedFiles[path]
		_, isTrackedDir := trackedDirs[path]
		if (isTrackedFile || isTrackedDir) && !expanded.Contains(path) {
			stale = append(stale, path)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		return strings.Count(stale[i], "/") > strings.Count(stale[j], "/")
	})

	for _, path := range stale {
		if err := cfg.LocalTree.RemovePath(path); err != nil {
			return fmt.Errorf("orchestrator: remove stale materialized path %s: %w", path, err)
		}
	}

	excludeMap, err := remoteDeletedMap(ctx, o)
	if err != nil {
		return fmt.Errorf("orchestrator: read trashed remote entries: %w", err)
	}

	if err := cfg.RemoteTree.SymlinkTree(cfg.LocalTree.Root, nonSelectedFiles, nonSelectedDirs, excludeMap); err != nil {
		return wrapRemoteErr(fmt.Errorf("orchestrator: overlay demotion symlinks: %w", err))
	}

	if expanded.Cardinality() > 0 {
		excludeList := make([]string, 0, len(excludeMap))
		for path := range excludeMap {
			excludeList = append(excludeList, path)
		}

		if err := cfg.Transfer.Transfer(ctx, cfg.RemoteTree.Root, cfg.LocalTree.Root, expanded.ToSlice(), excludeList, "Updating local files...", nil); err != nil {
			return wrapRemoteErr(err)
		}
	}

	return nil
}

// underAnyPrefix reports whether path equals or is nested under any of
// prefixes (slash-joined containment).
func underAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix {
			return true
		}
		if len(path) > len(prefix) && strings.HasPrefix(path, prefix) && path[len(prefix)] == '/' {
			return true
		}
	}
	return false
}

// pruneExcluded implements spec §4.8 step 16: remove remote-excluded
// files that are excluded by every client's exclude file, not just this
// one — the "exclude-intersection" rule in the glossary, which stops a
// single client from forcing a global deletion.
func (o *Orchestrator) pruneExcluded(ctx context.Context, remoteExcluded mapset.Set[string]) error {
	cfg := &o.cfg

	if remoteExcluded.Cardinality() == 0 {
		return nil
	}

	slotDir := filepath.Join(cfg.RemoteMetaDir, "exclude")
	entries, err := os.ReadDir(slotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapRemoteErr(fmt.Errorf("orchestrator: list client exclude files: %w", err))
	}

	if len(entries) == 0 {
		return nil
	}

	intersection := remoteExcluded
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		patterns, err := exclude.ParseFile(filepath.Join(slotDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("orchestrator: parse client exclude file %s: %w", entry.Name(), err)
		}

		_, rel, err := exclude.New(patterns).Glob(cfg.LocalTree.Root)
		if err != nil {
			return fmt.Errorf("orchestrator: glob client exclude file %s: %w", entry.Name(), err)
		}

		intersection = intersection.Intersect(rel)
	}

	if intersection.Cardinality() == 0 {
		return nil
	}

	if err := deletion.RemoveRemoteFiles(ctx, cfg.RemoteTree, o.dbUpdater(), intersection); err != nil {
		return wrapRemoteErr(fmt.Errorf("orchestrator: prune fully-excluded remote files: %w", err))
	}

	return nil
}
