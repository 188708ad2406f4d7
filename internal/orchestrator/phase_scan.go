package orchestrator

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nullpilot/retainsync/internal/clock"
	"github.com/nullpilot/retainsync/internal/pathtree"
)

// buildSnapshot implements spec §4.8 step 4 (and its re-takes after
// deletions/renames): four filesystem enumerations plus the exclude
// pattern expansion. The exclude patterns are expanded again on every
// call, so a run that re-takes the snapshot globs them more than once.
func (o *Orchestrator) buildSnapshot(ctx context.Context) (*snapshot, error) {
	cfg := &o.cfg

	localFiles, err := cfg.LocalTree.Enumerate(pathtree.Filters{Files: true})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: enumerate local files: %w", err)
	}
	localDirs, err := cfg.LocalTree.Enumerate(pathtree.Filters{Dirs: true})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: enumerate local dirs: %w", err)
	}
	localSymlinks, err := cfg.LocalTree.Enumerate(pathtree.Filters{Symlinks: true})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: enumerate local symlinks: %w", err)
	}

	remoteFiles, err := cfg.RemoteTree.Enumerate(pathtree.Filters{Files: true})
	if err != nil {
		return nil, wrapRemoteErr(fmt.Errorf("orchestrator: enumerate remote files: %w", err))
	}
	remoteDirs, err := cfg.RemoteTree.Enumerate(pathtree.Filters{Dirs: true})
	if err != nil {
		return nil, wrapRemoteErr(fmt.Errorf("orchestrator: enumerate remote dirs: %w", err))
	}

	excludeAbs, excludeRel, err := excludeExpand(cfg.ExcludePath, cfg.LocalTree.Root)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: expand exclude patterns: %w", err)
	}

	return &snapshot{
		localFiles:    localFiles,
		localDirs:     localDirs,
		localSymlinks: localSymlinks,
		remoteFiles:   remoteFiles,
		remoteDirs:    remoteDirs,
		excludeAbs:    excludeAbs,
		excludeRel:    excludeRel,
	}, nil
}

// cleanupTrash implements spec §4.8 step 5: remove remote-DB entries
// marked deleted whose renamed file no longer exists on the remote disk
// (it was emptied from the trash by a prior empty-trash run or manually).
func (o *Orchestrator) cleanupTrash(ctx context.Context, snap *snapshot) error {
	cfg := &o.cfg

	deletedTrue := true
	trashed, err := cfg.RemoteDB.GetTree(ctx, "", nil, &deletedTrue, nil)
	if err != nil {
		return fmt.Errorf("orchestrator: list trashed entries: %w", err)
	}

	onDisk := keysSet(snap.remoteFiles).Union(keysSet(snap.remoteDirs))

	gone := make(map[string]bool)
	for path := range trashed {
		if !onDisk.Contains(path) {
			gone[path] = true
		}
	}

	if len(gone) == 0 {
		return nil
	}

	if err := cfg.RemoteDB.Remove(ctx, gone); err != nil {
		return fmt.Errorf("orchestrator: cleanup trash: %w", err)
	}

	return nil
}

// computeAdded implements spec §4.8 step 6: a path is added iff it is on
// disk and absent from the relevant database.
func (o *Orchestrator) computeAdded(ctx context.Context, snap *snapshot) (addedLocal, addedRemote mapset.Set[string]) {
	cfg := &o.cfg

	known, _ := cfg.ProfileDB.GetTree(ctx, "", nil)
	remoteKnown, _ := cfg.RemoteDB.GetTree(ctx, "", nil, nil, nil)

	addedLocal = mapset.NewSet[string]()
	for path := range snap.localFiles {
		if _, ok := known[path]; !ok {
			addedLocal.Add(path)
		}
	}
	for path := range snap.localDirs {
		if _, ok := known[path]; !ok {
			addedLocal.Add(path)
		}
	}

	addedRemote = mapset.NewSet[string]()
	for path := range snap.remoteFiles {
		if _, ok := remoteKnown[path]; !ok {
			addedRemote.Add(path)
		}
	}
	for path := range snap.remoteDirs {
		if _, ok := remoteKnown[path]; !ok {
			addedRemote.Add(path)
		}
	}

	return addedLocal, addedRemote
}

// computeModified implements spec §4.8 step 8: a tracked file is
// modified when its on-disk mtime is newer than the profile's last
// sync time; on the remote side, an entry whose DB last_sync column is
// newer than the profile's last sync also counts (it was synced there
// by another client since).
func (o *Orchestrator) computeModified(ctx context.Context, snap *snapshot) (modifiedLocal, modifiedRemote mapset.Set[string], err error) {
	cfg := &o.cfg
	lastSync := cfg.Metadata.LastSyncUTC

	known, err := cfg.ProfileDB.GetTree(ctx, "", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: read profile db: %w", err)
	}
	remoteKnown, err := cfg.RemoteDB.GetTree(ctx, "", nil, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: read remote db: %w", err)
	}

	modifiedLocal = mapset.NewSet[string]()
	for path, stat := range snap.localFiles {
		if _, tracked := known[path]; !tracked {
			continue
		}
		if clock.UTCSeconds(stat.ModTime) > lastSync {
			modifiedLocal.Add(path)
		}
	}

	modifiedRemote = mapset.NewSet[string]()
	for path, stat := range snap.remoteFiles {
		if _, tracked := remoteKnown[path]; !tracked {
			continue
		}
		if clock.UTCSeconds(stat.ModTime) > lastSync {
			modifiedRemote.Add(path)
		}
	}

	notDeleted := false
	notDir := false
	recentlySynced, err := cfg.RemoteDB.GetTree(ctx, "", &notDir, &notDeleted, &lastSync)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: read recently-synced remote entries: %w", err)
	}
	for path := range recentlySynced {
		modifiedRemote.Add(path)
	}

	return modifiedLocal, modifiedRemote, nil
}
