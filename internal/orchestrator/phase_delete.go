package orchestrator

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nullpilot/retainsync/internal/conflict"
	"github.com/nullpilot/retainsync/internal/deletion"
)

// dbUpdater builds the small adapter deletion.RemoveLocalFiles/
// RemoveRemoteFiles/TrashFiles need, closing over this run's two stores.
func (o *Orchestrator) dbUpdater() deletion.DBUpdater {
	cfg := &o.cfg
	return deletion.DBUpdater{
		RemoveProfile: cfg.ProfileDB.RemoveAll,
		RemoveRemote:  cfg.RemoteDB.Remove,
		AddRemote:     cfg.RemoteDB.Add,
	}
}

// runDeletions implements spec §4.8 step 7: derive the deletion sets
// from the known/local/remote snapshot and execute local removals, then
// remote hard-deletes and soft-deletes (trash).
func (o *Orchestrator) runDeletions(ctx context.Context, snap *snapshot) error {
	cfg := &o.cfg

	known, err := cfg.ProfileDB.GetTree(ctx, "", nil)
	if err != nil {
		return fmt.Errorf("orchestrator: read profile db: %w", err)
	}

	knownSet := mapset.NewSet[string]()
	for path := range known {
		knownSet.Add(path)
	}

	localSet := keysSet(snap.localFiles).Union(keysSet(snap.localDirs)).Union(keysSet(snap.localSymlinks))
	remoteSet := keysSet(snap.remoteFiles).Union(keysSet(snap.remoteDirs))

	isRemoteDir := func(path string) bool {
		_, ok := snap.remoteDirs[path]
		return ok
	}

	computed := deletion.Compute(knownSet, localSet, remoteSet, cfg.Profile.DeleteAlways, cfg.Profile.TrashDirs, isRemoteDir)

	updater := o.dbUpdater()

	if err := deletion.RemoveLocalFiles(ctx, cfg.LocalTree, updater, computed.LocalToDelete); err != nil {
		return fmt.Errorf("orchestrator: remove local files: %w", err)
	}

	if err := deletion.RemoveRemoteFiles(ctx, cfg.RemoteTree, updater, computed.RemoteToDelete); err != nil {
		return wrapRemoteErr(fmt.Errorf("orchestrator: remove remote files: %w", err))
	}

	if err := deletion.TrashFiles(ctx, cfg.RemoteTree, updater, computed.Trash, isRemoteDir, cfg.Now()); err != nil {
		return wrapRemoteErr(fmt.Errorf("orchestrator: trash remote files: %w", err))
	}

	return nil
}

// applyConflictRenames implements spec §4.8 step 9's database side
// effects: old paths are removed from both databases; the new paths of
// remote-side renames are added to the remote DB only (as regular,
// non-deleted entries). The new paths of local-side renames reach the
// remote DB when they are pushed in step 10. All new paths reach the
// profile DB later, via the normal updated.all insert in
// step 12 — adding them here would mean an interruption before that step
// leaves them looking deleted on the next run (spec §9, conflict-resolution
// recovery ordering).
func (o *Orchestrator) applyConflictRenames(ctx context.Context, result conflict.Result) error {
	cfg := &o.cfg

	oldPaths := make(map[string]bool)
	newRemoteFiles := make(map[string]bool)
	newRemoteDirs := make(map[string]bool)

	for _, r := range result.Renames {
		oldPaths[r.OldPath] = true
		if r.Side == conflict.SideRemote {
			newRemoteFiles[r.NewPath] = true
		}
	}

	if err := cfg.ProfileDB.RemoveAll(ctx, oldPaths); err != nil {
		return fmt.Errorf("orchestrator: remove conflict-renamed profile entries: %w", err)
	}
	if err := cfg.RemoteDB.Remove(ctx, oldPaths); err != nil {
		return fmt.Errorf("orchestrator: remove conflict-renamed remote entries: %w", err)
	}
	if len(newRemoteFiles) > 0 || len(newRemoteDirs) > 0 {
		if err := cfg.RemoteDB.Add(ctx, newRemoteFiles, newRemoteDirs, 0, false); err != nil {
			return fmt.Errorf("orchestrator: add conflict-renamed remote entries: %w", err)
		}
	}

	return nil
}
