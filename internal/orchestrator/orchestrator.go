// Package orchestrator sequences the sync command's fixed phase order
// (spec §4.8): snapshot, trash cleanup, added/modified/deleted
// computation, conflict resolution, remote push, local symlink overlay,
// profile DB update, priority solve, local materialize/demote, excluded
// file pruning, and metadata write. It is grounded on the teacher's
// internal/sync/orchestrator.go: an explicit config struct (carrying the
// logger) threaded through every phase, no package-level globals — but
// single-drive and single-threaded per spec §5, since
// there is only ever one profile per invocation.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nullpilot/retainsync/internal/clock"
	"github.com/nullpilot/retainsync/internal/conflict"
	"github.com/nullpilot/retainsync/internal/deletion"
	"github.com/nullpilot/retainsync/internal/errs"
	"github.com/nullpilot/retainsync/internal/exclude"
	"github.com/nullpilot/retainsync/internal/metadata"
	"github.com/nullpilot/retainsync/internal/pathtree"
	"github.com/nullpilot/retainsync/internal/priority"
	"github.com/nullpilot/retainsync/internal/profile"
	"github.com/nullpilot/retainsync/internal/profiledb"
	"github.com/nullpilot/retainsync/internal/remotedb"
	"github.com/nullpilot/retainsync/internal/transfer"
)

// Config bundles every resource a sync run needs, passed explicitly
// rather than held behind a package-level global (spec §9, "Global
// mutable config").
type Config struct {
	Profile       *profile.Profile
	ProfileID     string
	LocalTree     *pathtree.Tree
	RemoteTree    *pathtree.Tree
	ProfileDB     *profiledb.Store
	RemoteDB      *remotedb.Store
	Metadata      *metadata.Document
	MetadataPath  string
	ExcludePath   string
	RemoteMetaDir string
	Transfer      transfer.Tool
	Logger        *slog.Logger

	// Now returns the current time; overridable for deterministic tests.
	Now func() time.Time
}

// Orchestrator runs one sync invocation to completion.
type Orchestrator struct {
	cfg Config
}

// New returns an Orchestrator bound to cfg. Callers are responsible for
// acquiring the profile lock and opening cfg's databases before calling
// Run, and for closing/releasing them afterward.
func New(cfg Config) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{cfg: cfg}
}

// snapshot holds the per-run filesystem views computed once at phase 4
// and threaded through the rest of the run. Several phases mutate the
// trees (deletions, renames, new symlinks); re-enumeration happens
// explicitly where the spec calls for it rather than implicitly reusing
// a stale snapshot.
type snapshot struct {
	localFiles    map[string]pathtree.Stat
	localDirs     map[string]pathtree.Stat
	localSymlinks map[string]pathtree.Stat
	remoteFiles   map[string]pathtree.Stat
	remoteDirs    map[string]pathtree.Stat

	excludeAbs mapset.Set[string]
	excludeRel mapset.Set[string]
}

// Run executes the full fixed phase sequence of spec §4.8, steps 2-18.
// Step 1 (acquire profile lock) is the caller's responsibility, since the
// lock must be held before the databases in Config are even opened.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := &o.cfg
	log := cfg.Logger

	if err := o.copyExcludeToRemote(); err != nil {
		return err
	}

	snap, err := o.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	if err := o.cleanupTrash(ctx, snap); err != nil {
		return err
	}

	addedLocal, addedRemote := o.computeAdded(ctx, snap)
	log.Debug("computed added paths", slog.Int("local", addedLocal.Cardinality()), slog.Int("remote", addedRemote.Cardinality()))

	if err := o.runDeletions(ctx, snap); err != nil {
		return err
	}

	// Deletions can remove paths from the trees; re-snapshot before
	// computing modifications and conflicts so stale entries don't leak
	// through.
	snap, err = o.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	modifiedLocal, modifiedRemote, err := o.computeModified(ctx, snap)
	if err != nil {
		return err
	}

	isDir := func(path string) bool {
		_, isLocalDir := snap.localDirs[path]
		_, isRemoteDir := snap.remoteDirs[path]
		return isLocalDir || isRemoteDir
	}

	now := cfg.Now()
	result, err := conflict.Resolve(
		cfg.LocalTree, cfg.RemoteTree,
		modifiedLocal.Union(addedLocal), modifiedRemote.Union(addedRemote),
		isDir, now,
	)
	if err != nil {
		return err
	}

	if err := o.applyConflictRenames(ctx, result); err != nil {
		return err
	}

	// Renames change what's on disk; re-snapshot once more before pushing.
	snap, err = o.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	if err := o.pushLocalToRemote(ctx, snap, result.Local, now); err != nil {
		return err
	}

	if err := o.overlayRemoteAdditions(ctx, snap, result.Remote); err != nil {
		return err
	}

	if err := o.updateProfileDB(ctx, snap, result.All); err != nil {
		return err
	}

	remoteExcluded := snap.excludeRel.Intersect(allPathsOf(snap).Union(result.All))

	selected, err := o.solvePriority(ctx, snap, remoteExcluded)
	if err != nil {
		return err
	}

	if err := o.materializeLocal(ctx, selected); err != nil {
		return err
	}

	if err := o.pruneExcluded(ctx, remoteExcluded); err != nil {
		return err
	}

	syncDurable()

	cfg.Metadata.LastSyncUTC = clock.UTCSeconds(cfg.Now())
	if err := cfg.Metadata.Save(cfg.MetadataPath); err != nil {
		return fmt.Errorf("orchestrator: save metadata: %w", err)
	}

	return nil
}

// copyExcludeToRemote implements spec §4.8 step 2: copy this client's
// exclude file into its per-client slot under the remote metadata
// directory. A missing remote directory at this point means the remote
// is unreachable.
func (o *Orchestrator) copyExcludeToRemote() error {
	cfg := &o.cfg

	data, err := os.ReadFile(cfg.ExcludePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("orchestrator: read exclude file: %w", err)
	}

	slotDir := filepath.Join(cfg.RemoteMetaDir, "exclude")
	if err := os.MkdirAll(slotDir, 0o755); err != nil {
		return errs.NewServer("the connection to the remote directory was lost", err)
	}

	slot := filepath.Join(slotDir, cfg.ProfileID)
	if err := os.WriteFile(slot, data, 0o644); err != nil {
		return errs.NewServer("the connection to the remote directory was lost", err)
	}

	return nil
}

func allPathsOf(snap *snapshot) mapset.Set[string] {
	return keysSet(snap.localFiles).
		Union(keysSet(snap.localDirs)).
		Union(keysSet(snap.remoteFiles)).
		Union(keysSet(snap.remoteDirs))
}

func keysSet(m map[string]pathtree.Stat) mapset.Set[string] {
	s := mapset.NewSet[string]()
	for k := range m {
		s.Add(k)
	}
	return s
}

func boolMap(s mapset.Set[string]) map[string]bool {
	out := make(map[string]bool, s.Cardinality())
	for p := range s.Iter() {
		out[p] = true
	}
	return out
}

// wrapRemoteErr converts a filesystem error touching the remote tree
// into a *errs.ServerError, matching spec §7's treatment of "the remote
// directory became unreachable mid-operation".
func wrapRemoteErr(err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return errs.NewServer("the connection to the remote directory was lost", err)
	}
	return err
}

// excludeExpand parses the exclude file and globs its patterns against
// localRoot. It runs on every buildSnapshot call, not once per run.
func excludeExpand(excludePath, localRoot string) (mapset.Set[string], mapset.Set[string], error) {
	patterns, err := exclude.ParseFile(excludePath)
	if err != nil {
		if os.IsNotExist(err) {
			return mapset.NewSet[string](), mapset.NewSet[string](), nil
		}
		return nil, nil, err
	}

	return exclude.New(patterns).Glob(localRoot)
}
