package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nullpilot/retainsync/internal/errs"
	"github.com/nullpilot/retainsync/internal/lock"
	"github.com/nullpilot/retainsync/internal/metadata"
	"github.com/nullpilot/retainsync/internal/orchestrator"
	"github.com/nullpilot/retainsync/internal/pathtree"
	"github.com/nullpilot/retainsync/internal/profile"
	"github.com/nullpilot/retainsync/internal/profiledb"
	"github.com/nullpilot/retainsync/internal/remotedb"
	"github.com/nullpilot/retainsync/internal/transfer"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <profile>",
		Short: "Reconcile a profile's local directory against its remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), args[0], cliContextFrom(cmd.Context()).Logger)
		},
	}
}

// runSync implements spec §4.8's orchestrator invocation, wiring the
// profile's databases and trees together and releasing the profile lock
// on every exit path.
func runSync(ctx context.Context, name string, logger *slog.Logger) error {
	dir, err := profile.Dir(name)
	if err != nil {
		return err
	}

	infoPath, err := profile.InfoPath(name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(infoPath); os.IsNotExist(err) {
		return errs.NewInput("profile %q is not initialized; run \"retain-sync init %s\" first", name, name)
	}

	doc, err := metadata.Load(infoPath)
	if err != nil {
		return fmt.Errorf("sync: load metadata: %w", err)
	}

	if doc.IsPartial() {
		return errs.NewStatus("profile %q was never fully initialized; run \"retain-sync reset %s\" and initialize it again", name, name)
	}

	lockPath := filepath.Join(dir, ".lock")
	profileLock, err := lock.Acquire(lockPath)
	if err != nil {
		return err
	}
	defer profileLock.Release()

	p, err := loadNamedProfile(name)
	if err != nil {
		return err
	}

	remoteRoot, err := remoteRootFor(p, name)
	if err != nil {
		return err
	}

	remoteMetaDir := filepath.Join(remoteRoot, ".retain-sync")
	if err := os.MkdirAll(remoteMetaDir, 0o755); err != nil {
		return errs.NewServer("the connection to the remote directory was lost", err)
	}

	localDBPath, err := profile.LocalDBPath(name)
	if err != nil {
		return err
	}

	profileDB, err := profiledb.Open(ctx, localDBPath, logger)
	if err != nil {
		return fmt.Errorf("sync: open profile db: %w", err)
	}
	defer profileDB.Close()

	remoteDB, err := remotedb.Open(ctx, filepath.Join(remoteMetaDir, "remote.db"), logger)
	if err != nil {
		return errs.NewServer("the connection to the remote directory was lost", err)
	}
	defer remoteDB.Close()

	excludePath, err := profile.ExcludePath(name)
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Config{
		Profile:       p,
		ProfileID:     doc.ID,
		LocalTree:     pathtree.NewLocalTree(p.LocalDir),
		RemoteTree:    pathtree.NewRemoteTree(remoteRoot),
		ProfileDB:     profileDB,
		RemoteDB:      remoteDB,
		Metadata:      doc,
		MetadataPath:  infoPath,
		ExcludePath:   excludePath,
		RemoteMetaDir: remoteMetaDir,
		Transfer:      transfer.NewRsync(),
		Logger:        logger,
		Now:           time.Now,
	})

	if err := orch.Run(ctx); err != nil {
		return err
	}

	if !flagQuiet {
		fmt.Printf("Sync complete for profile %q.\n", name)
	}

	return nil
}
