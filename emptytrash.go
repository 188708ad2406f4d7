package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nullpilot/retainsync/internal/lock"
	"github.com/nullpilot/retainsync/internal/pathtree"
	"github.com/nullpilot/retainsync/internal/profile"
	"github.com/nullpilot/retainsync/internal/remotedb"
)

func newEmptyTrashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "empty-trash <profile>",
		Short: "Permanently remove every soft-deleted file on the remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmptyTrash(cmd.Context(), args[0], cliContextFrom(cmd.Context()).Logger)
		},
	}
}

// runEmptyTrash permanently removes every remote-DB entry with
// deleted=true (spec's S6 scenario) and reports the count in the
// original tool's exact wording, singular or not.
func runEmptyTrash(ctx context.Context, name string, logger *slog.Logger) error {
	dir, err := profile.Dir(name)
	if err != nil {
		return err
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
	remoteDB, err := remotedb.Open(ctx, filepath.Join(remoteMetaDir, "remote.db"), logger)
	if err != nil {
		return err
	}
	defer remoteDB.Close()

	deletedTrue := true
	trashed, err := remoteDB.GetTree(ctx, "", nil, &deletedTrue, nil)
	if err != nil {
		return fmt.Errorf("empty-trash: list trashed entries: %w", err)
	}

	remoteTree := pathtree.NewRemoteTree(remoteRoot)
	count := 0
	var freed int64

	for path := range trashed {
		if st, err := remoteTree.StatRel(path); err == nil {
			freed += st.Size
		}
		if err := remoteTree.RemovePath(path); err != nil {
			return fmt.Errorf("empty-trash: remove %s: %w", path, err)
		}
		if err := remoteDB.Remove(ctx, map[string]bool{path: true}); err != nil {
			return fmt.Errorf("empty-trash: remove db entry %s: %w", path, err)
		}
		count++
	}

	fmt.Printf("%d files deleted\n", count)
	logger.Info("empty-trash freed space", "profile", name, "files", count, "freed", humanize.Bytes(uint64(freed)))

	return nil
}
