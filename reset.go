package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nullpilot/retainsync/internal/profile"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <profile>",
		Short: "Clear a profile's local state without touching its config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(args[0])
		},
	}
}

// runReset deletes the profile's database and metadata so a later init
// run starts clean, leaving config and exclude untouched — the
// recovery path for a profile stuck in partial status, or one whose
// local state has drifted from what the remote can rebuild.
func runReset(name string) error {
	dir, err := profile.Dir(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("reset: profile %q does not exist", name)
	}

	localDBPath, err := profile.LocalDBPath(name)
	if err != nil {
		return err
	}
	infoPath, err := profile.InfoPath(name)
	if err != nil {
		return err
	}

	for _, p := range []string{localDBPath, localDBPath + "-wal", localDBPath + "-shm", infoPath, filepath.Join(dir, ".lock")} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reset: remove %s: %w", p, err)
		}
	}

	fmt.Printf("Reset profile %q; run \"retain-sync init %s\" to re-initialize.\n", name, name)

	return nil
}
