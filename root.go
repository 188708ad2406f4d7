package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nullpilot/retainsync/internal/errs"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagJSON    bool
	flagVerbose bool
	flagQuiet   bool
)

// CLIContext bundles the logger built from global flags. Created once in
// PersistentPreRunE and read back by every subcommand via cliContextFrom,
// eliminating redundant buildLogger calls in RunE handlers.
type CLIContext struct {
	Logger *slog.Logger
	JSON   bool
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("BUG: CLIContext not found in context — PersistentPreRunE must run before any RunE")
	}
	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "retain-sync",
		Short:   "Selective file-synchronization engine",
		Long:    "Keeps a local directory as a budget-constrained, priority-ranked subset of an authoritative remote directory.",
		Version: version,
		// Silence Cobra's default error/usage printing — errors are
		// formatted and exited by exitOnError instead.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc := &CLIContext{Logger: buildLogger(), JSON: flagJSON}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newListProfilesCmd())
	cmd.AddCommand(newEmptyTrashCmd())

	return cmd
}

// buildLogger creates an slog.Logger whose level is controlled by the
// mutually-exclusive --verbose/--quiet flags (default: warn).
func buildLogger() *slog.Logger {
	level := slog.LevelWarn

	if flagVerbose {
		level = slog.LevelInfo
	}
	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError implements spec §7's taxonomy-to-exit-code mapping: every
// fatal error prints a single "Error: <message>" line to stderr and exits
// 1. A *errs.TransferError additionally prints the transport tool's
// trailing stderr, indented — the partial-status recovery instruction is
// folded into the StatusError's own message at the point it's raised,
// since only the caller there knows which condition (locked vs. partial)
// applies.
func exitOnError(err error) {
	var transferErr *errs.TransferError

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if errors.As(err, &transferErr) {
		for _, line := range transferErr.Stderr {
			fmt.Fprintf(os.Stderr, "    %s\n", line)
		}
	}

	os.Exit(1)
}
