package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nullpilot/retainsync/internal/metadata"
	"github.com/nullpilot/retainsync/internal/profile"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <profile>",
		Short: "Create or finish configuring a sync profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0])
		},
	}
}

// runInit implements the init command's config-prompting fallback: any
// config key spec §6 requires but the file doesn't already have is asked
// for interactively, the way the original tool's profile.py does.
func runInit(name string) error {
	dir, err := profile.Dir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("init: create profile directory: %w", err)
	}

	configPath, err := profile.ConfigPath(name)
	if err != nil {
		return err
	}

	raw := map[string]string{}
	if existing, err := godotenv.Read(configPath); err == nil {
		raw = existing
	}

	if profile.NeedsPrompt(raw) {
		fmt.Printf("Configuring profile %q — press enter to leave a value blank.\n", name)

		raw, err = profile.Prompt(raw, os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
	}

	configFile, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("init: write config: %w", err)
	}
	if err := profile.WriteConfig(configFile, raw); err != nil {
		configFile.Close()
		return fmt.Errorf("init: write config: %w", err)
	}
	if err := configFile.Close(); err != nil {
		return fmt.Errorf("init: write config: %w", err)
	}

	infoPath, err := profile.InfoPath(name)
	if err != nil {
		return err
	}

	doc := metadata.New(raw)
	if err := doc.Save(infoPath); err != nil {
		return fmt.Errorf("init: write metadata: %w", err)
	}

	p, err := loadNamedProfile(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.LocalDir, 0o755); err != nil {
		return fmt.Errorf("init: create local directory: %w", err)
	}

	mountDir, err := profile.MountDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(mountDir, 0o755); err != nil {
		return fmt.Errorf("init: create mountpoint directory: %w", err)
	}

	excludePath, err := profile.ExcludePath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(excludePath); os.IsNotExist(err) {
		if err := os.WriteFile(excludePath, nil, 0o644); err != nil {
			return fmt.Errorf("init: create exclude file: %w", err)
		}
	}

	doc.MarkInitialized()
	if err := doc.Save(infoPath); err != nil {
		return fmt.Errorf("init: write metadata: %w", err)
	}

	fmt.Printf("Initialized profile %q at %s.\n", name, filepath.Clean(p.LocalDir))

	return nil
}
