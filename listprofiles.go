package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nullpilot/retainsync/internal/profile"
)

func newListProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-profiles",
		Short: "List every known profile name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListProfiles(cliContextFrom(cmd.Context()).JSON)
		},
	}
}

func runListProfiles(asJSON bool) error {
	names, err := profile.ListProfileNames()
	if err != nil {
		return err
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(names)
	}

	if len(names) == 0 {
		fmt.Println("No profiles configured.")
		return nil
	}

	for _, name := range names {
		fmt.Println(name)
	}

	return nil
}
