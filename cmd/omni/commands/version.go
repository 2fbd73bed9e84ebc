package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnipack/omnipack/pkg/environment"
)

func newVersionCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build provenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				out := struct {
					*environment.Environment
					Embed environment.EmbedLocation `json:"embed"`
				}{buildEnv, buildEnv.EmbedLocation()}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprint(cmd.OutOrStdout(), buildEnv.VersionLong())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
