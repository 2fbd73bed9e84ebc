package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnipack/omnipack/pkg/distribution"
)

func newDistributionsCommand() *cobra.Command {
	var (
		target     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "distributions",
		Aliases: []string{"dists"},
		Short:   "List catalogued runtime distributions",
		Long: `List the runtime distributions the embedded catalog knows, with their
target platforms and capability flags.`,
		Example: `  # All catalogued distributions
  omni distributions

  # Only one platform
  omni distributions --target x86_64-unknown-linux-gnu`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := distribution.DefaultRegistry()
			if err != nil {
				return fmt.Errorf("failed to load distribution catalog: %w", err)
			}

			dists := registry.List()
			if target != "" {
				filtered := dists[:0]
				for _, d := range dists {
					if d.TargetTriple == target {
						filtered = append(filtered, d)
					}
				}
				dists = filtered
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dists)
			}

			if len(dists) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No distributions match")
				return nil
			}

			for _, d := range dists {
				caps := ""
				if d.InMemorySharedLibraryLoading {
					caps += " in-memory-loading"
				}
				if d.SupportsPrebuiltExtensionModules {
					caps += " prebuilt-extensions"
				}
				if d.SupportsStaticLibraries {
					caps += " static-libraries"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-8s %-32s %-20s%s\n",
					d.Name, d.Version, d.TargetTriple, d.Flavor, caps)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "filter by target triple")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
