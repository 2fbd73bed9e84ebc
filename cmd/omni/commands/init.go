package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const sampleConfig = `# OmniPack packaging configuration.
#
# The script must leave a PackagingPolicy in a module-global named 'policy'.

dist = distribution("cpython", "3.10")
policy = dist.make_packaging_policy()

policy.bytecode_optimize_level_zero = True
policy.include_test = False


def _prefer_system_ssl(policy, resource):
    # Keep the working context unchanged for everything but ssl.
    if resource.name != "ssl":
        return None
    context = resource.collection_context
    context.variant = "shared"
    return context


policy.register_resource_callback(_prefer_system_ssl)
`

const sampleManifest = `version: 1
runtime:
  name: cpython
  version: "3.10"
resources:
  - name: os.path
    path: lib/os/path.py
    kind: module-source
    provenance: distribution-source
  - name: ssl
    path: lib/ssl.so
    kind: extension-module
    provenance: distribution-source
    in_memory_loadable: true
    default_variant: shared
    variants:
      - name: shared
        libraries: [openssl]
      - name: static
`

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize an OmniPack workspace",
		Long: `Create a starter workspace: a sample packaging configuration, a sample
resource manifest, and an initialized decision journal.`,
		Example: `  # Initialize the current directory
  omni init

  # Initialize a new directory
  omni init ./mypack`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}

			files := map[string]string{
				"pack.star":      sampleConfig,
				"resources.yaml": sampleManifest,
			}
			for name, content := range files {
				path := filepath.Join(dir, name)
				if _, err := os.Stat(path); err == nil && !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
			}

			// Initialize the journal next to the samples unless --state
			// points elsewhere.
			dbPath := statePath
			if !cmd.Flags().Changed("state") && dir != "." {
				dbPath = filepath.Join(dir, statePath)
				statePath = dbPath
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize journal: %w", err)
			}
			defer func() { _ = store.Close() }()
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Initialized journal %s\n", dbPath)

			fmt.Fprintf(cmd.OutOrStdout(), "\nNext: omni plan %s\n", filepath.Join(dir, "pack.star"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")

	return cmd
}
