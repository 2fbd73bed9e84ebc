package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the decision journal",
		Long:  `List, show, and delete journaled packaging runs and their decisions.`,
	}

	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())
	cmd.AddCommand(newRunsDeleteCommand())
	cmd.AddCommand(newRunsHistoryCommand())

	return cmd
}

func newRunsListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs journaled")
				return nil
			}

			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s  %s  %d/%d included",
					run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Included, run.Resources)
				if run.Conflicts > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d conflicts", run.Conflicts)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")

	return cmd
}

func newRunsShowCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			decisions, err := store.ListDecisions(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"run":       run,
					"decisions": decisions,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run %s (%s)\n", run.ID, run.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "  config:       %s\n", run.ConfigPath)
			fmt.Fprintf(cmd.OutOrStdout(), "  manifest:     %s\n", run.ManifestPath)
			if run.Distribution != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  distribution: %s\n", run.Distribution)
			}
			if run.Error != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  error:        %s\n", *run.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			for _, d := range decisions {
				marker := "-"
				detail := "excluded"
				switch {
				case d.Conflict != nil:
					marker = "✗"
					detail = "conflict: " + *d.Conflict
				case d.CallbackError != nil:
					marker = "✗"
					detail = "callback error: " + *d.CallbackError
				case d.Include:
					marker = "+"
					detail = d.Location
					if d.Variant != nil {
						detail += " variant=" + *d.Variant
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %-40s %-18s %s\n", marker, d.Resource, d.Kind, detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func newRunsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newRunsHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <resource>",
		Short: "Show a resource's decisions across runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			decisions, err := store.ResourceHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(decisions) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No decisions journaled for %s\n", args[0])
				return nil
			}

			for _, d := range decisions {
				outcome := "excluded"
				switch {
				case d.Conflict != nil:
					outcome = "conflict"
				case d.Include:
					outcome = "included at " + d.Location
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  run %s  %s\n",
					d.CreatedAt.Format("2006-01-02 15:04:05"), d.RunID, outcome)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum decisions to show")

	return cmd
}
