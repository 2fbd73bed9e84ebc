package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/omnipack/omnipack/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		manifestPath   string
		guardrailPaths []string
		distSpec       string
		targetTriple   string
		debounce       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [config]",
		Short: "Replan on configuration or manifest changes",
		Long: `Watch the configuration and manifest and recompute the plan whenever either
changes. Runs with the watch telemetry profile: JSON logs, the metrics
listener, and the event publisher.

Nothing is journaled; watch is a feedback loop for editing configurations.`,
		Example: `  omni watch
  omni watch pack.star --manifest resources.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "pack.star"
			if len(args) == 1 {
				configPath = args[0]
			}

			tel, err := newTelemetryFromFlags(telemetry.WatchConfig())
			if err != nil {
				return err
			}
			defer func() { _ = tel.Shutdown(context.Background()) }()

			if err := tel.StartMetricsServer(); err != nil {
				return err
			}

			opts := pipelineOptions{
				configPath:     configPath,
				manifestPath:   manifestPath,
				guardrailPaths: guardrailPaths,
				distribution:   distSpec,
				targetTriple:   targetTriple,
				command:        "watch",
			}

			replan := func() {
				result, err := runPipeline(cmd.Context(), tel, opts)
				if err != nil {
					tel.Logger.Error().Err(err).Msg("replan failed")
					return
				}
				printPlan(cmd.OutOrStdout(), result)
			}

			// First pass before waiting for changes.
			replan()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer func() { _ = watcher.Close() }()

			watched := map[string]bool{
				filepath.Clean(configPath):   true,
				filepath.Clean(manifestPath): true,
			}
			// Watch the parent directories; editors replace files on save,
			// which drops file-level watches.
			dirs := map[string]bool{}
			for path := range watched {
				dirs[filepath.Dir(path)] = true
			}
			for dir := range dirs {
				if err := watcher.Add(dir); err != nil {
					return fmt.Errorf("failed to watch %s: %w", dir, err)
				}
			}
			for _, path := range guardrailPaths {
				if err := watcher.Add(path); err != nil {
					tel.Logger.Warn().Err(err).Str("path", path).Msg("failed to watch guardrail path")
				}
			}

			tel.Logger.Info().
				Str("config", configPath).
				Str("manifest", manifestPath).
				Msg("watching for changes")

			var timer *time.Timer
			for {
				select {
				case <-cmd.Context().Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
						continue
					}
					if !watched[filepath.Clean(event.Name)] && !strings.HasSuffix(event.Name, ".rego") {
						continue
					}

					tel.Logger.Debug().
						Str("file", event.Name).
						Str("op", event.Op.String()).
						Msg("change detected")
					_ = tel.Events.PublishReplanTriggered(event.Name)

					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(debounce, replan)

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					tel.Logger.Error().Err(err).Msg("watcher error")
				}
			}
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "resources.yaml", "resource manifest path")
	cmd.Flags().StringSliceVarP(&guardrailPaths, "guardrails", "g", nil, "additional guardrail files or directories")
	cmd.Flags().StringVarP(&distSpec, "distribution", "d", "", "default distribution when the script omits one (NAME[@VERSION])")
	cmd.Flags().StringVarP(&targetTriple, "target", "t", "", "default target triple for distribution resolution")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay before replanning after a change")

	return cmd
}
