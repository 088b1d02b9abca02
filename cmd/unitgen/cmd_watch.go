package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/ritzau/unitgen/pkg/output"
	"github.com/ritzau/unitgen/pkg/pipeline"
	"github.com/ritzau/unitgen/pkg/watcher"
	"github.com/spf13/cobra"
)

// maxWaitFactor bounds how long a steady stream of changes can delay a run
const maxWaitFactor = 10

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the unit file whenever the source tree changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := cfg.Pipeline("initial run")
			generate(ctx, cmd, opts)

			table := ""
			if cfg.Implicit != "" {
				table = joinWorkspace(cfg.Workspace, cfg.Implicit)
			}
			fw, err := watcher.NewFileWatcher(joinWorkspace(cfg.Workspace, cfg.Root), table, opts.Rules)
			if err != nil {
				return err
			}
			if err := fw.Start(ctx); err != nil {
				return err
			}

			d := watcher.NewDebouncer(fw.Events(), cfg.QuietPeriod, maxWaitFactor*cfg.QuietPeriod)
			d.Start(ctx)

			for event := range d.Output() {
				// A flush sends one event per change type, take them together
				events := []watcher.ChangeEvent{event}
			drain:
				for {
					select {
					case more, ok := <-d.Output():
						if !ok {
							break drain
						}
						events = append(events, more)
					default:
						break drain
					}
				}

				if ctx.Err() != nil {
					break
				}
				change := watcher.AnalyzeChanges(events...)
				logging.InfoContext(ctx, "change detected", "reason", change.Reason, "files", len(change.ChangedFiles))

				opts.Reason = change.Reason
				generate(logging.WithRunID(ctx, logging.NewRunID()), cmd, opts)
			}

			logging.Info("stopped watching")
			return nil
		},
	}
}

// generate runs the pipeline once. Failures are reported and watching goes on.
func generate(ctx context.Context, cmd *cobra.Command, opts pipeline.Options) {
	res, err := pipeline.New(opts).Run(ctx)
	if err != nil {
		output.PrintError(cmd.ErrOrStderr(), err)
		return
	}
	output.PrintRunReport(cmd.ErrOrStderr(), res)
}

func joinWorkspace(workspace, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}
