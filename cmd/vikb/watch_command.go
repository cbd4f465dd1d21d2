package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"video-insights-go/internal/pipeline"
	"video-insights-go/internal/processor"
	"video-insights-go/internal/watcher"
	"video-insights-go/internal/workspace"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Transcribe batch files dropped into a directory",
		Long: "Watches <dir> for .json, .yaml and .xlsx batch files. Each file is transcribed and\n" +
			"<name>.transcript.md plus <name>.report.json are written next to it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidatePipeline(); err != nil {
				return err
			}

			ws, err := workspace.Open(cfg.WorkDir)
			if err != nil {
				return err
			}
			defer ws.Close()

			log := ctx.logger()
			p := pipeline.New(
				processor.NewFromConfig(cfg, ws.Path, log),
				log.Component("pipeline"),
				pipeline.WithConcurrency(cfg.Concurrency),
			)

			out := cmd.OutOrStdout()
			w, err := watcher.New(args[0], p, log.Component("watcher"),
				watcher.WithMaxConcurrent(maxConcurrent),
				watcher.OnProcessed(func(r watcher.Result) {
					if r.Err != nil {
						fmt.Fprintf(out, "%s: failed: %v\n", r.Path, r.Err)
						return
					}
					fmt.Fprintf(out, "%s: %d ok, %d failed -> %s\n",
						r.Path, r.Report.Succeeded(), r.Report.Failed(), watcher.OutputPath(r.Path))
				}),
			)
			if err != nil {
				return err
			}
			defer w.Stop()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", args[0])
			if err := w.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 1, "Batch files processed at once")
	return cmd
}
