package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"video-insights-go/internal/dataset"
	"video-insights-go/internal/pipeline"
	"video-insights-go/internal/processor"
	"video-insights-go/internal/types"
	"video-insights-go/internal/watcher"
	"video-insights-go/internal/workspace"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var fromXLSX, fromFile, outPath, reportXLSX string
	var concurrency int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transcribe [url...]",
		Short: "Transcribe videos and print the combined document",
		Long: "Each argument is a video URL, optionally followed by '|' and a title.\n" +
			"Items can also come from a spreadsheet (--from-xlsx) or a JSON/YAML batch file (--from-file).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidatePipeline(); err != nil {
				return err
			}

			items := parseItemArgs(args)
			if fromXLSX != "" {
				loaded, err := dataset.Load(fromXLSX)
				if err != nil {
					return fmt.Errorf("load %s: %w", fromXLSX, err)
				}
				items = append(items, loaded...)
			}
			if fromFile != "" {
				loaded, err := watcher.LoadBatch(fromFile)
				if err != nil {
					return err
				}
				items = append(items, loaded...)
			}
			if len(items) == 0 {
				return fmt.Errorf("nothing to transcribe: pass URLs, --from-xlsx or --from-file")
			}

			ws, err := workspace.Open(cfg.WorkDir)
			if err != nil {
				return err
			}
			defer ws.Close()

			log := ctx.logger()
			if concurrency <= 0 {
				concurrency = cfg.Concurrency
			}
			errOut := cmd.ErrOrStderr()
			colorize := shouldColorize(errOut)
			p := pipeline.New(
				processor.NewFromConfig(cfg, ws.Path, log),
				log.Component("pipeline"),
				pipeline.WithConcurrency(concurrency),
				pipeline.WithProgress(func(pr pipeline.Progress) {
					status := colorStatus("ok", true, colorize)
					if pr.Err != nil {
						status = colorStatus("failed", false, colorize)
					}
					fmt.Fprintf(errOut, "[%d/%d] %s %s\n", pr.Done, pr.Total, status, displayName(pr.Item))
				}),
			)

			report, runErr := p.Run(cmd.Context(), items)

			if reportXLSX != "" {
				if err := dataset.ExportReport(report, reportXLSX, log.Component("dataset")); err != nil {
					return err
				}
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(report.Document), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
			}

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			case outPath == "":
				fmt.Fprint(out, report.Document)
			}
			fmt.Fprintln(errOut, renderReport(report, colorize))

			if runErr != nil {
				return runErr
			}
			if report.Succeeded() == 0 {
				return fmt.Errorf("all %d items failed", report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromXLSX, "from-xlsx", "", "Load items from a spreadsheet")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "Load items from a JSON or YAML batch file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the combined document to this file")
	cmd.Flags().StringVar(&reportXLSX, "report-xlsx", "", "Write a spreadsheet of transcripts and failures")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Items processed at once (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}

// parseItemArgs reads "url" or "url|title" arguments.
func parseItemArgs(args []string) []types.SelectedItem {
	items := make([]types.SelectedItem, 0, len(args))
	for _, a := range args {
		ref, title, _ := strings.Cut(a, "|")
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		items = append(items, types.SelectedItem{Reference: ref, Title: strings.TrimSpace(title)})
	}
	return items
}

func displayName(item types.SelectedItem) string {
	if item.Title != "" {
		return item.Title
	}
	return item.Reference
}

func renderReport(report types.BatchReport, colorize bool) string {
	rows := make([][]string, 0, report.Total)
	for _, r := range report.Records {
		rows = append(rows, []string{
			truncate(displayName(types.SelectedItem{Reference: r.Reference, Title: r.Title}), 40),
			colorStatus("ok", true, colorize),
			"",
			fmt.Sprintf("%d words", len(strings.Fields(r.Text))),
		})
	}
	for _, f := range report.Failures {
		detail := ""
		if f.Err != nil {
			detail = truncate(f.Err.Error(), 60)
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d %s", f.Index+1, truncate(displayName(f.Item), 36)),
			colorStatus("failed", false, colorize),
			string(f.Stage),
			detail,
		})
	}
	return renderTable([]string{"Item", "Status", "Stage", "Detail"}, rows, nil)
}
