package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"video-insights-go/internal/dataset"
	"video-insights-go/internal/knowledgebase"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var mdPath, docxPath, xlsxPath, graphPath string

	cmd := &cobra.Command{
		Use:         "export <knowledge-base.json>",
		Short:       "Export a knowledge base to Markdown, DOCX, XLSX or graph JSON",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			kb, err := knowledgebase.Decode(raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			wrote := 0
			if mdPath != "" {
				if err := os.WriteFile(mdPath, []byte(kb.Markdown()), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\n", mdPath)
				wrote++
			}
			if docxPath != "" {
				if err := kb.WriteDOCX(docxPath); err != nil {
					return fmt.Errorf("write %s: %w", docxPath, err)
				}
				fmt.Fprintf(out, "Wrote %s\n", docxPath)
				wrote++
			}
			if xlsxPath != "" {
				if err := dataset.ExportRelationships(kb, xlsxPath, ctx.logger().Component("dataset")); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\n", xlsxPath)
				wrote++
			}
			if graphPath != "" {
				data, err := json.MarshalIndent(kb.Graph(), "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(graphPath, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\n", graphPath)
				wrote++
			}

			if wrote == 0 {
				fmt.Fprint(out, kb.Markdown())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mdPath, "markdown", "", "Markdown output path")
	cmd.Flags().StringVar(&docxPath, "docx", "", "Word document output path")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Relationships spreadsheet output path")
	cmd.Flags().StringVar(&graphPath, "graph", "", "Entity graph JSON output path")
	return cmd
}
