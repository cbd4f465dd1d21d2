package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"video-insights-go/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var geo, lang string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateSearch(); err != nil {
				return err
			}

			client := search.NewClient(cfg.RapidAPI, ctx.logger().Component("search"))
			results, err := client.Search(cmd.Context(), strings.Join(args, " "), geo, lang)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found")
				return nil
			}
			rows := make([][]string, 0, len(results))
			for i, r := range results {
				rows = append(rows, []string{
					fmt.Sprint(i + 1),
					truncate(r.Title, 50),
					truncate(r.Channel, 24),
					r.ViewCount,
					r.DurationText,
					r.Reference(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Channel", "Views", "Duration", "URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&geo, "geo", search.DefaultRegion, "Region code")
	cmd.Flags().StringVar(&lang, "lang", search.DefaultLanguage, "Result language")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
