package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"video-insights-go/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, configRows(cfg), nil))
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report which features are usable with the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			checks := []struct {
				name string
				err  error
			}{
				{"search", cfg.ValidateSearch()},
				{"transcribe", cfg.ValidatePipeline()},
				{"synthesize", cfg.ValidateSynthesis()},
			}
			rows := make([][]string, 0, len(checks))
			failed := 0
			for _, c := range checks {
				if c.err != nil {
					failed++
					rows = append(rows, []string{c.name, colorStatus("missing", false, colorize), c.err.Error()})
					continue
				}
				rows = append(rows, []string{c.name, colorStatus("ready", true, colorize), ""})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Feature", "Status", "Detail"}, rows, nil))
			if failed == len(checks) {
				return fmt.Errorf("no feature is configured")
			}
			return nil
		},
	}
}

func configRows(cfg config.Config) [][]string {
	return [][]string{
		{"ENVIRONMENT", cfg.Environment},
		{"LOG_LEVEL", cfg.LogLevel},
		{"PORT", cfg.Port},
		{"WORK_DIR", orDefault(cfg.WorkDir, "(temporary)")},
		{"FFMPEG_PATH", cfg.FFmpegPath},
		{"CONCURRENCY", fmt.Sprint(cfg.Concurrency)},
		{"FETCH_TIMEOUT", cfg.FetchTimeout.String()},
		{"RAPIDAPI_KEY", mask(cfg.RapidAPI.Key)},
		{"RAPIDAPI_HOST", cfg.RapidAPI.ConversionHost},
		{"CONVERSION_BASE_URL", cfg.RapidAPI.ConversionBaseURL},
		{"YT_RAPIDAPI_HOST", cfg.RapidAPI.SearchHost},
		{"SEARCH_BASE_URL", cfg.RapidAPI.SearchBaseURL},
		{"GROQ_API_KEY", mask(cfg.Transcription.APIKey)},
		{"TRANSCRIPTION_BASE_URL", cfg.Transcription.BaseURL},
		{"TRANSCRIPTION_MODEL", cfg.Transcription.Model},
		{"TRANSCRIPTION_TIMEOUT", cfg.Transcription.Timeout.String()},
		{"SYNTHESIS_URL", cfg.Synthesis.URL},
		{"SYNTHESIS_API_KEY", mask(cfg.Synthesis.APIKey)},
		{"SYNTHESIS_TIMEOUT", cfg.Synthesis.Timeout.String()},
		{"CLIENT_ID", cfg.Synthesis.ClientID},
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
