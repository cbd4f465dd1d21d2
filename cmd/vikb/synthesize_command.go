package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"video-insights-go/internal/knowledgebase"
	"video-insights-go/internal/synthesis"
)

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var keyword, language, input, outPath string

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Build a knowledge base from a combined transcript",
		Long:  "Reads the combined transcript from --input (or stdin) and sends it to the synthesis workflow.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateSynthesis(); err != nil {
				return err
			}

			var doc []byte
			if input == "" || input == "-" {
				doc, err = io.ReadAll(cmd.InOrStdin())
			} else {
				doc, err = os.ReadFile(input)
			}
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}

			errOut := cmd.ErrOrStderr()
			s := synthesis.New(cfg.Synthesis, ctx.logger().Component("synthesis"),
				synthesis.WithStateHook(func(st synthesis.State) {
					fmt.Fprintf(errOut, "synthesis: %s\n", st)
				}),
			)
			out, err := s.Synthesize(cmd.Context(), synthesis.Request{
				Keyword:       keyword,
				Language:      language,
				Transcription: string(doc),
			})
			if err != nil {
				var sErr *synthesis.SynthesisError
				if errors.As(err, &sErr) && sErr.Body != "" {
					fmt.Fprintf(errOut, "raw response:\n%s\n", sErr.Body)
				}
				return err
			}

			payload := out.Result.Payload
			if kb, err := knowledgebase.FromResult(out.Result); err == nil {
				if pretty, err := kb.JSON(); err == nil {
					payload = pretty
				}
			} else {
				fmt.Fprintf(errOut, "warning: result is not in knowledge base format: %v\n", err)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, append(payload, '\n'), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Fprintf(errOut, "Wrote knowledge base to %s (%s)\n", outPath, out.Elapsed.Round(time.Millisecond))
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Topic keyword")
	cmd.Flags().StringVarP(&language, "language", "l", "English", "Output language (name or BCP 47 tag)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Combined transcript file (default stdin)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the knowledge base JSON to this file")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}
