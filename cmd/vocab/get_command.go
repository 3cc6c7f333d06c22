package vocab

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewGetCommand creates the get word command
func NewGetCommand(service VocabService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [WORD]",
		Short: "Show a word with its translations and schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			lang, _ := cmd.Flags().GetString("lang")

			return withService(service, func(ctx context.Context, svc VocabService, sourceLang string) error {
				if lang == "" {
					lang = sourceLang
				}
				formatter, err := GetFormatter(format, lang)
				if err != nil {
					return err
				}

				entry, err := svc.GetEntry(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get word: %w", err)
				}

				output, err := formatter.Format(entry)
				if err != nil {
					return err
				}
				cmd.Print(output)
				return nil
			})
		},
	}

	cmd.Flags().String("format", "text", "Output format (text, json, jsonl)")
	cmd.Flags().String("lang", "", "Language code recorded on jsonl records (default source_language)")

	return cmd
}
