package vocab

import (
	"context"
	"fmt"
	"time"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/scheduler"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list words command
func NewListCommand(service VocabService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			dueOnly, _ := cmd.Flags().GetBool("due")
			lang, _ := cmd.Flags().GetString("lang")

			return withService(service, func(ctx context.Context, svc VocabService, sourceLang string) error {
				if lang == "" {
					lang = sourceLang
				}
				formatter, err := GetFormatter(format, lang)
				if err != nil {
					return err
				}

				entries, err := svc.ListEntries(ctx)
				if err != nil {
					return fmt.Errorf("failed to list words: %w", err)
				}
				if dueOnly {
					entries = practicable(entries, time.Now())
				}

				if len(entries) == 0 && format == "text" {
					cmd.Println("No words found")
					return nil
				}

				output, err := formatter.FormatList(entries)
				if err != nil {
					return err
				}
				cmd.Print(output)
				return nil
			})
		},
	}

	cmd.Flags().String("format", "text", "Output format (text, json, jsonl)")
	cmd.Flags().Bool("due", false, "Only list words that can be practiced now")
	cmd.Flags().String("lang", "", "Language code recorded on jsonl records (default source_language)")

	return cmd
}

// practicable keeps new words and words due at now
func practicable(entries []model.VocabEntry, now time.Time) []model.VocabEntry {
	out := make([]model.VocabEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsNew() || scheduler.IsDue(*e.Schedule, now) {
			out = append(out, e)
		}
	}
	return out
}
