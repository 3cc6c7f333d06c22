package vocab

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command, which writes the registry as a resource set of
// immersion content
func NewExportCommand(service VocabService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export practiced videos and their words as a JSONL resource set",
		Long: `Write resources.jsonl (one immersion resource per practiced video), vocab.jsonl,
translations.jsonl and notes.jsonl to <output>/<target>/youtube-<target>-<subtitle>/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("output")
			target, _ := cmd.Flags().GetString("target")
			subtitle, _ := cmd.Flags().GetString("subtitle")

			return withService(service, func(ctx context.Context, svc VocabService, sourceLang string) error {
				if target == "" {
					target = sourceLang
				}
				if subtitle == "" {
					subtitle = sourceLang
				}
				if target == "" || subtitle == "" {
					return fmt.Errorf("--target and --subtitle are required when source_language is not configured")
				}

				set, err := BuildSet(ctx, svc, target, subtitle)
				if err != nil {
					return err
				}
				dir := SetDir(root, target, subtitle)
				if err := set.Write(dir); err != nil {
					return err
				}

				cmd.Printf("Saved %d resource entries (immersion content)\n", len(set.Resources))
				cmd.Printf("Saved %d vocab entries\n", len(set.Vocab))
				cmd.Printf("Saved %d translation entries\n", len(set.Translations))
				cmd.Printf("Saved %d note entries\n", len(set.Notes))
				cmd.Printf("Exported set to %s\n", dir)
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", "sets", "Root directory of the resource sets")
	cmd.Flags().String("target", "", "Language code of the set (default source_language)")
	cmd.Flags().String("subtitle", "", "Language code of the subtitles (default source_language)")

	return cmd
}
