package practice

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewPracticeCommand creates the practice command. A nil factory uses the configured services.
func NewPracticeCommand(factory MachineFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice [VIDEO_ID]",
		Short: "Practice the vocabulary of a video segment by segment",
		Long: `Drill the words of each subtitle segment as flashcards, then play the segment and write
down what you understood. New words are shown with their translation, due words are revealed
and rated 1-4.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, _ := cmd.Flags().GetFloat64("at")
			segmentsFile, _ := cmd.Flags().GetString("segments")
			lang, _ := cmd.Flags().GetString("lang")
			noWait, _ := cmd.Flags().GetBool("no-wait")

			if factory == nil {
				factory = NewServiceFactory()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			controller := NewController(cmd.OutOrStdout(), args[0], !noWait)
			m, segments, cleanup, err := factory.CreateMachine(ctx, Options{
				VideoID:      args[0],
				SegmentsFile: segmentsFile,
				Lang:         lang,
			}, controller)
			if err != nil {
				return err
			}
			defer cleanup()
			controller.SetSegments(segments)

			return controller.Run(ctx, m, cmd.InOrStdin(), at)
		},
	}

	cmd.Flags().Float64("at", 0, "Video position in seconds to start from")
	cmd.Flags().String("segments", "", "Read segments from a JSON file instead of downloading subtitles")
	cmd.Flags().String("lang", "", "Subtitle language (default source_language)")
	cmd.Flags().Bool("no-wait", false, "Do not wait for the segment duration during playback")

	return cmd
}
