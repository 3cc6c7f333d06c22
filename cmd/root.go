package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ytvocab",
	Short: "Learn vocabulary from YouTube subtitles with spaced repetition",
	Long: `ytvocab splits a video's subtitles into segments, extracts the vocabulary of each
segment and drills it as flashcards before the segment is played.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
