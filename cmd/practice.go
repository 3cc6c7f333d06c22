package cmd

import (
	"github.com/Taichi-iskw/yt-vocab/cmd/practice"
)

func init() {
	rootCmd.AddCommand(practice.NewPracticeCommand(nil))
	rootCmd.AddCommand(practice.NewPrefetchCommand(nil))
}
