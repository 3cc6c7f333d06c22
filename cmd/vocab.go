package cmd

import (
	"github.com/Taichi-iskw/yt-vocab/cmd/vocab"
)

func init() {
	// the store is opened when a subcommand runs
	rootCmd.AddCommand(vocab.NewVocabCommand(nil))
}
