package vocab

import (
	"context"
	"fmt"
	"time"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/spf13/cobra"
)

// VocabService is the part of the vocabulary cache the vocab commands read
type VocabService interface {
	ListEntries(ctx context.Context) ([]model.VocabEntry, error)
	GetEntry(ctx context.Context, original string) (model.VocabEntry, error)
	ListVideos(ctx context.Context) ([]string, error)
	ListSegments(ctx context.Context, videoID string) ([]model.SegmentVocabList, error)
	GetNote(ctx context.Context, videoID string, index int) (model.SegmentNote, bool, error)
}

// NewVocabCommand creates the main vocab command. A nil service opens the configured store
// when a subcommand runs.
func NewVocabCommand(service VocabService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Inspect the vocabulary registry",
		Long:  `List, show and export the words collected from practiced videos`,
	}

	cmd.AddCommand(NewListCommand(service))
	cmd.AddCommand(NewGetCommand(service))
	cmd.AddCommand(NewExportCommand(service))

	return cmd
}

// withService runs fn with service, or with one created from configuration when service is nil
func withService(service VocabService, fn func(ctx context.Context, svc VocabService, sourceLang string) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if service != nil {
		return fn(ctx, service, "")
	}

	cache, cfg, cleanup, err := NewServiceFactory().CreateService(ctx)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary service: %w", err)
	}
	defer cleanup()

	return fn(ctx, cache, cfg.SourceLanguage)
}
