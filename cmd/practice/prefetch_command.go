package practice

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewPrefetchCommand creates the prefetch command. A nil prefetcher uses the configured services.
func NewPrefetchCommand(prefetcher Prefetcher) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefetch [VIDEO_ID...]",
		Short: "Extract the vocabulary of every segment ahead of practice",
		Long: `Download the subtitles of one or more videos and extract the vocabulary of all their
segments, so practice does not wait on the language model. Segments already cached are skipped.
A video that fails is reported and the remaining videos are still processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			segmentsFile, _ := cmd.Flags().GetString("segments")
			lang, _ := cmd.Flags().GetString("lang")
			workers, _ := cmd.Flags().GetInt("workers")
			videosFile, _ := cmd.Flags().GetString("videos")

			videoIDs := append([]string{}, args...)
			if videosFile != "" {
				listed, err := readVideoList(videosFile)
				if err != nil {
					return err
				}
				videoIDs = append(videoIDs, listed...)
			}
			if len(videoIDs) == 0 {
				return fmt.Errorf("no video given: pass video IDs or --videos FILE")
			}
			if segmentsFile != "" && len(videoIDs) > 1 {
				return fmt.Errorf("--segments describes a single video, got %d", len(videoIDs))
			}

			if prefetcher == nil {
				prefetcher = NewServiceFactory()
			}

			var failedVideos []string
			for i, videoID := range videoIDs {
				if len(videoIDs) > 1 {
					cmd.Printf("[%d/%d] %s\n", i+1, len(videoIDs), videoID)
				}

				res, err := prefetcher.Prefetch(cmd.Context(), Options{
					VideoID:      videoID,
					SegmentsFile: segmentsFile,
					Lang:         lang,
				}, workers)
				if err != nil {
					if len(videoIDs) == 1 {
						return err
					}
					cmd.Printf("  skipped %s: %v\n", videoID, err)
					failedVideos = append(failedVideos, videoID)
					continue
				}

				cmd.Printf("Cached %d segments (%d distinct words)\n", res.Segments, res.Words)
				for _, idx := range res.FailedIndexes() {
					cmd.Printf("  segment %d failed: %v\n", idx+1, res.Failed[idx])
				}
				if len(res.Failed) > 0 {
					cmd.Println("Run prefetch again to retry the failed segments.")
				}
			}

			if len(failedVideos) == len(videoIDs) {
				return fmt.Errorf("all %d videos failed", len(videoIDs))
			}
			if len(failedVideos) > 0 {
				cmd.Printf("%d of %d videos failed: %s\n", len(failedVideos), len(videoIDs), strings.Join(failedVideos, ", "))
			}
			return nil
		},
	}

	cmd.Flags().String("segments", "", "Read segments from a JSON file instead of downloading subtitles")
	cmd.Flags().String("lang", "", "Subtitle language (default source_language)")
	cmd.Flags().Int("workers", 4, "Extractions to run at once")
	cmd.Flags().String("videos", "", "File with one video ID per line; blank lines and # comments are ignored")

	return cmd
}

// readVideoList reads one video ID per line
func readVideoList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video list: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read video list: %w", err)
	}
	return ids, nil
}
