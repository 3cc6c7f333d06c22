package vocabulary

import (
	"context"
	"sort"
	"sync"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PrefetchResult summarises a Prefetch run
type PrefetchResult struct {
	Segments int           // segments whose vocabulary is now cached
	Words    int           // distinct words across those segments
	Failed   map[int]error // by segment index
}

// FailedIndexes returns the failed segment indexes in ascending order
func (r PrefetchResult) FailedIndexes() []int {
	indexes := make([]int, 0, len(r.Failed))
	for i := range r.Failed {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes
}

// Prefetch ensures the vocabulary of every segment of a video with up to workers extractions in
// flight. A failing segment does not stop the others. Segments already cached are not extracted
// again.
func (c *Cache) Prefetch(ctx context.Context, videoID string, segments []model.TimedSegment, extract ExtractFunc, workers int) PrefetchResult {
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	res := PrefetchResult{Failed: map[int]error{}}
	words := map[string]struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seg := range segments {
		g.Go(func() error {
			entries, err := c.EnsureSegmentVocabulary(gctx, videoID, i, seg.Text, extract)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[i] = err
				return nil
			}
			res.Segments++
			for _, e := range entries {
				words[e.Original] = struct{}{}
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Words = len(words)
	c.log.WithFields(logrus.Fields{
		"video_id": videoID,
		"segments": res.Segments,
		"words":    res.Words,
		"failed":   len(res.Failed),
	}).Info("prefetched video vocabulary")
	return res
}
