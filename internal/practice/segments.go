package practice

import (
	"math"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
)

// SegmentIndexAt returns the index of the segment playing at t seconds. When t falls between
// segments the one whose start is closest wins (the earlier one on a tie). It returns -1 for an
// empty list.
func SegmentIndexAt(segments []model.TimedSegment, t float64) int {
	for i, s := range segments {
		if s.Contains(t) {
			return i
		}
	}

	best := -1
	bestDist := math.Inf(1)
	for i, s := range segments {
		if d := math.Abs(s.Start - t); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
