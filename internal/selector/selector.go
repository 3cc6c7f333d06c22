// Package selector picks the next word to practice from a segment's vocabulary.
package selector

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/scheduler"
)

// Selector draws uniformly among eligible words
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Selector drawing from src. A nil src uses a randomly seeded generator.
func New(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{rng: rand.New(src)}
}

// Eligible returns the entries that may be shown next: not excludeWord, and either never
// practiced or due at now. Order of entries is preserved.
func Eligible(entries []model.VocabEntry, excludeWord string, now time.Time) []model.VocabEntry {
	eligible := make([]model.VocabEntry, 0, len(entries))
	for _, e := range entries {
		if e.Original == "" || e.Original == excludeWord {
			continue
		}
		if e.Schedule == nil || scheduler.IsDue(*e.Schedule, now) {
			eligible = append(eligible, e)
		}
	}
	return eligible
}

// PickNext returns a uniformly random eligible entry, or false when nothing is left to practice.
// Excluding the only eligible word yields false even if other words exist; callers treat that
// as the end of the pool rather than retrying without the exclusion.
func (s *Selector) PickNext(entries []model.VocabEntry, excludeWord string, now time.Time) (model.VocabEntry, bool) {
	eligible := Eligible(entries, excludeWord, now)
	if len(eligible) == 0 {
		return model.VocabEntry{}, false
	}

	s.mu.Lock()
	i := s.rng.IntN(len(eligible))
	s.mu.Unlock()

	return eligible[i], true
}
