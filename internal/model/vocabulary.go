package model

import (
	"strings"
	"time"
)

// VocabPair is one item returned by vocabulary extraction
type VocabPair struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
}

// CardState is the persisted scheduling record of a word
type CardState struct {
	Due           time.Time  `json:"due"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	ElapsedDays   uint64     `json:"elapsedDays"`
	ScheduledDays uint64     `json:"scheduledDays"`
	Reps          uint64     `json:"reps"`
	Lapses        uint64     `json:"lapses"`
	State         string     `json:"state"`
	LastReview    *time.Time `json:"lastReview,omitempty"`
}

// VocabEntry is a word of the global registry, keyed by its original surface form
type VocabEntry struct {
	Original     string     `json:"original"`
	Translations []string   `json:"translations"`
	Schedule     *CardState `json:"schedule,omitempty"` // nil until first practiced
	FirstSeen    time.Time  `json:"firstSeen"`
	LastPicked   *time.Time `json:"lastPicked,omitempty"`
}

// IsNew reports whether the word has never been practiced
func (e VocabEntry) IsNew() bool {
	return e.Schedule == nil
}

// Clone returns a deep copy so callers can mutate it freely
func (e VocabEntry) Clone() VocabEntry {
	c := e
	c.Translations = append([]string(nil), e.Translations...)
	if e.Schedule != nil {
		s := *e.Schedule
		if e.Schedule.LastReview != nil {
			lr := *e.Schedule.LastReview
			s.LastReview = &lr
		}
		c.Schedule = &s
	}
	if e.LastPicked != nil {
		lp := *e.LastPicked
		c.LastPicked = &lp
	}
	return c
}

// SegmentVocabList lists the words extracted from one segment of a video
type SegmentVocabList struct {
	VideoID      string    `json:"videoId"`
	SegmentIndex int       `json:"segmentIndex"`
	Words        []string  `json:"words"`
	CachedAt     time.Time `json:"cachedAt"`
}

// SegmentNote is the free text a learner wrote after watching a segment
type SegmentNote struct {
	VideoID      string    `json:"videoId"`
	SegmentIndex int       `json:"segmentIndex"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MergeTranslations returns the set union of existing and incoming, keeping first-seen order.
// Blank strings are dropped and existing is never modified.
func MergeTranslations(existing []string, incoming ...string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}

// NormalizePairs trims pairs, drops those without an original and collapses duplicate pairs
func NormalizePairs(pairs []VocabPair) []VocabPair {
	out := make([]VocabPair, 0, len(pairs))
	seen := make(map[VocabPair]struct{}, len(pairs))
	for _, p := range pairs {
		p.Original = strings.TrimSpace(p.Original)
		p.Translation = strings.TrimSpace(p.Translation)
		if p.Original == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
