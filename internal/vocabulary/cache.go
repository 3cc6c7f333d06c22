// Package vocabulary caches extracted vocabulary in the persistent store.
//
// Two record families live side by side: a global registry of words (translations and
// scheduling state, shared across every video) and per-segment word lists. Segment lists are
// written once and never re-extracted unless they turn out to be corrupt. UpsertGlobalEntry is
// the only path that writes scheduling state.
package vocabulary

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ExtractFunc turns a segment's text into vocabulary pairs
type ExtractFunc func(ctx context.Context, text string) ([]model.VocabPair, error)

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache implements the segment and registry operations over a store.Store
type Cache struct {
	store  store.Store
	log    logrus.FieldLogger
	now    func() time.Time
	flight singleflight.Group

	// serialises read-merge-write of registry entries
	wordMu sync.Mutex
}

// NewCache creates a new Cache
func NewCache(s store.Store, log logrus.FieldLogger, opts ...Option) *Cache {
	c := &Cache{
		store: s,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSegmentVocabulary returns the entries of a cached segment with their latest schedule.
// The bool is false when the segment has not been extracted yet, or when its record (or a
// registry entry it references) was corrupt and has been erased.
func (c *Cache) GetSegmentVocabulary(ctx context.Context, videoID string, index int) ([]model.VocabEntry, bool, error) {
	key := segmentKey(videoID, index)
	log := c.log.WithFields(logrus.Fields{"video_id": videoID, "segment": index})

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(err, apperrors.CodeInternal, "failed to read segment vocabulary")
	}

	rec, err := decodeSegment(data)
	if err != nil {
		log.WithError(err).Warn("discarding corrupt segment vocabulary")
		c.erase(ctx, key)
		return nil, false, nil
	}

	entries := make([]model.VocabEntry, 0, len(rec.Words))
	for _, word := range rec.Words {
		entry, ok, err := c.readWord(ctx, word)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			log.WithField("word", word).Warn("segment references a missing word, discarding segment vocabulary")
			c.erase(ctx, key)
			return nil, false, nil
		}
		entries = append(entries, entry)
	}

	return entries, true, nil
}

// EnsureSegmentVocabulary returns the segment's entries, extracting and caching them first when
// the segment is not cached. Concurrent calls for the same segment share a single extraction and
// a cached segment is never extracted again.
func (c *Cache) EnsureSegmentVocabulary(ctx context.Context, videoID string, index int, text string, extract ExtractFunc) ([]model.VocabEntry, error) {
	v, err, _ := c.flight.Do(segmentKey(videoID, index), func() (any, error) {
		entries, ok, err := c.GetSegmentVocabulary(ctx, videoID, index)
		if err != nil {
			return nil, err
		}
		if ok {
			return entries, nil
		}
		return c.extractSegment(ctx, videoID, index, text, extract)
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]model.VocabEntry)
	entries := make([]model.VocabEntry, len(shared))
	for i, e := range shared {
		entries[i] = e.Clone()
	}
	return entries, nil
}

func (c *Cache) extractSegment(ctx context.Context, videoID string, index int, text string, extract ExtractFunc) ([]model.VocabEntry, error) {
	log := c.log.WithFields(logrus.Fields{"video_id": videoID, "segment": index})

	var pairs []model.VocabPair
	if strings.TrimSpace(text) != "" {
		var err error
		pairs, err = extract(ctx, text)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeExternal, "vocabulary extraction failed")
		}
	}
	pairs = model.NormalizePairs(pairs)

	// group translations by word, keeping first-occurrence order
	var words []string
	translations := map[string][]string{}
	for _, p := range pairs {
		if _, ok := translations[p.Original]; !ok {
			words = append(words, p.Original)
		}
		translations[p.Original] = append(translations[p.Original], p.Translation)
	}

	now := c.now()
	entries := make([]model.VocabEntry, 0, len(words))
	persisted := true

	c.wordMu.Lock()
	defer c.wordMu.Unlock()
	for _, word := range words {
		entry, err := c.mergeWord(ctx, model.VocabEntry{Original: word, Translations: translations[word], FirstSeen: now}, true)
		if err != nil {
			if entry.Original == "" {
				return nil, err
			}
			log.WithError(err).WithField("word", word).Error("failed to persist word")
			persisted = false
		}
		entries = append(entries, entry)
	}

	// the segment list goes last so an interrupted extraction is simply redone
	if persisted {
		data, err := json.Marshal(segmentRecord{Words: append([]string{}, words...), CachedAt: now})
		if err == nil {
			err = c.store.Set(ctx, segmentKey(videoID, index), data)
		}
		if err != nil {
			log.WithError(err).Error("failed to persist segment vocabulary")
		}
	} else {
		log.Warn("segment vocabulary not cached, it will be extracted again next time")
	}

	log.WithField("words", len(entries)).Info("extracted segment vocabulary")
	return entries, nil
}

// UpsertGlobalEntry merges entry into the registry: translations are unioned with what is
// stored, while Schedule and LastPicked replace the stored values. It returns the merged entry.
func (c *Cache) UpsertGlobalEntry(ctx context.Context, entry model.VocabEntry) (model.VocabEntry, error) {
	if strings.TrimSpace(entry.Original) == "" {
		return model.VocabEntry{}, apperrors.New(apperrors.CodeInvalidArg, "word is required")
	}

	c.wordMu.Lock()
	defer c.wordMu.Unlock()
	return c.mergeWord(ctx, entry, false)
}

// mergeWord is the read-merge-write of a registry entry; the caller holds wordMu.
// Translations are unioned and the stored FirstSeen wins. With keepState the stored Schedule and
// LastPicked are kept, otherwise entry's replace them. A read failure returns a zero entry, a
// write failure returns the merged entry along with the error.
func (c *Cache) mergeWord(ctx context.Context, entry model.VocabEntry, keepState bool) (model.VocabEntry, error) {
	existing, ok, err := c.readWord(ctx, entry.Original)
	if err != nil {
		return model.VocabEntry{}, err
	}

	merged := entry.Clone()
	switch {
	case ok:
		merged.Translations = model.MergeTranslations(existing.Translations, entry.Translations...)
		if !existing.FirstSeen.IsZero() {
			merged.FirstSeen = existing.FirstSeen
		}
		if keepState {
			merged.Schedule = existing.Schedule
			merged.LastPicked = existing.LastPicked
		}
	default:
		merged.Translations = model.MergeTranslations(nil, entry.Translations...)
	}
	if merged.FirstSeen.IsZero() {
		merged.FirstSeen = c.now()
	}

	if err := c.writeWord(ctx, merged); err != nil {
		return merged, err
	}
	return merged, nil
}

// GetEntry returns a registry entry
func (c *Cache) GetEntry(ctx context.Context, original string) (model.VocabEntry, error) {
	entry, ok, err := c.readWord(ctx, original)
	if err != nil {
		return model.VocabEntry{}, err
	}
	if !ok {
		return model.VocabEntry{}, apperrors.New(apperrors.CodeNotFound, "word not found: "+original)
	}
	return entry, nil
}

// ListEntries returns every registry entry sorted by word
func (c *Cache) ListEntries(ctx context.Context) ([]model.VocabEntry, error) {
	keys, err := c.store.List(ctx, wordPrefix)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list words")
	}

	entries := make([]model.VocabEntry, 0, len(keys))
	for _, key := range keys {
		entry, ok, err := c.readWord(ctx, strings.TrimPrefix(key, wordPrefix))
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// ListVideos returns the IDs of every video with at least one cached segment, sorted
func (c *Cache) ListVideos(ctx context.Context) ([]string, error) {
	keys, err := c.store.List(ctx, segmentPrefix)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list videos")
	}

	seen := map[string]bool{}
	videos := []string{}
	for _, key := range keys {
		vid, _, ok := parseSegmentKey(key)
		if !ok || seen[vid] {
			continue
		}
		seen[vid] = true
		videos = append(videos, vid)
	}
	sort.Strings(videos)
	return videos, nil
}

// ListSegments returns the cached segment lists of a video ordered by segment index
func (c *Cache) ListSegments(ctx context.Context, videoID string) ([]model.SegmentVocabList, error) {
	keys, err := c.store.List(ctx, segmentPrefix+videoID+":")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list segments")
	}

	lists := []model.SegmentVocabList{}
	for _, key := range keys {
		vid, index, ok := parseSegmentKey(key)
		if !ok || vid != videoID {
			continue
		}
		data, err := c.store.Get(ctx, key)
		if err != nil {
			continue
		}
		rec, err := decodeSegment(data)
		if err != nil {
			continue
		}
		lists = append(lists, model.SegmentVocabList{
			VideoID:      videoID,
			SegmentIndex: index,
			Words:        rec.Words,
			CachedAt:     rec.CachedAt,
		})
	}

	// keys sort lexically ("10" < "2")
	sort.Slice(lists, func(i, j int) bool {
		return lists[i].SegmentIndex < lists[j].SegmentIndex
	})
	return lists, nil
}

// SaveNote stores the learner's note for a segment. Blank notes are not stored.
func (c *Cache) SaveNote(ctx context.Context, videoID string, index int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	data, err := json.Marshal(noteRecord{Text: text, CreatedAt: c.now()})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to encode note")
	}
	if err := c.store.Set(ctx, noteKey(videoID, index), data); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to save note")
	}
	return nil
}

// GetNote returns the note stored for a segment, if any
func (c *Cache) GetNote(ctx context.Context, videoID string, index int) (model.SegmentNote, bool, error) {
	data, err := c.store.Get(ctx, noteKey(videoID, index))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.SegmentNote{}, false, nil
		}
		return model.SegmentNote{}, false, apperrors.Wrap(err, apperrors.CodeInternal, "failed to read note")
	}

	var rec noteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.log.WithError(err).Warn("discarding corrupt note")
		c.erase(ctx, noteKey(videoID, index))
		return model.SegmentNote{}, false, nil
	}
	return model.SegmentNote{VideoID: videoID, SegmentIndex: index, Text: rec.Text, CreatedAt: rec.CreatedAt}, true, nil
}

// readWord loads a registry entry. Corrupt records are erased and reported as absent.
func (c *Cache) readWord(ctx context.Context, original string) (model.VocabEntry, bool, error) {
	key := wordKey(original)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.VocabEntry{}, false, nil
		}
		return model.VocabEntry{}, false, apperrors.Wrap(err, apperrors.CodeInternal, "failed to read word")
	}

	entry, err := decodeWord(original, data)
	if err != nil {
		c.log.WithError(err).WithField("word", original).Warn("discarding corrupt word")
		c.erase(ctx, key)
		return model.VocabEntry{}, false, nil
	}
	return entry, true, nil
}

func (c *Cache) writeWord(ctx context.Context, entry model.VocabEntry) error {
	data, err := encodeWord(entry)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to encode word")
	}
	if err := c.store.Set(ctx, wordKey(entry.Original), data); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to save word")
	}
	return nil
}

func (c *Cache) erase(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.WithError(err).WithField("key", key).Error("failed to erase corrupt record")
	}
}
