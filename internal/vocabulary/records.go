package vocabulary

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
)

const (
	wordPrefix    = "word:"
	segmentPrefix = "segment:"
	notePrefix    = "note:"
)

func wordKey(original string) string {
	return wordPrefix + original
}

func segmentKey(videoID string, index int) string {
	return fmt.Sprintf("%s%s:%d", segmentPrefix, videoID, index)
}

func noteKey(videoID string, index int) string {
	return fmt.Sprintf("%s%s:%d", notePrefix, videoID, index)
}

// parseSegmentKey splits "segment:<videoID>:<index>"
func parseSegmentKey(key string) (string, int, bool) {
	rest := strings.TrimPrefix(key, segmentPrefix)
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], index, true
}

// wordRecord is the stored shape of a registry entry
type wordRecord struct {
	Translations []string         `json:"translations"`
	Schedule     *model.CardState `json:"schedule,omitempty"`
	FirstSeen    *time.Time       `json:"firstSeen,omitempty"`
	LastPicked   *time.Time       `json:"lastPicked,omitempty"`
}

// segmentRecord is the stored shape of a segment vocabulary list
type segmentRecord struct {
	Words    []string  `json:"words"`
	CachedAt time.Time `json:"cachedAt"`
}

type noteRecord struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func corrupt(err error, what string) error {
	return apperrors.Wrap(err, apperrors.CodeCorrupt, "malformed "+what+" record")
}

func encodeWord(e model.VocabEntry) ([]byte, error) {
	rec := wordRecord{
		Translations: model.MergeTranslations(nil, e.Translations...),
		Schedule:     e.Schedule,
		LastPicked:   e.LastPicked,
	}
	if !e.FirstSeen.IsZero() {
		fs := e.FirstSeen
		rec.FirstSeen = &fs
	}
	return json.Marshal(rec)
}

func decodeWord(original string, data []byte) (model.VocabEntry, error) {
	var rec wordRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.VocabEntry{}, corrupt(err, "word")
	}
	if rec.Translations == nil {
		return model.VocabEntry{}, corrupt(nil, "word (missing translations)")
	}
	if rec.Schedule != nil && rec.Schedule.Due.IsZero() {
		return model.VocabEntry{}, corrupt(nil, "word (schedule without due date)")
	}

	e := model.VocabEntry{
		Original:     original,
		Translations: model.MergeTranslations(nil, rec.Translations...),
		Schedule:     rec.Schedule,
		LastPicked:   rec.LastPicked,
	}
	if rec.FirstSeen != nil {
		e.FirstSeen = *rec.FirstSeen
	}
	return e, nil
}

func decodeSegment(data []byte) (segmentRecord, error) {
	var rec segmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return segmentRecord{}, corrupt(err, "segment")
	}
	if rec.Words == nil {
		return segmentRecord{}, corrupt(nil, "segment (missing words)")
	}
	for _, w := range rec.Words {
		if strings.TrimSpace(w) == "" {
			return segmentRecord{}, corrupt(nil, "segment (blank word)")
		}
	}
	return rec, nil
}
