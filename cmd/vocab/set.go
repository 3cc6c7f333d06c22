package vocab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
)

// Set is a resource set of immersion content: one resource per video, linked to the vocabulary
// extracted from its segments
type Set struct {
	Resources    []setResource
	Vocab        []setVocab
	Translations []setTranslation
	Notes        []setNote
}

type setResource struct {
	ID                 string   `json:"id"`
	IsImmersionContent bool     `json:"isImmersionContent"`
	Language           string   `json:"language"`
	Title              string   `json:"title"`
	Content            string   `json:"content"`
	Link               string   `json:"link"`
	Priority           int      `json:"priority"`
	Vocab              []string `json:"vocab,omitempty"`
	Notes              []string `json:"notes,omitempty"`
}

type setVocab struct {
	ID             string   `json:"id"`
	Language       string   `json:"language"`
	Content        string   `json:"content"`
	ConsideredWord bool     `json:"consideredWord"`
	Priority       int      `json:"priority"`
	Translations   []string `json:"translations,omitempty"`
}

type setTranslation struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type setNote struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// SetDir is where a set for the given languages lives under root
func SetDir(root, target, subtitle string) string {
	return filepath.Join(root, target, fmt.Sprintf("youtube-%s-%s", target, subtitle))
}

func videoLink(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// setBuilder numbers records per file from 1 and gives each word a single vocab record
type setBuilder struct {
	set      Set
	target   string
	subtitle string
	vocabIDs map[string]string
}

// BuildSet groups the registry by the cached segments of every video. Words no video references
// any more are still exported, after the videos.
func BuildSet(ctx context.Context, svc VocabService, target, subtitle string) (*Set, error) {
	entries, err := svc.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	byWord := make(map[string]model.VocabEntry, len(entries))
	for _, e := range entries {
		byWord[e.Original] = e
	}

	videos, err := svc.ListVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	b := &setBuilder{target: target, subtitle: subtitle, vocabIDs: map[string]string{}}
	for _, videoID := range videos {
		segments, err := svc.ListSegments(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to list segments of %s: %w", videoID, err)
		}

		var vocab []string
		inVideo := map[string]bool{}
		for _, seg := range segments {
			for _, word := range seg.Words {
				entry, ok := byWord[word]
				if !ok || inVideo[word] {
					continue
				}
				inVideo[word] = true
				vocab = append(vocab, b.addVocab(entry))
			}
		}

		notes := []string{b.addNote(fmt.Sprintf("YouTube Video ID: %s\nSubtitle language: %s", videoID, b.subtitle))}
		for _, seg := range segments {
			note, ok, err := svc.GetNote(ctx, videoID, seg.SegmentIndex)
			if err != nil {
				return nil, fmt.Errorf("failed to read note of %s segment %d: %w", videoID, seg.SegmentIndex, err)
			}
			if ok {
				notes = append(notes, b.addNote(fmt.Sprintf("Segment %d: %s", seg.SegmentIndex+1, note.Text)))
			}
		}

		b.set.Resources = append(b.set.Resources, setResource{
			ID:                 strconv.Itoa(len(b.set.Resources) + 1),
			IsImmersionContent: true,
			Language:           target,
			Title:              "YouTube Video - " + videoID,
			Content:            "Watch this video: " + videoLink(videoID),
			Link:               videoLink(videoID),
			Priority:           1,
			Vocab:              vocab,
			Notes:              notes,
		})
	}

	for _, e := range entries {
		b.addVocab(e)
	}
	return &b.set, nil
}

func (b *setBuilder) addVocab(entry model.VocabEntry) string {
	if id, ok := b.vocabIDs[entry.Original]; ok {
		return id
	}

	var translations []string
	for _, t := range entry.Translations {
		id := strconv.Itoa(len(b.set.Translations) + 1)
		b.set.Translations = append(b.set.Translations, setTranslation{ID: id, Content: t})
		translations = append(translations, id)
	}

	id := strconv.Itoa(len(b.set.Vocab) + 1)
	b.set.Vocab = append(b.set.Vocab, setVocab{
		ID:             id,
		Language:       b.target,
		Content:        entry.Original,
		ConsideredWord: true,
		Priority:       1,
		Translations:   translations,
	})
	b.vocabIDs[entry.Original] = id
	return id
}

func (b *setBuilder) addNote(content string) string {
	id := strconv.Itoa(len(b.set.Notes) + 1)
	b.set.Notes = append(b.set.Notes, setNote{ID: id, Content: content})
	return id
}

// Write stores the set as resources.jsonl, vocab.jsonl, translations.jsonl and notes.jsonl in dir
func (s *Set) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if err := writeLines(dir, "resources.jsonl", s.Resources); err != nil {
		return err
	}
	if err := writeLines(dir, "vocab.jsonl", s.Vocab); err != nil {
		return err
	}
	if err := writeLines(dir, "translations.jsonl", s.Translations); err != nil {
		return err
	}
	return writeLines(dir, "notes.jsonl", s.Notes)
}

// writeLines stores one JSON object per line. An empty slice still creates the file.
func writeLines[T any](dir, name string, records []T) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
