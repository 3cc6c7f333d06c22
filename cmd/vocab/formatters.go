package vocab

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
)

// Formatter defines interface for output formatting
type Formatter interface {
	Format(entry model.VocabEntry) (string, error)
	FormatList(entries []model.VocabEntry) (string, error)
}

// TextFormatter formats output as plain text
type TextFormatter struct{}

// Format formats one word with its schedule
func (f *TextFormatter) Format(entry model.VocabEntry) (string, error) {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("Word: %s\n", entry.Original))
	output.WriteString(fmt.Sprintf("Translations: %s\n", strings.Join(entry.Translations, ", ")))
	output.WriteString(fmt.Sprintf("First Seen: %s\n", formatTime(entry.FirstSeen)))
	if entry.LastPicked != nil {
		output.WriteString(fmt.Sprintf("Last Practiced: %s\n", formatTime(*entry.LastPicked)))
	}

	if entry.IsNew() {
		output.WriteString("Schedule: new (never practiced)\n")
		return output.String(), nil
	}

	s := entry.Schedule
	output.WriteString("Schedule:\n")
	output.WriteString("=========\n")
	output.WriteString(fmt.Sprintf("State: %s\n", s.State))
	output.WriteString(fmt.Sprintf("Due: %s\n", formatTime(s.Due)))
	output.WriteString(fmt.Sprintf("Stability: %.2f\n", s.Stability))
	output.WriteString(fmt.Sprintf("Difficulty: %.2f\n", s.Difficulty))
	output.WriteString(fmt.Sprintf("Reviews: %d (lapses: %d)\n", s.Reps, s.Lapses))

	return output.String(), nil
}

// FormatList formats one line per word
func (f *TextFormatter) FormatList(entries []model.VocabEntry) (string, error) {
	var output strings.Builder
	for _, e := range entries {
		status := "new"
		if !e.IsNew() {
			status = "due " + formatTime(e.Schedule.Due)
		}
		output.WriteString(fmt.Sprintf("%-24s %-40s %s\n", e.Original, truncateString(strings.Join(e.Translations, ", "), 40), status))
	}
	return output.String(), nil
}

// JSONFormatter formats output as JSON
type JSONFormatter struct{}

// Format formats a word as indented JSON
func (f *JSONFormatter) Format(entry model.VocabEntry) (string, error) {
	return marshalIndent(entry)
}

// FormatList formats words as an indented JSON array
func (f *JSONFormatter) FormatList(entries []model.VocabEntry) (string, error) {
	if entries == nil {
		entries = []model.VocabEntry{}
	}
	return marshalIndent(entries)
}

func marshalIndent(v any) (string, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(jsonBytes) + "\n", nil
}

// JSONLFormatter writes one vocab set record per line
type JSONLFormatter struct {
	Language string
}

// vocabRecord is the exported shape of a word
type vocabRecord struct {
	ID             string           `json:"id"`
	Language       string           `json:"language,omitempty"`
	Content        string           `json:"content"`
	ConsideredWord bool             `json:"consideredWord"`
	Translations   []string         `json:"translations"`
	Schedule       *model.CardState `json:"schedule,omitempty"`
}

// Format formats a single word as one JSON line
func (f *JSONLFormatter) Format(entry model.VocabEntry) (string, error) {
	return f.FormatList([]model.VocabEntry{entry})
}

// FormatList formats words as JSON lines, ids numbered from 1
func (f *JSONLFormatter) FormatList(entries []model.VocabEntry) (string, error) {
	var output strings.Builder
	for i, e := range entries {
		line, err := json.Marshal(vocabRecord{
			ID:             fmt.Sprintf("%d", i+1),
			Language:       f.Language,
			Content:        e.Original,
			ConsideredWord: true,
			Translations:   e.Translations,
			Schedule:       e.Schedule,
		})
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		output.Write(line)
		output.WriteString("\n")
	}
	return output.String(), nil
}

// GetFormatter returns the appropriate formatter based on format string. language is recorded
// on jsonl records.
func GetFormatter(format, language string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "text", "txt":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "jsonl":
		return &JSONLFormatter{Language: language}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
