package vocab

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}

	t.Run("new word", func(t *testing.T) {
		output, err := formatter.Format(model.VocabEntry{
			Original:     "gato",
			Translations: []string{"cat", "tomcat"},
			FirstSeen:    time.Now(),
		})
		require.NoError(t, err)
		assert.Contains(t, output, "Word: gato")
		assert.Contains(t, output, "Translations: cat, tomcat")
		assert.Contains(t, output, "never practiced")
		assert.NotContains(t, output, "Last Practiced")
	})

	t.Run("scheduled word", func(t *testing.T) {
		picked := time.Now()
		output, err := formatter.Format(model.VocabEntry{
			Original:     "perro",
			Translations: []string{"dog"},
			LastPicked:   &picked,
			Schedule: &model.CardState{
				Due:        time.Now().Add(24 * time.Hour),
				Stability:  3.17,
				Difficulty: 5.28,
				Reps:       2,
				Lapses:     1,
				State:      "Review",
			},
		})
		require.NoError(t, err)
		assert.Contains(t, output, "Last Practiced:")
		assert.Contains(t, output, "State: Review")
		assert.Contains(t, output, "Stability: 3.17")
		assert.Contains(t, output, "Reviews: 2 (lapses: 1)")
	})

	t.Run("list", func(t *testing.T) {
		output, err := formatter.FormatList([]model.VocabEntry{
			{Original: "gato", Translations: []string{"cat"}},
			{Original: "largo", Translations: []string{strings.Repeat("x", 60)}},
		})
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "new")
		assert.Contains(t, lines[1], "...")
	})
}

func TestJSONFormatter(t *testing.T) {
	formatter := &JSONFormatter{}

	output, err := formatter.Format(model.VocabEntry{Original: "gato", Translations: []string{"cat"}})
	require.NoError(t, err)
	assert.Contains(t, output, `"original": "gato"`)
	assert.Contains(t, output, `"translations": [`)
	assert.NotContains(t, output, `"schedule"`)

	output, err = formatter.FormatList(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", output)
}

func TestJSONLFormatter(t *testing.T) {
	formatter := &JSONLFormatter{Language: "es"}
	due := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	output, err := formatter.FormatList([]model.VocabEntry{
		{Original: "gato", Translations: []string{"cat"}},
		{Original: "perro", Translations: []string{"dog"}, Schedule: &model.CardState{Due: due, State: "Review"}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id":"1","language":"es","content":"gato","consideredWord":true,"translations":["cat"]}`, lines[0])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "2", second["id"])
	schedule, ok := second["schedule"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2025-03-14T09:00:00Z", schedule["due"])
}

func TestGetFormatter(t *testing.T) {
	tests := []struct {
		format   string
		expected Formatter
		wantErr  bool
	}{
		{format: "text", expected: &TextFormatter{}},
		{format: "TXT", expected: &TextFormatter{}},
		{format: "json", expected: &JSONFormatter{}},
		{format: "jsonl", expected: &JSONLFormatter{}},
		{format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			formatter, err := GetFormatter(tt.format, "es")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported format")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expected, formatter)
		})
	}
}

func TestGetFormatter_JSONLLanguage(t *testing.T) {
	formatter, err := GetFormatter("jsonl", "fr")
	require.NoError(t, err)

	output, err := formatter.Format(model.VocabEntry{Original: "chat", Translations: []string{"cat"}})
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &record))
	assert.Equal(t, "fr", record["language"])
	assert.Equal(t, "chat", record["content"])
}
