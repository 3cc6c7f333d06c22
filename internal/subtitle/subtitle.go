// Package subtitle loads the timed segments of a video.
package subtitle

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/sirupsen/logrus"
)

// Fetcher downloads subtitles with yt-dlp
type Fetcher struct {
	runner CmdRunner
	log    logrus.FieldLogger
}

// NewFetcher creates a new Fetcher
func NewFetcher(runner CmdRunner, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{runner: runner, log: log}
}

// json3 is the subtitle format YouTube serves and yt-dlp saves with --sub-format json3
type json3 struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Fetch downloads the lang subtitles of a video (manual ones when present, automatic ones
// otherwise) and returns them as ordered segments
func (f *Fetcher) Fetch(ctx context.Context, videoID, lang string) ([]model.TimedSegment, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, errors.New(errors.CodeInvalidArg, "video ID is required")
	}
	if strings.TrimSpace(lang) == "" {
		return nil, errors.New(errors.CodeInvalidArg, "subtitle language is required")
	}

	dir, err := os.MkdirTemp("", "ytvocab-subs-")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create temp directory")
	}
	defer os.RemoveAll(dir)

	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", lang,
		"--sub-format", "json3",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		videoURL(videoID),
	}
	f.log.WithFields(logrus.Fields{"video_id": videoID, "lang": lang}).Info("downloading subtitles")
	if _, err := f.runner.Run(ctx, "yt-dlp", args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "failed to download subtitles with yt-dlp")
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.json3"))
	if err != nil || len(matches) == 0 {
		return nil, errors.New(errors.CodeNotFound, "no "+lang+" subtitles available for "+videoID)
	}
	sort.Strings(matches)

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read subtitles")
	}
	return ParseJSON3(data)
}

func videoURL(videoID string) string {
	if strings.HasPrefix(videoID, "http://") || strings.HasPrefix(videoID, "https://") {
		return videoID
	}
	return "https://www.youtube.com/watch?v=" + videoID
}

// ParseJSON3 converts json3 subtitle events into segments
func ParseJSON3(data []byte) ([]model.TimedSegment, error) {
	var doc json3
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "failed to parse json3 subtitles")
	}

	segments := make([]model.TimedSegment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		var b strings.Builder
		for _, s := range ev.Segs {
			b.WriteString(s.UTF8)
		}
		segments = append(segments, model.TimedSegment{
			Start:    float64(ev.StartMs) / 1000,
			Duration: float64(ev.DurationMs) / 1000,
			Text:     strings.Join(strings.Fields(b.String()), " "),
		})
	}
	return Normalize(segments), nil
}

// LoadFile reads segments from a JSON file holding [{"start", "duration", "text"}]
func LoadFile(path string) ([]model.TimedSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "segments file not found: "+path)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read segments file")
	}

	var segments []model.TimedSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArg, "segments file is not a JSON array of {start, duration, text}")
	}
	return Normalize(segments), nil
}

// Normalize drops blank segments and orders the rest by start time
func Normalize(segments []model.TimedSegment) []model.TimedSegment {
	out := make([]model.TimedSegment, 0, len(segments))
	for _, s := range segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}
