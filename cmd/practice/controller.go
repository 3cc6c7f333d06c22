package practice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/practice"
	"github.com/Taichi-iskw/yt-vocab/internal/scheduler"
)

// Controller renders a practice session in the terminal and turns typed lines into machine
// calls. Hooks and the input loop run on the same goroutine.
type Controller struct {
	out      io.Writer
	videoID  string
	segments []model.TimedSegment
	wait     bool

	playback context.Context
	playing  model.TimedSegment
	resumeAt float64
}

// NewController creates a controller. With wait false, autoplay finishes immediately instead of
// waiting for the segment duration.
func NewController(out io.Writer, videoID string, wait bool) *Controller {
	return &Controller{out: out, videoID: videoID, wait: wait}
}

// SetSegments gives the controller the segments the machine was built over
func (c *Controller) SetSegments(segments []model.TimedSegment) {
	c.segments = segments
}

// ResumeAt is the video position reported when the session ended
func (c *Controller) ResumeAt() float64 {
	return c.resumeAt
}

// Run starts practice at t and processes input until the session ends, the input is exhausted
// or ctx is cancelled
func (c *Controller) Run(ctx context.Context, m *practice.Machine, in io.Reader, t float64) error {
	lines := readLines(ctx, in)

	if err := m.Start(ctx, t); err != nil {
		return err
	}

	for {
		s := m.Session()
		var err error

		switch s.Mode {
		case practice.Watching:
			return nil

		case practice.FlashcardPractice:
			err = c.flashcard(ctx, m, s, lines)

		case practice.Autoplay:
			if c.play(ctx) != nil {
				m.End()
				return nil
			}
			err = m.PlaybackFinished()

		case practice.Evaluation:
			err = c.evaluate(ctx, m, s, lines)
		}

		if err != nil {
			m.End()
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

// errQuit ends the session from an input prompt
var errQuit = errors.New("quit")

func (c *Controller) flashcard(ctx context.Context, m *practice.Machine, s practice.Session, lines <-chan string) error {
	var prompt string
	switch {
	case s.Exhausted:
		prompt = "[enter] play segment, q quit > "
	case s.CurrentIsNew:
		prompt = "[enter] next, q quit > "
	case !s.IsRevealed:
		prompt = "[enter] reveal, q quit > "
	default:
		prompt = "rate 1 again, 2 hard, 3 good, 4 easy (q quit) > "
	}

	line, err := c.prompt(ctx, lines, prompt)
	if err != nil {
		return err
	}
	if line == "q" || line == ":q" {
		return errQuit
	}

	switch {
	case s.Exhausted:
		return m.Proceed(ctx)
	case s.CurrentIsNew:
		return m.Acknowledge(ctx)
	case !s.IsRevealed:
		return m.Reveal()
	}

	grade, err := scheduler.ParseGrade(line)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return nil
	}
	return m.Rate(ctx, grade)
}

// evaluate reads the note. ":r [draft]" plays the segment again keeping the draft, ":q" quits and
// an empty line submits the current draft.
func (c *Controller) evaluate(ctx context.Context, m *practice.Machine, s practice.Session, lines <-chan string) error {
	line, err := c.prompt(ctx, lines, "note (:r rewatch, :q quit) > ")
	if err != nil {
		return err
	}

	switch {
	case line == ":q":
		return errQuit
	case line == ":r" || strings.HasPrefix(line, ":r "):
		draft := strings.TrimSpace(strings.TrimPrefix(line, ":r"))
		if draft == "" {
			draft = s.DraftNote
		}
		return m.Rewatch(draft)
	case line == "":
		return m.SubmitNote(ctx, s.DraftNote)
	default:
		return m.SubmitNote(ctx, line)
	}
}

// play waits until the segment has played or the playback context is cancelled
func (c *Controller) play(ctx context.Context) error {
	if !c.wait || c.playback == nil {
		return nil
	}

	timer := time.NewTimer(time.Duration(c.playing.Duration * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-c.playback.Done():
		return c.playback.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) prompt(ctx context.Context, lines <-chan string, text string) (string, error) {
	fmt.Fprint(c.out, text)
	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", errQuit
	case line, ok := <-lines:
		if !ok {
			fmt.Fprintln(c.out)
			return "", errQuit
		}
		return strings.TrimSpace(line), nil
	}
}

// readLines feeds the lines of in to a channel that is closed at EOF. A read blocked on a
// terminal outlives ctx until the next line arrives.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (c *Controller) OnTransition(from, to practice.Mode, segmentIndex int) {}

func (c *Controller) OnSegmentChanged(segmentIndex int) {
	if segmentIndex < 0 || segmentIndex >= len(c.segments) {
		return
	}
	seg := c.segments[segmentIndex]
	fmt.Fprintf(c.out, "\n== Segment %d/%d [%s - %s]\n%s\n\n",
		segmentIndex+1, len(c.segments), formatPosition(seg.Start), formatPosition(seg.End()), seg.Text)
}

func (c *Controller) OnWordPresented(entry model.VocabEntry, isRevealed bool) {
	if !isRevealed {
		fmt.Fprintf(c.out, "  %s\n", entry.Original)
		return
	}
	fmt.Fprintf(c.out, "  %s -> %s\n", entry.Original, strings.Join(entry.Translations, ", "))
}

func (c *Controller) OnPoolExhausted() {
	fmt.Fprintln(c.out, "  Nothing more to practice in this segment.")
}

func (c *Controller) OnAutoplayRequested(ctx context.Context, segment model.TimedSegment) {
	c.playback = ctx
	c.playing = segment
	fmt.Fprintf(c.out, "  > playing %s - %s: %s\n", formatPosition(segment.Start), formatPosition(segment.End()), segment.Text)
}

func (c *Controller) OnEvaluationRequested(segment model.TimedSegment, draft string) {
	fmt.Fprintln(c.out, "  What did you understand?")
	if draft != "" {
		fmt.Fprintf(c.out, "  draft: %s\n", draft)
	}
}

func (c *Controller) OnSessionEnded(resumeAt float64) {
	c.resumeAt = resumeAt
	fmt.Fprintf(c.out, "\nSession ended. Resume at %s", formatPosition(resumeAt))
	if c.videoID != "" {
		fmt.Fprintf(c.out, " (https://youtu.be/%s?t=%d)", c.videoID, int(resumeAt))
	}
	fmt.Fprintln(c.out)
}

func (c *Controller) OnError(err error) {
	fmt.Fprintf(c.out, "  error: %v\n", err)
}

// formatPosition renders seconds as m:ss
func formatPosition(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
