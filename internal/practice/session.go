package practice

import (
	"context"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
)

// Mode is the top-level state of a practice session
type Mode int

const (
	Watching Mode = iota
	FlashcardPractice
	Autoplay
	Evaluation
)

func (m Mode) String() string {
	switch m {
	case Watching:
		return "watching"
	case FlashcardPractice:
		return "flashcard_practice"
	case Autoplay:
		return "autoplay"
	case Evaluation:
		return "evaluation"
	default:
		return "unknown"
	}
}

// Session is the ephemeral state of one practice run. It is never persisted.
type Session struct {
	ID             string
	Mode           Mode
	SegmentIndex   int
	LastPickedWord string // empty when nothing was picked in this segment yet
	IsRevealed     bool

	Current      *model.VocabEntry // word on screen, nil when none
	CurrentIsNew bool
	Exhausted    bool // "nothing more to practice" for this segment

	DraftNote string
	ResumeAt  float64 // video position to restore when the learner quits
}

func (s Session) clone() Session {
	if s.Current != nil {
		c := s.Current.Clone()
		s.Current = &c
	}
	return s
}

// Observer receives rendering hooks. Hooks run while the Machine is locked and must not call
// back into it.
type Observer interface {
	OnTransition(from, to Mode, segmentIndex int)
	OnSegmentChanged(segmentIndex int)
	OnWordPresented(entry model.VocabEntry, isRevealed bool)
	OnPoolExhausted()
	// ctx is cancelled when playback is finished or the session ends
	OnAutoplayRequested(ctx context.Context, segment model.TimedSegment)
	OnEvaluationRequested(segment model.TimedSegment, draft string)
	OnSessionEnded(resumeAt float64)
	OnError(err error)
}

// NopObserver ignores every hook. Embed it to implement only the hooks you need.
type NopObserver struct{}

func (NopObserver) OnTransition(from, to Mode, segmentIndex int) {}

func (NopObserver) OnSegmentChanged(segmentIndex int) {}

func (NopObserver) OnWordPresented(entry model.VocabEntry, isRevealed bool) {}

func (NopObserver) OnPoolExhausted() {}

func (NopObserver) OnAutoplayRequested(ctx context.Context, seg model.TimedSegment) {}

func (NopObserver) OnEvaluationRequested(seg model.TimedSegment, draft string) {}

func (NopObserver) OnSessionEnded(resumeAt float64) {}

func (NopObserver) OnError(err error) {}
