// Package scheduler adapts the FSRS algorithm to the persisted model.CardState.
// It holds no mutable state; the current time is always passed in.
package scheduler

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	fsrs "github.com/open-spaced-repetition/go-fsrs/v3"
)

// Grade is the learner's self-rating of a due word
type Grade int

const (
	Again Grade = iota + 1
	Hard
	Good
	Easy
)

var gradeNames = map[Grade]string{
	Again: "again",
	Hard:  "hard",
	Good:  "good",
	Easy:  "easy",
}

func (g Grade) String() string {
	if name, ok := gradeNames[g]; ok {
		return name
	}
	return fmt.Sprintf("grade(%d)", int(g))
}

// Valid reports whether g is one of the four ratings
func (g Grade) Valid() bool {
	_, ok := gradeNames[g]
	return ok
}

// ParseGrade accepts a rating name ("again", "Good", ...) or its digit 1-4
func ParseGrade(s string) (Grade, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for g, name := range gradeNames {
		if s == name || s == fmt.Sprint(int(g)) {
			return g, nil
		}
	}
	return 0, apperrors.New(apperrors.CodeInvalidArg, "unknown grade: "+s)
}

// Params tunes the FSRS algorithm
type Params struct {
	RequestRetention float64
	MaximumInterval  float64
	EnableFuzz       bool
}

// DefaultParams returns the library defaults
func DefaultParams() Params {
	p := fsrs.DefaultParam()
	return Params{
		RequestRetention: p.RequestRetention,
		MaximumInterval:  p.MaximumInterval,
		EnableFuzz:       p.EnableFuzz,
	}
}

// Adapter wraps an FSRS instance
type Adapter struct {
	fsrs        *fsrs.FSRS
	maxInterval uint64
}

// New creates an Adapter with the given parameters
func New(params Params) *Adapter {
	p := fsrs.DefaultParam()
	if params.RequestRetention > 0 {
		p.RequestRetention = params.RequestRetention
	}
	if params.MaximumInterval > 0 {
		p.MaximumInterval = params.MaximumInterval
	}
	p.EnableFuzz = params.EnableFuzz

	return &Adapter{fsrs: fsrs.NewFSRS(p), maxInterval: uint64(p.MaximumInterval)}
}

// CreateCard returns the state of a word practiced for the first time. It is due at now.
func (a *Adapter) CreateCard(now time.Time) model.CardState {
	card := fsrs.NewCard()
	card.Due = now
	return fromFSRS(card)
}

// Grade applies a rating and returns the next state. Again always leaves the card due at now.
// The interval is capped at MaximumInterval days; FSRS alone may overshoot it by a day or two for Easy.
func (a *Adapter) Grade(state model.CardState, grade Grade, now time.Time) (model.CardState, error) {
	if !grade.Valid() {
		return model.CardState{}, apperrors.New(apperrors.CodeInvalidArg, "invalid grade: "+grade.String())
	}

	info := a.fsrs.Repeat(toFSRS(state), now)[toRating(grade)]
	next := fromFSRS(info.Card)
	if grade == Again {
		next.Due = now
	}
	if a.maxInterval > 0 && next.ScheduledDays > a.maxInterval {
		next.ScheduledDays = a.maxInterval
		next.Due = now.AddDate(0, 0, int(a.maxInterval))
	}
	return next, nil
}

// IsDue reports whether now is at or after the card's due time
func IsDue(state model.CardState, now time.Time) bool {
	return !now.Before(state.Due)
}

func toRating(g Grade) fsrs.Rating {
	switch g {
	case Again:
		return fsrs.Again
	case Hard:
		return fsrs.Hard
	case Easy:
		return fsrs.Easy
	default:
		return fsrs.Good
	}
}

var stateNames = map[fsrs.State]string{
	fsrs.New:        "new",
	fsrs.Learning:   "learning",
	fsrs.Review:     "review",
	fsrs.Relearning: "relearning",
}

func toFSRS(s model.CardState) fsrs.Card {
	card := fsrs.Card{
		Due:           s.Due,
		Stability:     s.Stability,
		Difficulty:    s.Difficulty,
		ElapsedDays:   s.ElapsedDays,
		ScheduledDays: s.ScheduledDays,
		Reps:          s.Reps,
		Lapses:        s.Lapses,
		State:         fsrs.New,
	}
	for st, name := range stateNames {
		if name == s.State {
			card.State = st
		}
	}
	if s.LastReview != nil {
		card.LastReview = *s.LastReview
	}
	return card
}

func fromFSRS(c fsrs.Card) model.CardState {
	s := model.CardState{
		Due:           c.Due,
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   c.ElapsedDays,
		ScheduledDays: c.ScheduledDays,
		Reps:          c.Reps,
		Lapses:        c.Lapses,
		State:         stateNames[c.State],
	}
	if !c.LastReview.IsZero() {
		lr := c.LastReview
		s.LastReview = &lr
	}
	return s
}
