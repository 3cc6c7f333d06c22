// Package practice drives a practice session through its four modes.
//
// Every segment goes watching/evaluation -> flashcard practice -> autoplay -> evaluation. The
// "nothing more to practice" screen is flashcard practice with an empty pool, and Proceed is
// only accepted from that screen, so autoplay is never reached without practice first.
package practice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/scheduler"
	"github.com/Taichi-iskw/yt-vocab/internal/vocabulary"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Vocabulary is the part of the vocabulary cache a session needs
type Vocabulary interface {
	EnsureSegmentVocabulary(ctx context.Context, videoID string, index int, text string, extract vocabulary.ExtractFunc) ([]model.VocabEntry, error)
	UpsertGlobalEntry(ctx context.Context, entry model.VocabEntry) (model.VocabEntry, error)
	SaveNote(ctx context.Context, videoID string, index int, text string) error
}

// Scheduler creates and grades cards
type Scheduler interface {
	CreateCard(now time.Time) model.CardState
	Grade(state model.CardState, grade scheduler.Grade, now time.Time) (model.CardState, error)
}

// Picker chooses the next word to show
type Picker interface {
	PickNext(entries []model.VocabEntry, excludeWord string, now time.Time) (model.VocabEntry, bool)
}

// Config holds the collaborators of a Machine
type Config struct {
	VideoID    string
	Segments   []model.TimedSegment
	Vocabulary Vocabulary
	Extract    vocabulary.ExtractFunc
	Scheduler  Scheduler
	Picker     Picker
	Observer   Observer         // optional
	Clock      func() time.Time // optional, defaults to time.Now
	Logger     logrus.FieldLogger
}

// Machine is the practice session controller. Its methods are safe for concurrent use, which
// lets End be called from a signal handler while a playback wait or a vocabulary extraction is
// in progress. The lock is released while a segment's vocabulary is extracted; in that window
// the session has no current word and is not exhausted, so only End and Session are accepted.
type Machine struct {
	cfg Config
	obs Observer
	now func() time.Time
	log logrus.FieldLogger

	mu      sync.Mutex
	session Session
	entries []model.VocabEntry // vocabulary of the current segment

	sessionCtx     context.Context
	cancelSession  context.CancelFunc
	cancelPlayback context.CancelFunc
}

// NewMachine creates a Machine in the watching mode
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Vocabulary == nil || cfg.Scheduler == nil || cfg.Picker == nil || cfg.Extract == nil {
		return nil, apperrors.New(apperrors.CodeInvalidArg, "vocabulary, extract, scheduler and picker are required")
	}
	if cfg.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInvalidArg, "logger is required")
	}

	m := &Machine{
		cfg: cfg,
		obs: cfg.Observer,
		now: cfg.Clock,
		log: cfg.Logger.WithField("video_id", cfg.VideoID),
	}
	if m.obs == nil {
		m.obs = NopObserver{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Session returns a copy of the current session state
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// Start begins practice at video position t (seconds)
func (m *Machine) Start(ctx context.Context, t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode != Watching {
		return m.invalid("start")
	}
	index := SegmentIndexAt(m.cfg.Segments, t)
	if index < 0 {
		return apperrors.New(apperrors.CodeInvalidArg, "video has no subtitle segments")
	}

	m.session = Session{
		ID:           uuid.NewString(),
		Mode:         Watching,
		SegmentIndex: index,
		ResumeAt:     t,
	}
	m.sessionCtx, m.cancelSession = context.WithCancel(context.WithoutCancel(ctx))
	m.logger().WithField("at", t).Info("practice session started")

	m.enterPractice(ctx, index)
	return nil
}

// Reveal shows the back of the current DUE card
func (m *Machine) Reveal() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode != FlashcardPractice || m.session.Current == nil {
		return m.invalid("reveal")
	}
	if m.session.IsRevealed {
		return nil
	}
	m.session.IsRevealed = true
	m.obs.OnWordPresented(m.session.Current.Clone(), true)
	return nil
}

// Acknowledge dismisses a NEW word. Its card was scheduled when it was presented, so no grade
// is applied.
func (m *Machine) Acknowledge(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode != FlashcardPractice || m.session.Current == nil || !m.session.CurrentIsNew {
		return m.invalid("acknowledge")
	}

	m.session.LastPickedWord = m.session.Current.Original
	m.pickNext(ctx)
	return nil
}

// Rate grades the current DUE word after it has been revealed
func (m *Machine) Rate(ctx context.Context, grade scheduler.Grade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &m.session
	if s.Mode != FlashcardPractice || s.Current == nil || s.CurrentIsNew || !s.IsRevealed {
		return m.invalid("rate")
	}
	if !grade.Valid() {
		return apperrors.New(apperrors.CodeInvalidArg, fmt.Sprintf("invalid grade: %d", grade))
	}

	now := m.now()
	entry := s.Current.Clone()
	state, err := m.cfg.Scheduler.Grade(*entry.Schedule, grade, now)
	if err != nil {
		return err
	}
	entry.Schedule = &state
	entry.LastPicked = &now

	m.persist(ctx, entry)
	m.logger().WithFields(logrus.Fields{
		"word":  entry.Original,
		"grade": grade.String(),
		"due":   state.Due,
	}).Debug("word rated")

	s.LastPickedWord = entry.Original
	m.pickNext(ctx)
	return nil
}

// Proceed leaves the "nothing more to practice" screen and starts playback of the segment
func (m *Machine) Proceed(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode != FlashcardPractice || !m.session.Exhausted {
		return m.invalid("proceed")
	}
	m.enterAutoplay()
	return nil
}

// PlaybackFinished reports that the segment has played to its end
func (m *Machine) PlaybackFinished() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode != Autoplay {
		return m.invalid("finish playback")
	}
	m.stopPlayback()
	m.setMode(Evaluation)
	m.obs.OnEvaluationRequested(m.segment(), m.session.DraftNote)
	return nil
}

// Rewatch plays the segment again, keeping the note typed so far
func (m *Machine) Rewatch(draft string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode != Evaluation {
		return m.invalid("rewatch")
	}
	m.session.DraftNote = draft
	m.enterAutoplay()
	return nil
}

// SubmitNote stores the evaluation note and moves to the next segment, or ends the session
// after the last one. An empty note is allowed.
func (m *Machine) SubmitNote(ctx context.Context, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode != Evaluation {
		return m.invalid("submit note")
	}

	index := m.session.SegmentIndex
	if err := m.cfg.Vocabulary.SaveNote(ctx, m.cfg.VideoID, index, note); err != nil {
		m.logger().WithError(err).Error("failed to save note")
	}

	if index+1 >= len(m.cfg.Segments) {
		m.session.ResumeAt = m.cfg.Segments[index].End()
		m.finish()
		return nil
	}
	m.enterPractice(ctx, index+1)
	return nil
}

// End abandons the session from any mode. In-flight playback is cancelled and the video should
// be restored to the position practice was started from.
func (m *Machine) End() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Mode == Watching {
		return
	}
	m.logger().Info("practice session abandoned")
	m.finish()
}

func (m *Machine) finish() {
	m.stopPlayback()
	if m.cancelSession != nil {
		m.cancelSession()
		m.cancelSession = nil
	}

	resumeAt := m.session.ResumeAt
	m.setMode(Watching)
	m.session = Session{Mode: Watching}
	m.entries = nil
	m.obs.OnSessionEnded(resumeAt)
}

func (m *Machine) enterPractice(ctx context.Context, index int) {
	s := &m.session
	s.SegmentIndex = index
	s.LastPickedWord = ""
	s.Current = nil
	s.CurrentIsNew = false
	s.IsRevealed = false
	s.Exhausted = false
	s.DraftNote = ""

	m.setMode(FlashcardPractice)
	m.obs.OnSegmentChanged(index)

	seg := m.segment()
	sessionID := m.session.ID
	entries, err := m.ensureUnlocked(ctx, index, seg.Text)
	if m.session.ID != sessionID || m.session.SegmentIndex != index || m.session.Mode != FlashcardPractice {
		// ended (and maybe restarted) during extraction
		return
	}
	if err != nil {
		// the segment is still played and evaluated, just without flashcards
		m.logger().WithError(err).Error("failed to prepare segment vocabulary")
		m.obs.OnError(err)
		entries = nil
	}
	m.entries = entries

	m.pickNext(ctx)
}

// ensureUnlocked runs the extraction without holding mu. The call is cancelled when the session ends.
func (m *Machine) ensureUnlocked(ctx context.Context, index int, text string) ([]model.VocabEntry, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.sessionCtx, cancel)
	defer stop()

	m.mu.Unlock()
	defer m.mu.Lock()
	return m.cfg.Vocabulary.EnsureSegmentVocabulary(ctx, m.cfg.VideoID, index, text, m.cfg.Extract)
}

// pickNext presents the next eligible word, or the exhausted screen
func (m *Machine) pickNext(ctx context.Context) {
	s := &m.session
	for {
		now := m.now()
		entry, ok := m.cfg.Picker.PickNext(m.entries, s.LastPickedWord, now)
		if !ok {
			s.Current = nil
			s.CurrentIsNew = false
			s.IsRevealed = false
			s.Exhausted = true
			m.obs.OnPoolExhausted()
			return
		}

		if entry.IsNew() {
			card := m.cfg.Scheduler.CreateCard(now)
			entry.Schedule = &card
			entry.LastPicked = &now
			entry = m.persist(ctx, entry)
			m.present(entry, true)
			return
		}

		if entry.Schedule.Due.IsZero() {
			m.logger().WithField("word", entry.Original).Warn("due word has no scheduling state, skipping")
			m.drop(entry.Original)
			continue
		}
		m.present(entry, false)
		return
	}
}

func (m *Machine) present(entry model.VocabEntry, isNew bool) {
	s := &m.session
	s.Current = &entry
	s.CurrentIsNew = isNew
	s.IsRevealed = isNew
	s.Exhausted = false
	m.obs.OnWordPresented(entry.Clone(), s.IsRevealed)
}

// persist writes entry through the registry merge and refreshes the local pool. Write failures
// are logged and the in-memory state is used.
func (m *Machine) persist(ctx context.Context, entry model.VocabEntry) model.VocabEntry {
	merged, err := m.cfg.Vocabulary.UpsertGlobalEntry(ctx, entry)
	if err != nil {
		m.logger().WithError(err).WithField("word", entry.Original).Error("failed to persist word")
		if strings.TrimSpace(merged.Original) == "" {
			merged = entry
		}
	}
	for i := range m.entries {
		if m.entries[i].Original == merged.Original {
			m.entries[i] = merged.Clone()
		}
	}
	return merged
}

func (m *Machine) drop(original string) {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Original != original {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

func (m *Machine) enterAutoplay() {
	m.stopPlayback()
	var ctx context.Context
	ctx, m.cancelPlayback = context.WithCancel(m.sessionCtx)

	m.setMode(Autoplay)
	m.obs.OnAutoplayRequested(ctx, m.segment())
}

func (m *Machine) stopPlayback() {
	if m.cancelPlayback != nil {
		m.cancelPlayback()
		m.cancelPlayback = nil
	}
}

func (m *Machine) setMode(to Mode) {
	from := m.session.Mode
	m.session.Mode = to
	m.obs.OnTransition(from, to, m.session.SegmentIndex)
	m.logger().WithField("from", from.String()).Debug("mode changed")
}

func (m *Machine) segment() model.TimedSegment {
	return m.cfg.Segments[m.session.SegmentIndex]
}

func (m *Machine) logger() logrus.FieldLogger {
	return m.log.WithFields(logrus.Fields{
		"session_id": m.session.ID,
		"mode":       m.session.Mode.String(),
		"segment":    m.session.SegmentIndex,
	})
}

func (m *Machine) invalid(action string) error {
	return apperrors.New(apperrors.CodeInvalidTransition,
		fmt.Sprintf("cannot %s while %s", action, m.session.Mode))
}
