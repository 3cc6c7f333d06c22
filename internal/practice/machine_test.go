package practice

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/logger"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/scheduler"
	"github.com/Taichi-iskw/yt-vocab/internal/selector"
	"github.com/Taichi-iskw/yt-vocab/internal/store"
	"github.com/Taichi-iskw/yt-vocab/internal/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type event struct {
	kind  string
	mode  Mode
	index int
	word  string
}

// recorder stores every hook call in order
type recorder struct {
	events      []event
	playbackCtx context.Context
	errs        []error
	drafts      []string
	resumeAt    []float64
}

func (r *recorder) OnTransition(from, to Mode, segmentIndex int) {
	r.events = append(r.events, event{kind: "transition", mode: to, index: segmentIndex})
}

func (r *recorder) OnSegmentChanged(segmentIndex int) {
	r.events = append(r.events, event{kind: "segment", index: segmentIndex})
}

func (r *recorder) OnWordPresented(entry model.VocabEntry, isRevealed bool) {
	kind := "front"
	if isRevealed {
		kind = "revealed"
	}
	r.events = append(r.events, event{kind: kind, word: entry.Original})
}

func (r *recorder) OnPoolExhausted() {
	r.events = append(r.events, event{kind: "exhausted"})
}

func (r *recorder) OnAutoplayRequested(ctx context.Context, segment model.TimedSegment) {
	r.playbackCtx = ctx
}

func (r *recorder) OnEvaluationRequested(segment model.TimedSegment, draft string) {
	r.drafts = append(r.drafts, draft)
}

func (r *recorder) OnSessionEnded(resumeAt float64) {
	r.resumeAt = append(r.resumeAt, resumeAt)
}

func (r *recorder) OnError(err error) {
	r.errs = append(r.errs, err)
}

func (r *recorder) transitions() []event {
	var out []event
	for _, e := range r.events {
		if e.kind == "transition" {
			out = append(out, e)
		}
	}
	return out
}

// mockVocabulary delegates to a real cache unless a func field is set
type mockVocabulary struct {
	cache      *vocabulary.Cache
	EnsureFunc func(ctx context.Context, videoID string, index int, text string, extract vocabulary.ExtractFunc) ([]model.VocabEntry, error)
	UpsertFunc func(ctx context.Context, entry model.VocabEntry) (model.VocabEntry, error)
	notes      map[int]string
}

func (m *mockVocabulary) EnsureSegmentVocabulary(ctx context.Context, videoID string, index int, text string, extract vocabulary.ExtractFunc) ([]model.VocabEntry, error) {
	if m.EnsureFunc != nil {
		return m.EnsureFunc(ctx, videoID, index, text, extract)
	}
	return m.cache.EnsureSegmentVocabulary(ctx, videoID, index, text, extract)
}

func (m *mockVocabulary) UpsertGlobalEntry(ctx context.Context, entry model.VocabEntry) (model.VocabEntry, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, entry)
	}
	return m.cache.UpsertGlobalEntry(ctx, entry)
}

func (m *mockVocabulary) SaveNote(ctx context.Context, videoID string, index int, text string) error {
	if m.notes == nil {
		m.notes = map[int]string{}
	}
	m.notes[index] = text
	return m.cache.SaveNote(ctx, videoID, index, text)
}

type fixture struct {
	machine *Machine
	vocab   *mockVocabulary
	obs     *recorder
	sched   *scheduler.Adapter
}

func clock() time.Time { return now }

// pairsByText extracts the words listed for a segment's text
func pairsByText(vocab map[string][]model.VocabPair) vocabulary.ExtractFunc {
	return func(ctx context.Context, text string) ([]model.VocabPair, error) {
		return vocab[text], nil
	}
}

func newFixture(t *testing.T, segments []model.TimedSegment, extract vocabulary.ExtractFunc, seed uint64) *fixture {
	t.Helper()
	cache := vocabulary.NewCache(store.NewMemoryStore(), logger.Discard(), vocabulary.WithClock(clock))
	f := &fixture{
		vocab: &mockVocabulary{cache: cache},
		obs:   &recorder{},
		sched: scheduler.New(scheduler.DefaultParams()),
	}

	m, err := NewMachine(Config{
		VideoID:    "vid",
		Segments:   segments,
		Vocabulary: f.vocab,
		Extract:    extract,
		Scheduler:  f.sched,
		Picker:     selector.New(rand.NewPCG(seed, seed+1)),
		Observer:   f.obs,
		Clock:      clock,
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	f.machine = m
	return f
}

// practiceUntilExhausted acknowledges NEW words and rates DUE words Good, returning the words
// in the order they were shown
func practiceUntilExhausted(t *testing.T, m *Machine) []string {
	t.Helper()
	var shown []string
	for i := 0; i < 50; i++ {
		s := m.Session()
		require.Equal(t, FlashcardPractice, s.Mode)
		if s.Exhausted {
			return shown
		}
		require.NotNil(t, s.Current)
		shown = append(shown, s.Current.Original)

		if s.CurrentIsNew {
			assert.True(t, s.IsRevealed, "new words are shown revealed")
			require.NoError(t, m.Acknowledge(context.Background()))
			continue
		}
		assert.False(t, s.IsRevealed, "due words start on the front")
		require.NoError(t, m.Reveal())
		require.NoError(t, m.Rate(context.Background(), scheduler.Good))
	}
	t.Fatal("pool never exhausted")
	return nil
}

func TestNewMachine_Validation(t *testing.T) {
	_, err := NewMachine(Config{Logger: logger.Discard()})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArg))
}

func TestMachine_GatoPerroScenario(t *testing.T) {
	segments := []model.TimedSegment{{Start: 0, Duration: 4, Text: "el gato y el perro"}}
	extract := pairsByText(map[string][]model.VocabPair{
		"el gato y el perro": {{Original: "gato", Translation: "cat"}, {Original: "perro", Translation: "dog"}},
	})

	for seed := uint64(1); seed <= 8; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			f := newFixture(t, segments, extract, seed)
			ctx := context.Background()

			// perro was learned earlier and is due now
			past := now.Add(-time.Hour)
			learned, err := f.sched.Grade(f.sched.CreateCard(past), scheduler.Good, past)
			require.NoError(t, err)
			require.True(t, scheduler.IsDue(learned, now))
			_, err = f.vocab.cache.UpsertGlobalEntry(ctx, model.VocabEntry{
				Original:     "perro",
				Translations: []string{"dog"},
				Schedule:     &learned,
			})
			require.NoError(t, err)

			require.NoError(t, f.machine.Start(ctx, 1.5))
			shown := practiceUntilExhausted(t, f.machine)

			// gato first is shown again once its fresh card is due
			assert.Contains(t, [][]string{{"perro", "gato"}, {"gato", "perro", "gato"}}, shown)
			for i := 1; i < len(shown); i++ {
				assert.NotEqual(t, shown[i-1], shown[i])
			}

			perro, err := f.vocab.cache.GetEntry(ctx, "perro")
			require.NoError(t, err)
			assert.False(t, scheduler.IsDue(*perro.Schedule, now))
			require.NotNil(t, perro.LastPicked)

			gato, err := f.vocab.cache.GetEntry(ctx, "gato")
			require.NoError(t, err)
			require.NotNil(t, gato.Schedule, "presenting a new word schedules it")

			require.NoError(t, f.machine.Proceed(ctx))
			assert.Equal(t, Autoplay, f.machine.Session().Mode)
			require.NoError(t, f.machine.PlaybackFinished())
			assert.Equal(t, Evaluation, f.machine.Session().Mode)
		})
	}
}

func TestMachine_FullSessionVisitsPracticeBeforeAutoplay(t *testing.T) {
	segments := []model.TimedSegment{
		{Start: 0, Duration: 2, Text: "hola amigo"},
		{Start: 2, Duration: 3, Text: ""},
		{Start: 5, Duration: 2, Text: "adiós amigo"},
	}
	extract := pairsByText(map[string][]model.VocabPair{
		"hola amigo":  {{Original: "hola", Translation: "hello"}, {Original: "amigo", Translation: "friend"}},
		"adiós amigo": {{Original: "adiós", Translation: "goodbye"}, {Original: "amigo", Translation: "pal"}},
	})
	f := newFixture(t, segments, extract, 42)
	ctx := context.Background()
	m := f.machine

	require.NoError(t, m.Start(ctx, 0))
	for steps := 0; m.Session().Mode != Watching; steps++ {
		require.Less(t, steps, 200)
		s := m.Session()
		switch s.Mode {
		case FlashcardPractice:
			switch {
			case s.Exhausted:
				require.NoError(t, m.Proceed(ctx))
			case s.CurrentIsNew:
				require.NoError(t, m.Acknowledge(ctx))
			default:
				require.NoError(t, m.Reveal())
				require.NoError(t, m.Rate(ctx, scheduler.Good))
			}
		case Autoplay:
			require.NoError(t, m.PlaybackFinished())
		case Evaluation:
			require.NoError(t, m.SubmitNote(ctx, fmt.Sprintf("note %d", s.SegmentIndex)))
		}
	}

	trans := f.obs.transitions()
	var autoplays int
	for i, e := range trans {
		if e.mode != Autoplay {
			continue
		}
		autoplays++
		require.Greater(t, i, 0)
		assert.Equal(t, FlashcardPractice, trans[i-1].mode)
		assert.Equal(t, e.index, trans[i-1].index)
	}
	assert.Equal(t, 3, autoplays)

	var modes []Mode
	for _, e := range trans {
		modes = append(modes, e.mode)
	}
	assert.Equal(t, []Mode{
		FlashcardPractice, Autoplay, Evaluation,
		FlashcardPractice, Autoplay, Evaluation,
		FlashcardPractice, Autoplay, Evaluation,
		Watching,
	}, modes)

	assert.Equal(t, map[int]string{0: "note 0", 1: "note 1", 2: "note 2"}, f.vocab.notes)
	assert.Equal(t, []float64{7}, f.obs.resumeAt, "a finished session resumes after the last segment")

	amigo, err := f.vocab.cache.GetEntry(ctx, "amigo")
	require.NoError(t, err)
	assert.Equal(t, []string{"friend", "pal"}, amigo.Translations)
}

func TestMachine_StartPicksSegmentByTimestamp(t *testing.T) {
	segments := []model.TimedSegment{
		{Start: 0, Duration: 2, Text: "a"},
		{Start: 10, Duration: 2, Text: "b"},
	}
	f := newFixture(t, segments, pairsByText(nil), 1)

	require.NoError(t, f.machine.Start(context.Background(), 7))
	s := f.machine.Session()
	assert.Equal(t, 1, s.SegmentIndex)
	assert.Equal(t, 7.0, s.ResumeAt)
	assert.NotEmpty(t, s.ID)
	assert.True(t, s.Exhausted)
	assert.Empty(t, s.LastPickedWord)
}

func TestMachine_StartWithoutSegments(t *testing.T) {
	f := newFixture(t, nil, pairsByText(nil), 1)
	err := f.machine.Start(context.Background(), 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArg))
	assert.Equal(t, Watching, f.machine.Session().Mode)
}

func TestMachine_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 0, Duration: 2, Text: "gato"}}
	extract := pairsByText(map[string][]model.VocabPair{"gato": {{Original: "gato", Translation: "cat"}}})

	t.Run("watching", func(t *testing.T) {
		m := newFixture(t, segments, extract, 1).machine
		calls := map[string]error{
			"reveal":      m.Reveal(),
			"acknowledge": m.Acknowledge(ctx),
			"rate":        m.Rate(ctx, scheduler.Good),
			"proceed":     m.Proceed(ctx),
			"playback":    m.PlaybackFinished(),
			"rewatch":     m.Rewatch("x"),
			"submit":      m.SubmitNote(ctx, "x"),
		}
		for name, err := range calls {
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition), name)
		}
		assert.Equal(t, Watching, m.Session().Mode)
	})

	t.Run("practice with a new word on screen", func(t *testing.T) {
		m := newFixture(t, segments, extract, 1).machine
		require.NoError(t, m.Start(ctx, 0))
		before := m.Session()
		require.True(t, before.CurrentIsNew)

		assert.True(t, apperrors.Is(m.Start(ctx, 0), apperrors.CodeInvalidTransition))
		assert.True(t, apperrors.Is(m.Rate(ctx, scheduler.Good), apperrors.CodeInvalidTransition), "new words are acknowledged, not rated")
		assert.True(t, apperrors.Is(m.Proceed(ctx), apperrors.CodeInvalidTransition), "cannot skip practice")
		assert.True(t, apperrors.Is(m.PlaybackFinished(), apperrors.CodeInvalidTransition))
		assert.True(t, apperrors.Is(m.SubmitNote(ctx, ""), apperrors.CodeInvalidTransition))
		assert.Equal(t, before, m.Session())
	})

	t.Run("due word must be revealed before rating", func(t *testing.T) {
		f := newFixture(t, segments, extract, 1)
		card := f.sched.CreateCard(now)
		_, err := f.vocab.cache.UpsertGlobalEntry(ctx, model.VocabEntry{Original: "gato", Translations: []string{"cat"}, Schedule: &card})
		require.NoError(t, err)

		m := f.machine
		require.NoError(t, m.Start(ctx, 0))
		require.False(t, m.Session().CurrentIsNew)

		assert.True(t, apperrors.Is(m.Rate(ctx, scheduler.Good), apperrors.CodeInvalidTransition))
		assert.True(t, apperrors.Is(m.Acknowledge(ctx), apperrors.CodeInvalidTransition))
		require.NoError(t, m.Reveal())
		assert.True(t, apperrors.Is(m.Rate(ctx, scheduler.Grade(9)), apperrors.CodeInvalidArg))
		require.NoError(t, m.Rate(ctx, scheduler.Again))
		assert.Equal(t, "gato", m.Session().LastPickedWord)
		assert.True(t, m.Session().Exhausted, "the only word is excluded right after it was shown")
	})
}

func TestMachine_AgainKeepsWordInSession(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 0, Duration: 2, Text: "uno dos"}}
	extract := pairsByText(map[string][]model.VocabPair{
		"uno dos": {{Original: "uno", Translation: "one"}, {Original: "dos", Translation: "two"}},
	})
	f := newFixture(t, segments, extract, 3)
	for _, w := range []string{"uno", "dos"} {
		card := f.sched.CreateCard(now)
		_, err := f.vocab.cache.UpsertGlobalEntry(ctx, model.VocabEntry{Original: w, Translations: []string{w}, Schedule: &card})
		require.NoError(t, err)
	}

	m := f.machine
	require.NoError(t, m.Start(ctx, 0))
	first := m.Session().Current.Original
	require.NoError(t, m.Reveal())
	require.NoError(t, m.Rate(ctx, scheduler.Again))

	second := m.Session().Current
	require.NotNil(t, second)
	assert.NotEqual(t, first, second.Original)
	require.NoError(t, m.Reveal())
	require.NoError(t, m.Rate(ctx, scheduler.Easy))

	third := m.Session().Current
	require.NotNil(t, third, "a word rated Again is due again")
	assert.Equal(t, first, third.Original)
}

func TestMachine_ExtractionFailureFallsThroughToAutoplay(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 0, Duration: 2, Text: "hola"}}
	extract := func(ctx context.Context, text string) ([]model.VocabPair, error) {
		return nil, errors.New("api key rejected")
	}
	f := newFixture(t, segments, extract, 1)

	require.NoError(t, f.machine.Start(ctx, 0))
	require.Len(t, f.obs.errs, 1)
	assert.True(t, apperrors.Is(f.obs.errs[0], apperrors.CodeExternal))

	s := f.machine.Session()
	assert.Equal(t, FlashcardPractice, s.Mode)
	assert.True(t, s.Exhausted)
	require.NoError(t, f.machine.Proceed(ctx))
	assert.Equal(t, Autoplay, f.machine.Session().Mode)
}

func TestMachine_SkipsDueWordWithoutSchedule(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 0, Duration: 2, Text: "x"}}
	f := newFixture(t, segments, pairsByText(nil), 5)
	f.vocab.EnsureFunc = func(ctx context.Context, videoID string, index int, text string, extract vocabulary.ExtractFunc) ([]model.VocabEntry, error) {
		return []model.VocabEntry{
			{Original: "roto", Translations: []string{"broken"}, Schedule: &model.CardState{}},
			{Original: "sano", Translations: []string{"healthy"}},
		}, nil
	}

	require.NoError(t, f.machine.Start(ctx, 0))
	s := f.machine.Session()
	require.NotNil(t, s.Current)
	assert.Equal(t, "sano", s.Current.Original)

	require.NoError(t, f.machine.Acknowledge(ctx))
	assert.True(t, f.machine.Session().Exhausted)
	for _, e := range f.obs.events {
		assert.NotEqual(t, "roto", e.word)
	}
}

func TestMachine_StorageWriteFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 0, Duration: 2, Text: "sol"}}
	extract := pairsByText(map[string][]model.VocabPair{"sol": {{Original: "sol", Translation: "sun"}}})
	f := newFixture(t, segments, extract, 1)
	f.vocab.UpsertFunc = func(ctx context.Context, entry model.VocabEntry) (model.VocabEntry, error) {
		return model.VocabEntry{}, errors.New("quota exceeded")
	}

	require.NoError(t, f.machine.Start(ctx, 0))
	s := f.machine.Session()
	require.NotNil(t, s.Current)
	require.NotNil(t, s.Current.Schedule, "in-memory state keeps the new card")
	require.NoError(t, f.machine.Acknowledge(ctx))
	assert.True(t, f.machine.Session().Exhausted)
	assert.Empty(t, f.obs.errs)
}

func TestMachine_RewatchKeepsDraft(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 0, Duration: 2, Text: ""}, {Start: 2, Duration: 2, Text: ""}}
	f := newFixture(t, segments, pairsByText(nil), 1)
	m := f.machine

	require.NoError(t, m.Start(ctx, 0))
	require.NoError(t, m.Proceed(ctx))
	require.NoError(t, m.PlaybackFinished())

	require.NoError(t, m.Rewatch("half a tho"))
	firstPlayback := f.obs.playbackCtx
	assert.Equal(t, Autoplay, m.Session().Mode)
	require.NoError(t, m.PlaybackFinished())
	assert.Error(t, firstPlayback.Err(), "finished playback releases its context")

	assert.Equal(t, []string{"", "half a tho"}, f.obs.drafts)
	assert.Equal(t, "half a tho", m.Session().DraftNote)

	require.NoError(t, m.SubmitNote(ctx, "half a thought"))
	s := m.Session()
	assert.Equal(t, 1, s.SegmentIndex)
	assert.Empty(t, s.DraftNote, "drafts do not carry over to the next segment")

	note, ok, err := f.vocab.cache.GetNote(ctx, "vid", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "half a thought", note.Text)
}

func TestMachine_EndCancelsPlayback(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 30, Duration: 5, Text: ""}}
	f := newFixture(t, segments, pairsByText(nil), 1)
	m := f.machine

	require.NoError(t, m.Start(ctx, 31.5))
	require.NoError(t, m.Proceed(ctx))
	playback := f.obs.playbackCtx
	require.NotNil(t, playback)
	require.NoError(t, playback.Err())

	done := make(chan struct{})
	go func() {
		<-playback.Done()
		close(done)
	}()
	m.End()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("playback wait was not cancelled")
	}
	assert.Equal(t, Session{Mode: Watching}, m.Session())
	assert.Equal(t, []float64{31.5}, f.obs.resumeAt)
	assert.True(t, apperrors.Is(m.PlaybackFinished(), apperrors.CodeInvalidTransition))

	// ending twice is harmless and a new session can start
	m.End()
	assert.Len(t, f.obs.resumeAt, 1)
	require.NoError(t, m.Start(ctx, 30))
	assert.NotEqual(t, Watching, m.Session().Mode)
}

func TestMachine_EndDuringExtraction(t *testing.T) {
	ctx := context.Background()
	segments := []model.TimedSegment{{Start: 0, Duration: 2, Text: "lento"}}
	f := newFixture(t, segments, pairsByText(nil), 1)
	m := f.machine

	started := make(chan struct{})
	var extractErr error
	f.vocab.EnsureFunc = func(ctx context.Context, videoID string, index int, text string, extract vocabulary.ExtractFunc) ([]model.VocabEntry, error) {
		close(started)
		<-ctx.Done()
		extractErr = ctx.Err()
		return nil, ctx.Err()
	}

	startErr := make(chan error, 1)
	go func() {
		startErr <- m.Start(ctx, 0.5)
	}()
	<-started

	// the lock is not held while the model is queried
	s := m.Session()
	assert.Equal(t, FlashcardPractice, s.Mode)
	assert.Nil(t, s.Current)
	assert.False(t, s.Exhausted)
	assert.True(t, apperrors.Is(m.Proceed(ctx), apperrors.CodeInvalidTransition))

	ended := make(chan struct{})
	go func() {
		m.End()
		close(ended)
	}()
	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("End blocked behind the extraction")
	}

	select {
	case err := <-startErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("extraction was not cancelled")
	}
	assert.ErrorIs(t, extractErr, context.Canceled)
	assert.Equal(t, Session{Mode: Watching}, m.Session())
	assert.Equal(t, []float64{0.5}, f.obs.resumeAt)
	assert.Empty(t, f.obs.errs, "a cancelled extraction is not reported")
	for _, e := range f.obs.events {
		assert.NotEqual(t, "exhausted", e.kind)
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "watching", Watching.String())
	assert.Equal(t, "flashcard_practice", FlashcardPractice.String())
	assert.Equal(t, "autoplay", Autoplay.String())
	assert.Equal(t, "evaluation", Evaluation.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
