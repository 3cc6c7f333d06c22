package scheduler

import (
	"testing"
	"time"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestCreateCard_ImmediatelyDue(t *testing.T) {
	a := New(DefaultParams())
	card := a.CreateCard(now)

	assert.Equal(t, "new", card.State)
	assert.Nil(t, card.LastReview)
	assert.True(t, IsDue(card, now))
	assert.True(t, IsDue(card, now.Add(time.Second)))
	assert.True(t, IsDue(card, now.Add(365*24*time.Hour)))
	assert.False(t, IsDue(card, now.Add(-time.Nanosecond)))
}

func TestGrade_AgainForcesDue(t *testing.T) {
	a := New(DefaultParams())
	card := a.CreateCard(now)

	// get the card into review first so Again is a real lapse
	card, err := a.Grade(card, Easy, now)
	require.NoError(t, err)
	later := card.Due.Add(time.Hour)

	again, err := a.Grade(card, Again, later)
	require.NoError(t, err)
	assert.Equal(t, later, again.Due)
	assert.True(t, IsDue(again, later))
	require.NotNil(t, again.LastReview)
	assert.Equal(t, later, *again.LastReview)
}

func TestGrade_AgainOnNewCard(t *testing.T) {
	a := New(DefaultParams())
	card := a.CreateCard(now)

	again, err := a.Grade(card, Again, now)
	require.NoError(t, err)
	assert.True(t, IsDue(again, now))
	assert.Equal(t, uint64(1), again.Reps)
}

func TestGrade_PositiveRatingsPostpone(t *testing.T) {
	for _, g := range []Grade{Hard, Good, Easy} {
		t.Run(g.String(), func(t *testing.T) {
			a := New(DefaultParams())
			card, err := a.Grade(a.CreateCard(now), g, now)
			require.NoError(t, err)

			assert.True(t, card.Due.After(now), "due %v should be after %v", card.Due, now)
			assert.False(t, IsDue(card, now))
			assert.NotEqual(t, "new", card.State)
			assert.Greater(t, card.Stability, 0.0)
		})
	}
}

func TestGrade_EasyBeatsGood(t *testing.T) {
	a := New(DefaultParams())
	good, err := a.Grade(a.CreateCard(now), Good, now)
	require.NoError(t, err)
	easy, err := a.Grade(a.CreateCard(now), Easy, now)
	require.NoError(t, err)

	assert.True(t, easy.Due.After(good.Due))
}

func TestGrade_InvalidGrade(t *testing.T) {
	a := New(DefaultParams())
	_, err := a.Grade(a.CreateCard(now), Grade(9), now)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArg))
}

func TestGrade_DoesNotMutateInput(t *testing.T) {
	a := New(DefaultParams())
	card := a.CreateCard(now)
	before := card

	_, err := a.Grade(card, Good, now)
	require.NoError(t, err)
	assert.Equal(t, before, card)
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		input    string
		expected Grade
		wantErr  bool
	}{
		{input: "again", expected: Again},
		{input: "Hard", expected: Hard},
		{input: " good ", expected: Good},
		{input: "EASY", expected: Easy},
		{input: "1", expected: Again},
		{input: "4", expected: Easy},
		{input: "5", wantErr: true},
		{input: "wrong", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			g, err := ParseGrade(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, g)
		})
	}
}

func TestNew_Params(t *testing.T) {
	a := New(Params{RequestRetention: 0.8, MaximumInterval: 30})
	card := a.CreateCard(now)
	for i := 0; i < 10; i++ {
		gradedAt := card.Due
		var err error
		card, err = a.Grade(card, Easy, gradedAt)
		require.NoError(t, err)

		// interval never exceeds the configured maximum
		assert.LessOrEqual(t, card.ScheduledDays, uint64(30))
		assert.False(t, card.Due.After(gradedAt.AddDate(0, 0, 30)), "due %v graded at %v", card.Due, gradedAt)
	}
	assert.Equal(t, uint64(30), card.ScheduledDays, "repeated Easy reaches the cap")
}

func TestGrade_CapLeavesShortIntervalsAlone(t *testing.T) {
	a := New(Params{MaximumInterval: 30})
	card := a.CreateCard(now)

	next, err := a.Grade(card, Good, now)
	require.NoError(t, err)

	uncapped := New(Params{MaximumInterval: 36500})
	expected, err := uncapped.Grade(card, Good, now)
	require.NoError(t, err)

	assert.Equal(t, expected.ScheduledDays, next.ScheduledDays)
	assert.Equal(t, expected.Due, next.Due)
}
