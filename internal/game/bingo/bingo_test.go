package bingo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingo-engine/internal/model"
)

func TestGenerateNumbers_RejectsBadSize(t *testing.T) {
	rng := NewSource(1)

	_, err := GenerateNumbers(rng, 75, 0)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = GenerateNumbers(rng, 10, 11)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestGenerateNumbers_SeededIsDeterministic(t *testing.T) {
	a, err := GenerateNumbers(NewSource(42), 75, 24)
	require.NoError(t, err)
	b, err := GenerateNumbers(NewSource(42), 75, 24)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateNumbers_FullUniverse(t *testing.T) {
	nums, err := GenerateNumbers(NewSource(7), 15, 15)
	require.NoError(t, err)
	assert.Equal(t, Universe(15), nums)
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, []int{2, 4, 5}, Remaining(5, []int{1, 3}))
	assert.Empty(t, Remaining(3, []int{3, 2, 1}))
	assert.Equal(t, Universe(4), Remaining(4, nil))
}

func TestPickNumber(t *testing.T) {
	_, ok := PickNumber(NewSource(1), nil)
	assert.False(t, ok)

	n, ok := PickNumber(NewSource(1), []int{9})
	assert.True(t, ok)
	assert.Equal(t, 9, n)
}

func TestMarkNumber(t *testing.T) {
	card := &model.Card{Numbers: []int{3, 8, 21}}

	tests := []struct {
		name   string
		number int
		want   bool
		marked []int
	}{
		{"number on card", 8, true, []int{8}},
		{"re-mark is a no-op", 8, true, []int{8}},
		{"number not on card", 50, false, []int{8}},
		{"second number", 3, true, []int{8, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkNumber(card, tt.number))
			assert.Equal(t, tt.marked, card.Marked)
		})
	}
}

func TestCheckBingo(t *testing.T) {
	card := &model.Card{Numbers: []int{1, 2, 3}}

	assert.True(t, CheckBingo(card, NewNumberSet(1, 2, 3)))
	assert.True(t, CheckBingo(card, NewNumberSet(1, 2, 3, 70)))
	assert.False(t, CheckBingo(card, NewNumberSet(1, 2)))
	assert.False(t, CheckBingo(&model.Card{}, NewNumberSet(1)))
	assert.False(t, card.IsBingo, "check must not mutate the card")
}

func TestWinningCards_OrderedByIDAndSkipsWinners(t *testing.T) {
	drawn := NewNumberSet(1, 2, 3, 4)
	cards := []model.Card{
		{ID: 9, Numbers: []int{1, 2}},
		{ID: 4, Numbers: []int{3, 4}},
		{ID: 6, Numbers: []int{1, 5}},
		{ID: 2, Numbers: []int{1, 3}, IsBingo: true},
	}

	winners := WinningCards(cards, drawn)
	require.Len(t, winners, 2)
	assert.Equal(t, int64(4), winners[0].ID)
	assert.Equal(t, int64(9), winners[1].ID)
}

func TestDrawnSet(t *testing.T) {
	s := DrawnSet([]model.Draw{{Number: 5}, {Number: 17}})
	assert.True(t, s.Has(5))
	assert.True(t, s.Has(17))
	assert.False(t, s.Has(6))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.MatchStatus
		want     bool
	}{
		{model.MatchDraft, model.MatchWaiting, true},
		{model.MatchDraft, model.MatchActive, false},
		{model.MatchWaiting, model.MatchActive, true},
		{model.MatchActive, model.MatchPaused, true},
		{model.MatchPaused, model.MatchActive, true},
		{model.MatchActive, model.MatchWaiting, false},
		{model.MatchActive, model.MatchFinished, true},
		{model.MatchFinished, model.MatchActive, false},
		{model.MatchFinished, model.MatchFinished, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
			if !tt.want {
				assert.ErrorIs(t, CheckTransition(tt.from, tt.to), model.ErrInvalidTransition)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	assert.Equal(t, []model.MatchStatus{model.MatchDraft}, From(model.MatchWaiting))
	assert.Equal(t, []model.MatchStatus{model.MatchWaiting, model.MatchPaused}, From(model.MatchActive))
	assert.Len(t, From(model.MatchFinished), 4)
	assert.Empty(t, From(model.MatchDraft))
}

func TestJoinError(t *testing.T) {
	waiting := &model.Match{Status: model.MatchWaiting}
	active := &model.Match{Status: model.MatchActive}

	assert.NoError(t, JoinError(waiting, 2, 3))
	assert.True(t, CanJoin(waiting, 2, 3))
	assert.ErrorIs(t, JoinError(waiting, 3, 3), model.ErrMatchFull)
	assert.ErrorIs(t, JoinError(active, 0, 3), model.ErrMatchNotJoinable)
	assert.False(t, CanJoin(active, 0, 3))
}

func TestNewInviteCode(t *testing.T) {
	a, b := NewInviteCode(), NewInviteCode()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}
