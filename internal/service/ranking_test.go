package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingo-engine/internal/model"
)

// playRanks leaves account 11 with two wins, 10 with one and 12 with none.
func playRanks(t *testing.T) *testEngine {
	t.Helper()
	e := newTestEngine(t, smallUniverse(5))
	ctx := context.Background()

	first := e.startedMatch(t, fullCardPackage(5, 3, 2, 1), MatchOptions{PrizesPerRound: 2}, 10, 11, 12)
	e.drawAll(t, first.ID)
	winners, err := e.Prizes.Sweep(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, winners, 2)

	second := e.startedMatch(t, fullCardPackage(5, 3, 1, 1), MatchOptions{}, 11, 12)
	e.drawAll(t, second.ID)
	winners, err = e.Prizes.Sweep(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	require.Equal(t, int64(11), winners[0].AccountID)

	return e
}

func accountsOf(ranks []model.Rank) []int64 {
	ids := make([]int64, len(ranks))
	for i, r := range ranks {
		ids[i] = r.AccountID
	}
	return ids
}

func TestRanks_Top(t *testing.T) {
	e := playRanks(t)
	ctx := context.Background()

	top, err := e.Ranks.Top(ctx, model.PeriodTotal, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 10, 12}, accountsOf(top))
	assert.Equal(t, []int{2, 1, 0}, []int{top[0].TotalWins, top[1].TotalWins, top[2].TotalWins})

	limited, err := e.Ranks.Top(ctx, model.PeriodWeekly, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 10}, accountsOf(limited))

	r, err := e.Ranks.Get(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalGames)

	_, err = e.Ranks.Get(ctx, 999)
	assert.ErrorIs(t, err, model.ErrRankNotFound)
}

func TestRanks_Reset(t *testing.T) {
	e := playRanks(t)
	ctx := context.Background()

	n, err := e.Ranks.Reset(ctx, model.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	weekly, err := e.Ranks.Top(ctx, model.PeriodWeekly, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, accountsOf(weekly), "all zero, ordered by account")

	r, err := e.Ranks.Get(ctx, 11)
	require.NoError(t, err)
	assert.Zero(t, r.WeeklyWins)
	assert.Equal(t, 2, r.MonthlyWins)
	assert.Equal(t, 2, r.TotalWins)

	_, err = e.Ranks.Reset(ctx, model.PeriodTotal)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestAccounts_OpenIsIdempotent(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	w, created, err := e.Accounts.Open(ctx, 5)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, w.Balance.IsZero())

	again, created, err := e.Accounts.Open(ctx, 5)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, w.ID, again.ID)

	byAccount, err := e.Wallets.WalletForAccount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, w.ID, byAccount.ID)

	r, err := e.Ranks.Get(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, r.TotalWins)
	assert.Zero(t, r.TotalGames)
}
