package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bingo-engine/internal/model"
)

// RankService reads leaderboards and runs the periodic counter resets.
// Counters only grow through prize awards.
type RankService struct {
	ranks RankStore
}

// NewRankService creates a new RankService instance.
func NewRankService(ranks RankStore) *RankService {
	return &RankService{ranks: ranks}
}

// Get returns an account's counters.
func (s *RankService) Get(ctx context.Context, accountID int64) (*model.Rank, error) {
	return s.ranks.GetRank(ctx, accountID)
}

// Top returns up to limit accounts ordered by wins in the period, ties
// broken by account id.
func (s *RankService) Top(ctx context.Context, period model.RankPeriod, limit int) ([]model.Rank, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.ranks.TopRanks(ctx, period, limit)
}

// Reset zeroes the weekly or monthly counters. The schedule belongs to the
// caller.
func (s *RankService) Reset(ctx context.Context, period model.RankPeriod) (int64, error) {
	if period != model.PeriodWeekly && period != model.PeriodMonthly {
		return 0, fmt.Errorf("cannot reset %s wins: %w", period, model.ErrInvalidConfig)
	}

	n, err := s.ranks.ResetWins(ctx, period)
	if err != nil {
		return 0, err
	}

	log.Info().Str("period", string(period)).Int64("accounts", n).Msg("Rank counters reset")
	return n, nil
}
