package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bingo-engine/internal/model"
)

// RankRepository handles per-account win counters.
type RankRepository struct {
	pool *pgxpool.Pool
}

// NewRankRepository creates a new RankRepository instance.
func NewRankRepository(pool *pgxpool.Pool) *RankRepository {
	return &RankRepository{pool: pool}
}

// rankColumn maps a period to its counter column.
func rankColumn(period model.RankPeriod) (string, error) {
	switch period {
	case model.PeriodTotal:
		return "total_wins", nil
	case model.PeriodWeekly:
		return "weekly_wins", nil
	case model.PeriodMonthly:
		return "monthly_wins", nil
	}
	return "", fmt.Errorf("unknown rank period %q: %w", period, model.ErrInvalidConfig)
}

// GetRank retrieves an account's counters.
func (r *RankRepository) GetRank(ctx context.Context, accountID int64) (*model.Rank, error) {
	const query = `
		SELECT account_id, total_wins, weekly_wins, monthly_wins, total_games, updated_at
		FROM ranks
		WHERE account_id = $1
	`

	var rank model.Rank
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&rank.AccountID,
		&rank.TotalWins,
		&rank.WeeklyWins,
		&rank.MonthlyWins,
		&rank.TotalGames,
		&rank.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRankNotFound
		}
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}
	return &rank, nil
}

// TopRanks returns the leaderboard for a period, ties broken by account id.
func (r *RankRepository) TopRanks(ctx context.Context, period model.RankPeriod, limit int) ([]model.Rank, error) {
	column, err := rankColumn(period)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT account_id, total_wins, weekly_wins, monthly_wins, total_games, updated_at
		FROM ranks
		ORDER BY ` + column + ` DESC, account_id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top ranks: %w", err)
	}
	defer rows.Close()

	var ranks []model.Rank
	for rows.Next() {
		var rank model.Rank
		err := rows.Scan(
			&rank.AccountID,
			&rank.TotalWins,
			&rank.WeeklyWins,
			&rank.MonthlyWins,
			&rank.TotalGames,
			&rank.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rank: %w", err)
		}
		ranks = append(ranks, rank)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranks: %w", err)
	}

	return ranks, nil
}

// ResetWins zeroes the weekly or monthly counter and returns how many
// accounts changed. Total wins are never reset.
func (r *RankRepository) ResetWins(ctx context.Context, period model.RankPeriod) (int64, error) {
	if period == model.PeriodTotal {
		return 0, fmt.Errorf("cannot reset %s wins: %w", period, model.ErrInvalidConfig)
	}
	column, err := rankColumn(period)
	if err != nil {
		return 0, err
	}

	query := `UPDATE ranks SET ` + column + ` = 0, updated_at = NOW() WHERE ` + column + ` <> 0`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reset %s wins: %w", period, err)
	}
	return result.RowsAffected(), nil
}
