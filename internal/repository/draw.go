package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bingo-engine/internal/model"
)

// DrawRepository handles drawn numbers.
type DrawRepository struct {
	pool *pgxpool.Pool
}

// NewDrawRepository creates a new DrawRepository instance.
func NewDrawRepository(pool *pgxpool.Pool) *DrawRepository {
	return &DrawRepository{pool: pool}
}

// InsertDraw appends a number to the round. The statement only inserts
// while the match is active in that round and computes the sequence from
// the rows it sees; the two unique constraints reject whichever of two
// racing inserts commits second.
func (r *DrawRepository) InsertDraw(ctx context.Context, matchID int64, round, number int) (*model.Draw, error) {
	const query = `
		INSERT INTO draws (match_id, round_number, number, sequence, drawn_at)
		SELECT m.id, $2, $3,
			COALESCE((SELECT MAX(sequence) FROM draws WHERE match_id = $1 AND round_number = $2), 0) + 1,
			NOW()
		FROM matches m
		WHERE m.id = $1 AND m.status = 'active' AND m.current_round = $2
		RETURNING id, match_id, round_number, number, sequence, drawn_at
	`

	var d model.Draw
	err := r.pool.QueryRow(ctx, query, matchID, round, number).Scan(
		&d.ID,
		&d.MatchID,
		&d.RoundNumber,
		&d.Number,
		&d.Sequence,
		&d.DrawnAt,
	)
	if err == nil {
		return &d, nil
	}

	switch {
	case isUniqueViolation(err, ""):
		return nil, model.ErrDuplicateDraw
	case errors.Is(err, pgx.ErrNoRows):
		var status model.MatchStatus
		var current int
		qerr := r.pool.QueryRow(ctx, `SELECT status, current_round FROM matches WHERE id = $1`, matchID).Scan(&status, &current)
		if errors.Is(qerr, pgx.ErrNoRows) {
			return nil, model.ErrMatchNotFound
		}
		return nil, fmt.Errorf("match %d is %s in round %d: %w", matchID, status, current, model.ErrMatchNotActive)
	}
	return nil, fmt.Errorf("failed to insert draw: %w", err)
}

// ListDraws returns the round's draws in sequence order.
func (r *DrawRepository) ListDraws(ctx context.Context, matchID int64, round int) ([]model.Draw, error) {
	const query = `
		SELECT id, match_id, round_number, number, sequence, drawn_at
		FROM draws
		WHERE match_id = $1 AND round_number = $2
		ORDER BY sequence
	`

	rows, err := r.pool.Query(ctx, query, matchID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	defer rows.Close()

	var draws []model.Draw
	for rows.Next() {
		var d model.Draw
		err := rows.Scan(
			&d.ID,
			&d.MatchID,
			&d.RoundNumber,
			&d.Number,
			&d.Sequence,
			&d.DrawnAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}

	return draws, nil
}
