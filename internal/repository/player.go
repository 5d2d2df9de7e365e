package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bingo-engine/internal/model"
)

// PlayerRepository handles match participants.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// JoinMatch adds a player and its cards while holding the match row lock,
// so the capacity check and the insert cannot interleave with another join.
func (r *PlayerRepository) JoinMatch(ctx context.Context, matchID, accountID int64, maxPlayers int, cards [][]int) (*model.Player, []model.Card, error) {
	const existsQuery = `SELECT EXISTS(SELECT 1 FROM players WHERE match_id = $1 AND account_id = $2)`
	const countQuery = `SELECT COUNT(*) FROM players WHERE match_id = $1`
	const insertQuery = `
		INSERT INTO players (match_id, account_id, joined_at)
		VALUES ($1, $2, NOW())
		RETURNING id, match_id, account_id, joined_at
	`

	var (
		player  model.Player
		created []model.Card
	)
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		status, round, _, err := lockMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if status != model.MatchWaiting {
			return model.ErrMatchNotJoinable
		}

		var joined bool
		if err := tx.QueryRow(ctx, existsQuery, matchID, accountID).Scan(&joined); err != nil {
			return err
		}
		if joined {
			return model.ErrAlreadyJoined
		}

		var count int
		if err := tx.QueryRow(ctx, countQuery, matchID).Scan(&count); err != nil {
			return err
		}
		if count >= maxPlayers {
			return model.ErrMatchFull
		}

		err = tx.QueryRow(ctx, insertQuery, matchID, accountID).Scan(
			&player.ID,
			&player.MatchID,
			&player.AccountID,
			&player.JoinedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "uq_players_match_account") {
				return model.ErrAlreadyJoined
			}
			return err
		}

		created = make([]model.Card, 0, len(cards))
		for _, nums := range cards {
			c, err := insertCard(ctx, tx, matchID, player.ID, round, nums)
			if err != nil {
				return err
			}
			created = append(created, *c)
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapUnlessKind(err, "failed to join match")
	}
	return &player, created, nil
}

// ListPlayers returns a match's players in join order.
func (r *PlayerRepository) ListPlayers(ctx context.Context, matchID int64) ([]model.Player, error) {
	const query = `
		SELECT id, match_id, account_id, joined_at
		FROM players
		WHERE match_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.MatchID, &p.AccountID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// CountPlayers returns the number of players in a match.
func (r *PlayerRepository) CountPlayers(ctx context.Context, matchID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM players WHERE match_id = $1`, matchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}
