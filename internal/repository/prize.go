package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"bingo-engine/internal/model"
)

// PrizeRepository handles prizes and winner records.
type PrizeRepository struct {
	pool *pgxpool.Pool
}

// NewPrizeRepository creates a new PrizeRepository instance.
func NewPrizeRepository(pool *pgxpool.Pool) *PrizeRepository {
	return &PrizeRepository{pool: pool}
}

const prizeColumns = `id, match_id, round_number, name, position, is_claimed, winner_card_id`

func scanPrize(row scanner) (*model.Prize, error) {
	var p model.Prize
	err := row.Scan(
		&p.ID,
		&p.MatchID,
		&p.RoundNumber,
		&p.Name,
		&p.Position,
		&p.IsClaimed,
		&p.WinnerCardID,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPrizes returns a round's prizes in position order.
func (r *PrizeRepository) ListPrizes(ctx context.Context, matchID int64, round int) ([]model.Prize, error) {
	const query = `
		SELECT ` + prizeColumns + `
		FROM prizes
		WHERE match_id = $1 AND round_number = $2
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, matchID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes: %w", err)
	}
	defer rows.Close()

	var prizes []model.Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prize: %w", err)
		}
		prizes = append(prizes, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prizes: %w", err)
	}

	return prizes, nil
}

// GetPrize retrieves a prize by id.
func (r *PrizeRepository) GetPrize(ctx context.Context, id int64) (*model.Prize, error) {
	const query = `SELECT ` + prizeColumns + ` FROM prizes WHERE id = $1`

	p, err := scanPrize(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPrizeNotFound
		}
		return nil, fmt.Errorf("failed to get prize: %w", err)
	}
	return p, nil
}

// AwardWinner applies the four award mutations in one transaction. The
// prize row lock serializes racing awards for the same prize and the
// (prize_id, round_number) constraint backs it up.
func (r *PrizeRepository) AwardWinner(ctx context.Context, prizeID, cardID int64, at time.Time) (*model.Winner, error) {
	const lockPrize = `SELECT ` + prizeColumns + ` FROM prizes WHERE id = $1 FOR UPDATE`
	const lockCard = `
		SELECT c.match_id, c.round_number, c.is_bingo, p.account_id
		FROM cards c
		JOIN players p ON p.id = c.player_id
		WHERE c.id = $1
		FOR UPDATE OF c
	`
	const matchState = `SELECT status, current_round FROM matches WHERE id = $1 FOR SHARE`
	const insertWinner = `
		INSERT INTO winners (match_id, prize_id, card_id, account_id, round_number, won_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, match_id, prize_id, card_id, account_id, round_number, won_at
	`
	const flagCard = `UPDATE cards SET is_bingo = TRUE, bingo_at = $2 WHERE id = $1`
	const claimPrize = `UPDATE prizes SET is_claimed = TRUE, winner_card_id = $2 WHERE id = $1`
	const bumpRank = `
		INSERT INTO ranks (account_id, total_wins, weekly_wins, monthly_wins, updated_at)
		VALUES ($1, 1, 1, 1, $2)
		ON CONFLICT (account_id)
		DO UPDATE SET total_wins = ranks.total_wins + 1,
			weekly_wins = ranks.weekly_wins + 1,
			monthly_wins = ranks.monthly_wins + 1,
			updated_at = $2
	`

	var w model.Winner
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		prize, err := scanPrize(tx.QueryRow(ctx, lockPrize, prizeID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrPrizeNotFound
			}
			return err
		}

		var (
			cardMatch int64
			cardRound int
			isBingo   bool
			accountID int64
		)
		if err := tx.QueryRow(ctx, lockCard, cardID).Scan(&cardMatch, &cardRound, &isBingo, &accountID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrCardNotFound
			}
			return err
		}

		var (
			status  model.MatchStatus
			current int
		)
		if err := tx.QueryRow(ctx, matchState, prize.MatchID).Scan(&status, &current); err != nil {
			return err
		}

		if cardMatch != prize.MatchID || cardRound != prize.RoundNumber {
			return model.ErrPrizeRoundMismatch
		}
		if status != model.MatchActive {
			return fmt.Errorf("match %d is %s: %w", prize.MatchID, status, model.ErrMatchNotActive)
		}
		if prize.RoundNumber != current {
			return fmt.Errorf("prize is for round %d, match is in round %d: %w", prize.RoundNumber, current, model.ErrPrizeRoundMismatch)
		}
		if prize.IsClaimed {
			return model.ErrPrizeAlreadyClaimed
		}
		if isBingo {
			return model.ErrCardAlreadyWon
		}

		err = tx.QueryRow(ctx, insertWinner, prize.MatchID, prizeID, cardID, accountID, prize.RoundNumber, at).Scan(
			&w.ID,
			&w.MatchID,
			&w.PrizeID,
			&w.CardID,
			&w.AccountID,
			&w.RoundNumber,
			&w.WonAt,
		)
		if err != nil {
			if isUniqueViolation(err, "uq_winners_prize_round") {
				return model.ErrPrizeAlreadyClaimed
			}
			return err
		}

		if _, err := tx.Exec(ctx, flagCard, cardID, at); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, claimPrize, prizeID, cardID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, bumpRank, accountID, at)
		return err
	})
	if err != nil {
		return nil, wrapUnlessKind(err, "failed to award winner")
	}

	log.Debug().
		Int64("match_id", w.MatchID).
		Int64("prize_id", prizeID).
		Int64("card_id", cardID).
		Msg("Winner recorded")

	return &w, nil
}

// ListWinners returns a match's winners in award order.
func (r *PrizeRepository) ListWinners(ctx context.Context, matchID int64) ([]model.Winner, error) {
	const query = `
		SELECT id, match_id, prize_id, card_id, account_id, round_number, won_at
		FROM winners
		WHERE match_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	defer rows.Close()

	var winners []model.Winner
	for rows.Next() {
		var w model.Winner
		err := rows.Scan(
			&w.ID,
			&w.MatchID,
			&w.PrizeID,
			&w.CardID,
			&w.AccountID,
			&w.RoundNumber,
			&w.WonAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating winners: %w", err)
	}

	return winners, nil
}
