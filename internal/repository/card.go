package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bingo-engine/internal/model"
)

// CardRepository handles cards and their marks.
type CardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository creates a new CardRepository instance.
func NewCardRepository(pool *pgxpool.Pool) *CardRepository {
	return &CardRepository{pool: pool}
}

const cardColumns = `id, match_id, player_id, round_number, numbers, marked, is_bingo, bingo_at`

func scanCard(row scanner) (*model.Card, error) {
	var c model.Card
	err := row.Scan(
		&c.ID,
		&c.MatchID,
		&c.PlayerID,
		&c.RoundNumber,
		&c.Numbers,
		&c.Marked,
		&c.IsBingo,
		&c.BingoAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Marked == nil {
		c.Marked = []int{}
	}
	return &c, nil
}

func insertCard(ctx context.Context, tx pgx.Tx, matchID, playerID int64, round int, numbers []int) (*model.Card, error) {
	const query = `
		INSERT INTO cards (match_id, player_id, round_number, numbers, marked)
		VALUES ($1, $2, $3, $4, '[]'::jsonb)
		RETURNING ` + cardColumns

	c, err := scanCard(tx.QueryRow(ctx, query, matchID, playerID, round, numbers))
	if err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}
	return c, nil
}

// GetCard retrieves a card by id.
func (r *CardRepository) GetCard(ctx context.Context, id int64) (*model.Card, error) {
	const query = `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	c, err := scanCard(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

// ListCards returns every card of a match round ordered by id.
func (r *CardRepository) ListCards(ctx context.Context, matchID int64, round int) ([]model.Card, error) {
	const query = `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE match_id = $1 AND round_number = $2
		ORDER BY id
	`
	return r.list(ctx, query, matchID, round)
}

// ListPlayerCards returns a player's cards for a round ordered by id.
func (r *CardRepository) ListPlayerCards(ctx context.Context, playerID int64, round int) ([]model.Card, error) {
	const query = `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE player_id = $1 AND round_number = $2
		ORDER BY id
	`
	return r.list(ctx, query, playerID, round)
}

func (r *CardRepository) list(ctx context.Context, query string, args ...any) ([]model.Card, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []model.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// AddMark appends n to the card's marks under the row lock. It reports
// whether n is on the card; re-marking changes nothing.
func (r *CardRepository) AddMark(ctx context.Context, cardID int64, n int) (bool, error) {
	const selectQuery = `SELECT numbers, marked FROM cards WHERE id = $1 FOR UPDATE`
	const updateQuery = `UPDATE cards SET marked = $2 WHERE id = $1`

	var onCard bool
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var numbers, marked []int
		if err := tx.QueryRow(ctx, selectQuery, cardID).Scan(&numbers, &marked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrCardNotFound
			}
			return err
		}

		onCard = slices.Contains(numbers, n)
		if !onCard || slices.Contains(marked, n) {
			return nil
		}

		_, err := tx.Exec(ctx, updateQuery, cardID, append(marked, n))
		return err
	})
	if err != nil {
		return false, wrapUnlessKind(err, "failed to mark card")
	}
	return onCard, nil
}
