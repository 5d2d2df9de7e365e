package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"bingo-engine/internal/model"
)

// MatchRepository handles match persistence and the conditional status
// writes of the match state machine.
type MatchRepository struct {
	pool *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

const matchColumns = `id, package_id, host_account_id, status, card_size, cards_per_player,
	prizes_per_round, max_rounds, current_round, invite_code, created_at, updated_at`

func scanMatch(row scanner) (*model.Match, error) {
	var m model.Match
	err := row.Scan(
		&m.ID,
		&m.PackageID,
		&m.HostAccountID,
		&m.Status,
		&m.CardSize,
		&m.CardsPerPlayer,
		&m.PrizesPerRound,
		&m.MaxRounds,
		&m.CurrentRound,
		&m.InviteCode,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMatch inserts the match and its first round prizes in one transaction.
func (r *MatchRepository) CreateMatch(ctx context.Context, m *model.Match, prizes []model.Prize) (*model.Match, error) {
	const query = `
		INSERT INTO matches (package_id, host_account_id, status, card_size, cards_per_player,
			prizes_per_round, max_rounds, current_round, invite_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, GREATEST($8, 1), $9)
		RETURNING ` + matchColumns

	var created *model.Match
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		created, err = scanMatch(tx.QueryRow(ctx, query,
			m.PackageID,
			m.HostAccountID,
			m.Status,
			m.CardSize,
			m.CardsPerPlayer,
			m.PrizesPerRound,
			m.MaxRounds,
			m.CurrentRound,
			m.InviteCode,
		))
		if err != nil {
			if isUniqueViolation(err, "uq_matches_invite_code") {
				return model.ErrDuplicateInviteCode
			}
			if code, _ := pgCode(err); code == codeForeignKeyViolation {
				return model.ErrPackageNotFound
			}
			return err
		}
		return insertPrizes(ctx, tx, created.ID, prizes)
	})
	if err != nil {
		return nil, wrapUnlessKind(err, "failed to create match")
	}
	return created, nil
}

// GetMatch retrieves a match by id.
func (r *MatchRepository) GetMatch(ctx context.Context, id int64) (*model.Match, error) {
	const query = `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// GetMatchByInviteCode retrieves a match by its invite code.
func (r *MatchRepository) GetMatchByInviteCode(ctx context.Context, code string) (*model.Match, error) {
	const query = `SELECT ` + matchColumns + ` FROM matches WHERE invite_code = $1`

	m, err := scanMatch(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match by invite code: %w", err)
	}
	return m, nil
}

// TransitionMatch sets the status only while the match is in one of from.
func (r *MatchRepository) TransitionMatch(ctx context.Context, id int64, to model.MatchStatus, from ...model.MatchStatus) (*model.Match, error) {
	const query = `
		UPDATE matches
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3::text[])
		RETURNING ` + matchColumns

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	m, err := scanMatch(r.pool.QueryRow(ctx, query, id, to, allowed))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update match status: %w", err)
	}

	current, err := r.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("match %d is %s, cannot move to %s: %w", id, current.Status, to, model.ErrInvalidTransition)
}

// StartMatch activates a waiting match and counts the game for every player.
func (r *MatchRepository) StartMatch(ctx context.Context, id int64) (*model.Match, error) {
	const countGames = `
		INSERT INTO ranks (account_id, total_games, updated_at)
		SELECT account_id, 1, NOW() FROM players WHERE match_id = $1
		ON CONFLICT (account_id)
		DO UPDATE SET total_games = ranks.total_games + 1, updated_at = NOW()
	`
	const activate = `
		UPDATE matches
		SET status = 'active', updated_at = NOW()
		WHERE id = $1
		RETURNING ` + matchColumns

	var started *model.Match
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		status, _, _, err := lockMatch(ctx, tx, id)
		if err != nil {
			return err
		}
		if status != model.MatchWaiting {
			return fmt.Errorf("match %d is %s, cannot move to %s: %w", id, status, model.MatchActive, model.ErrInvalidTransition)
		}

		tag, err := tx.Exec(ctx, countGames, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrNoPlayers
		}

		started, err = scanMatch(tx.QueryRow(ctx, activate, id))
		return err
	})
	if err != nil {
		return nil, wrapUnlessKind(err, "failed to start match")
	}

	log.Debug().Int64("match_id", id).Msg("Match started")
	return started, nil
}

// AdvanceRound moves to the next round with fresh cards and prizes, or
// finishes the match when setup is nil.
func (r *MatchRepository) AdvanceRound(ctx context.Context, id int64, expectRound int, setup *model.RoundSetup) (*model.Match, error) {
	const finish = `
		UPDATE matches SET status = 'finished', updated_at = NOW()
		WHERE id = $1
		RETURNING ` + matchColumns
	const next = `
		UPDATE matches SET current_round = current_round + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + matchColumns

	var updated *model.Match
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		status, round, maxRounds, err := lockMatch(ctx, tx, id)
		if err != nil {
			return err
		}
		if status != model.MatchActive {
			return fmt.Errorf("match %d is %s: %w", id, status, model.ErrMatchNotActive)
		}
		if round != expectRound {
			return fmt.Errorf("match %d is in round %d, not %d: %w", id, round, expectRound, model.ErrWriteConflict)
		}

		if setup == nil {
			updated, err = scanMatch(tx.QueryRow(ctx, finish, id))
			return err
		}
		if round >= maxRounds {
			return fmt.Errorf("match %d already plays its last round: %w", id, model.ErrInvalidTransition)
		}

		updated, err = scanMatch(tx.QueryRow(ctx, next, id))
		if err != nil {
			return err
		}
		for _, c := range setup.Cards {
			if _, err := insertCard(ctx, tx, id, c.PlayerID, updated.CurrentRound, c.Numbers); err != nil {
				return err
			}
		}
		prizes := make([]model.Prize, len(setup.Prizes))
		for i, p := range setup.Prizes {
			p.RoundNumber = updated.CurrentRound
			prizes[i] = p
		}
		return insertPrizes(ctx, tx, id, prizes)
	})
	if err != nil {
		return nil, wrapUnlessKind(err, "failed to advance round")
	}
	return updated, nil
}

// DeleteMatch removes a match; players, cards, draws, prizes and winners
// go with it.
func (r *MatchRepository) DeleteMatch(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

// lockMatch takes the match row lock for the rest of the transaction.
func lockMatch(ctx context.Context, tx pgx.Tx, id int64) (model.MatchStatus, int, int, error) {
	const query = `SELECT status, current_round, max_rounds FROM matches WHERE id = $1 FOR UPDATE`

	var (
		status    model.MatchStatus
		round     int
		maxRounds int
	)
	if err := tx.QueryRow(ctx, query, id).Scan(&status, &round, &maxRounds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, 0, model.ErrMatchNotFound
		}
		return "", 0, 0, err
	}
	return status, round, maxRounds, nil
}

func insertPrizes(ctx context.Context, tx pgx.Tx, matchID int64, prizes []model.Prize) error {
	const query = `
		INSERT INTO prizes (match_id, round_number, name, position)
		VALUES ($1, $2, $3, $4)
	`
	for _, p := range prizes {
		if _, err := tx.Exec(ctx, query, matchID, p.RoundNumber, p.Name, p.Position); err != nil {
			return fmt.Errorf("failed to create prize %d: %w", p.Position, err)
		}
	}
	return nil
}
