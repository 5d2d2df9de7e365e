package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bingo-engine/internal/config"
	"bingo-engine/internal/game/bingo"
	"bingo-engine/internal/model"
	"bingo-engine/internal/pkg/lock"
)

// DrawService draws numbers for active matches.
type DrawService struct {
	matches MatchStore
	draws   DrawStore
	locks   *lock.KeyedLock
	cfg     config.EngineConfig
	rng     bingo.RandomSource
}

// NewDrawService creates a new DrawService instance. locks must be the
// same per-match lock the match service uses.
func NewDrawService(matches MatchStore, draws DrawStore, locks *lock.KeyedLock, cfg config.EngineConfig, rng bingo.RandomSource) *DrawService {
	return &DrawService{
		matches: matches,
		draws:   draws,
		locks:   locks,
		cfg:     cfg,
		rng:     rng,
	}
}

// DrawNext draws a number not yet drawn in the match's current round,
// uniformly from what is left, and stores it with the next sequence.
// It fails with model.ErrRoundExhausted once every number is out.
//
// Draws for one match are serialized in process; a race with another
// process surfaces as model.ErrDuplicateDraw from the store and is retried
// against a fresh view of the round.
func (s *DrawService) DrawNext(ctx context.Context, matchID int64) (*model.Draw, error) {
	var draw *model.Draw
	err := s.locks.WithLock(ctx, matchID, s.cfg.LockTimeout, func() error {
		return retry(ctx, s.cfg.DrawRetries, model.ErrDuplicateDraw, "draw", func() error {
			d, err := s.drawOnce(ctx, matchID)
			draw = d
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("match_id", matchID).
		Int("round", draw.RoundNumber).
		Int("number", draw.Number).
		Int("sequence", draw.Sequence).
		Msg("Number drawn")

	return draw, nil
}

func (s *DrawService) drawOnce(ctx context.Context, matchID int64) (*model.Draw, error) {
	m, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MatchActive {
		return nil, fmt.Errorf("match %d is %s: %w", matchID, m.Status, model.ErrMatchNotActive)
	}

	draws, err := s.draws.ListDraws(ctx, matchID, m.CurrentRound)
	if err != nil {
		return nil, err
	}
	drawn := make([]int, len(draws))
	for i, d := range draws {
		drawn[i] = d.Number
	}

	n, ok := bingo.PickNumber(s.rng, bingo.Remaining(s.cfg.NumberUniverse, drawn))
	if !ok {
		return nil, fmt.Errorf("match %d round %d: %w", matchID, m.CurrentRound, model.ErrRoundExhausted)
	}

	return s.draws.InsertDraw(ctx, matchID, m.CurrentRound, n)
}

// Drawn returns a round's draws in sequence order.
func (s *DrawService) Drawn(ctx context.Context, matchID int64, round int) ([]model.Draw, error) {
	return s.draws.ListDraws(ctx, matchID, round)
}
