package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"bingo-engine/internal/config"
	"bingo-engine/internal/event"
	"bingo-engine/internal/game/bingo"
	"bingo-engine/internal/model"
)

// PrizeService detects winning cards and records winners.
//
// When several cards complete on the same draw they are awarded in
// increasing card id order, each taking the lowest unclaimed prize
// position.
type PrizeService struct {
	matches MatchStore
	cards   CardStore
	draws   DrawStore
	prizes  PrizeStore
	cfg     config.EngineConfig
	events  event.Publisher
	now     func() time.Time
}

// NewPrizeService creates a new PrizeService instance.
func NewPrizeService(stores Stores, cfg config.EngineConfig, events event.Publisher) *PrizeService {
	return &PrizeService{
		matches: stores.Matches,
		cards:   stores.Cards,
		draws:   stores.Draws,
		prizes:  stores.Prizes,
		cfg:     cfg,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CheckWinningCards returns the current round's cards that have not won yet
// and whose numbers are all drawn, ordered by card id.
func (s *PrizeService) CheckWinningCards(ctx context.Context, matchID int64) ([]model.Card, error) {
	m, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	cards, err := s.cards.ListCards(ctx, matchID, m.CurrentRound)
	if err != nil {
		return nil, err
	}
	draws, err := s.draws.ListDraws(ctx, matchID, m.CurrentRound)
	if err != nil {
		return nil, err
	}

	return bingo.WinningCards(cards, bingo.DrawnSet(draws)), nil
}

// AwardWinner records card as the winner of prize. The winner row, the
// card's bingo flag, the prize claim and the rank counters are written as
// one unit. A prize can be won once per round; a second award fails with
// model.ErrPrizeAlreadyClaimed.
func (s *PrizeService) AwardWinner(ctx context.Context, prizeID, cardID int64) (*model.Winner, error) {
	prize, err := s.prizes.GetPrize(ctx, prizeID)
	if err != nil {
		return nil, err
	}
	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	if card.MatchID != prize.MatchID {
		return nil, fmt.Errorf("card %d is not in match %d: %w", cardID, prize.MatchID, model.ErrPrizeRoundMismatch)
	}
	if card.RoundNumber != prize.RoundNumber {
		return nil, fmt.Errorf("card round %d, prize round %d: %w", card.RoundNumber, prize.RoundNumber, model.ErrPrizeRoundMismatch)
	}
	if prize.IsClaimed {
		return nil, model.ErrPrizeAlreadyClaimed
	}
	if card.IsBingo {
		return nil, model.ErrCardAlreadyWon
	}

	draws, err := s.draws.ListDraws(ctx, card.MatchID, card.RoundNumber)
	if err != nil {
		return nil, err
	}
	if !bingo.CheckBingo(card, bingo.DrawnSet(draws)) {
		return nil, fmt.Errorf("card %d: %w", cardID, model.ErrCardNotWinning)
	}

	var w *model.Winner
	err = retry(ctx, s.cfg.AwardRetries, model.ErrWriteConflict, "award", func() error {
		var err error
		w, err = s.prizes.AwardWinner(ctx, prizeID, cardID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("match_id", w.MatchID).
		Int("round", w.RoundNumber).
		Int64("prize_id", prizeID).
		Int64("card_id", cardID).
		Int64("account_id", w.AccountID).
		Msg("Winner recorded")

	s.events.Publish(ctx, event.Event{
		Kind:    event.KindWinnerRecorded,
		MatchID: w.MatchID,
		Round:   w.RoundNumber,
		Payload: event.WinnerRecordedPayload{
			WinnerID:  w.ID,
			PrizeID:   prizeID,
			PrizeName: prize.Name,
			CardID:    cardID,
			AccountID: w.AccountID,
		},
		At: w.WonAt,
	})

	return w, nil
}

// AwardNextPrize awards the card the lowest unclaimed prize of the match's
// current round. It fails with model.ErrNoPrizeAvailable when every prize
// is taken.
func (s *PrizeService) AwardNextPrize(ctx context.Context, matchID, cardID int64) (*model.Winner, error) {
	m, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	prizes, err := s.prizes.ListPrizes(ctx, matchID, m.CurrentRound)
	if err != nil {
		return nil, err
	}

	for _, p := range prizes {
		if p.IsClaimed {
			continue
		}
		w, err := s.AwardWinner(ctx, p.ID, cardID)
		if errors.Is(err, model.ErrPrizeAlreadyClaimed) {
			continue
		}
		return w, err
	}
	return nil, fmt.Errorf("match %d round %d: %w", matchID, m.CurrentRound, model.ErrNoPrizeAvailable)
}

// Sweep awards every winning card of the current round, in card id order,
// until the prizes run out. It returns the winners it recorded.
func (s *PrizeService) Sweep(ctx context.Context, matchID int64) ([]model.Winner, error) {
	cards, err := s.CheckWinningCards(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var winners []model.Winner
	for _, c := range cards {
		w, err := s.AwardNextPrize(ctx, matchID, c.ID)
		switch {
		case errors.Is(err, model.ErrNoPrizeAvailable):
			return winners, nil
		case errors.Is(err, model.ErrCardAlreadyWon):
			continue
		case err != nil:
			return winners, err
		}
		winners = append(winners, *w)
	}
	return winners, nil
}

// Prizes returns a round's prizes in position order.
func (s *PrizeService) Prizes(ctx context.Context, matchID int64, round int) ([]model.Prize, error) {
	return s.prizes.ListPrizes(ctx, matchID, round)
}

// Winners returns a match's winners in award order.
func (s *PrizeService) Winners(ctx context.Context, matchID int64) ([]model.Winner, error) {
	return s.prizes.ListWinners(ctx, matchID)
}
