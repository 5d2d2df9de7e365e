package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"bingo-engine/internal/game/bingo"
	"bingo-engine/internal/model"
)

// CardService marks cards and checks them for bingo.
type CardService struct {
	cards  CardStore
	draws  DrawStore
	strict bool
}

// NewCardService creates a new CardService instance. With strict set a
// number must have been drawn in the card's round before it can be marked.
func NewCardService(cards CardStore, draws DrawStore, strict bool) *CardService {
	return &CardService{cards: cards, draws: draws, strict: strict}
}

// MarkNumber marks n on the card. It returns false, without an error and
// without changing the card, when n is not on the card (or, in strict
// mode, not drawn yet). Marking a number twice is a no-op.
func (s *CardService) MarkNumber(ctx context.Context, cardID int64, n int) (bool, error) {
	if s.strict {
		card, err := s.cards.GetCard(ctx, cardID)
		if err != nil {
			return false, err
		}
		drawn, err := s.drawnFor(ctx, card)
		if err != nil {
			return false, err
		}
		if !drawn.Has(n) {
			log.Debug().Int64("card_id", cardID).Int("number", n).Msg("Mark rejected, number not drawn")
			return false, nil
		}
	}

	return s.cards.AddMark(ctx, cardID, n)
}

// CheckBingo reports whether every number on the card has been drawn in
// the card's round. It never changes the card; winning is recorded only
// through a prize award.
func (s *CardService) CheckBingo(ctx context.Context, cardID int64) (bool, error) {
	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return false, err
	}
	drawn, err := s.drawnFor(ctx, card)
	if err != nil {
		return false, err
	}
	return bingo.CheckBingo(card, drawn), nil
}

func (s *CardService) drawnFor(ctx context.Context, card *model.Card) (bingo.NumberSet, error) {
	draws, err := s.draws.ListDraws(ctx, card.MatchID, card.RoundNumber)
	if err != nil {
		return nil, err
	}
	return bingo.DrawnSet(draws), nil
}

// Get returns a card.
func (s *CardService) Get(ctx context.Context, cardID int64) (*model.Card, error) {
	return s.cards.GetCard(ctx, cardID)
}

// Cards returns every card of a match round ordered by id.
func (s *CardService) Cards(ctx context.Context, matchID int64, round int) ([]model.Card, error) {
	return s.cards.ListCards(ctx, matchID, round)
}

// PlayerCards returns a player's cards for a round.
func (s *CardService) PlayerCards(ctx context.Context, playerID int64, round int) ([]model.Card, error) {
	return s.cards.ListPlayerCards(ctx, playerID, round)
}
