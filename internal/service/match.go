package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"bingo-engine/internal/config"
	"bingo-engine/internal/event"
	"bingo-engine/internal/game/bingo"
	"bingo-engine/internal/model"
	"bingo-engine/internal/pkg/lock"
)

// MatchOptions chooses a match's parameters within its package's limits.
// Zero fields take the package defaults.
type MatchOptions struct {
	CardSize       int
	CardsPerPlayer int
	PrizesPerRound int
	MaxRounds      int
}

// MatchService drives the match state machine:
// draft -> waiting -> active <-> paused -> finished.
type MatchService struct {
	packages PackageStore
	matches  MatchStore
	players  PlayerStore
	wallets  *WalletService
	locks    *lock.KeyedLock
	cfg      config.EngineConfig
	rng      bingo.RandomSource
	events   event.Publisher
}

// NewMatchService creates a new MatchService instance. locks must be the
// same per-match lock the draw service uses.
func NewMatchService(
	stores Stores,
	wallets *WalletService,
	locks *lock.KeyedLock,
	cfg config.EngineConfig,
	rng bingo.RandomSource,
	events event.Publisher,
) *MatchService {
	return &MatchService{
		packages: stores.Packages,
		matches:  stores.Matches,
		players:  stores.Players,
		wallets:  wallets,
		locks:    locks,
		cfg:      cfg,
		rng:      rng,
		events:   events,
	}
}

// ValidatePackage checks a package ruleset against the number universe.
func ValidatePackage(pkg *model.PackageConfig, universe int) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("package %q: %s: %w", pkg.Name, fmt.Sprintf(format, args...), model.ErrInvalidConfig)
	}

	switch {
	case pkg.MaxPlayers < 1:
		return invalid("max_players must be positive")
	case pkg.CardsPerPlayer < 1:
		return invalid("cards_per_player must be positive")
	case pkg.MaxCardsPerPlayer < pkg.CardsPerPlayer:
		return invalid("max_cards_per_player %d is below cards_per_player %d", pkg.MaxCardsPerPlayer, pkg.CardsPerPlayer)
	case pkg.MaxRounds < 1:
		return invalid("max_rounds must be positive")
	case len(pkg.AllowedCardSizes) == 0:
		return invalid("no allowed card sizes")
	case pkg.CostCredits.IsNegative():
		return invalid("cost_credits is negative")
	case !pkg.CostCredits.Equal(pkg.CostCredits.Round(model.AmountScale)):
		return invalid("cost_credits %s has more than %d decimal places", pkg.CostCredits, model.AmountScale)
	case pkg.EntryFeeCredits.IsNegative():
		return invalid("entry_fee_credits is negative")
	case !pkg.EntryFeeCredits.Equal(pkg.EntryFeeCredits.Round(model.AmountScale)):
		return invalid("entry_fee_credits %s has more than %d decimal places", pkg.EntryFeeCredits, model.AmountScale)
	case pkg.MaxWinnersPerPrize < 1:
		return invalid("max_winners_per_prize must be positive")
	}
	for _, size := range pkg.AllowedCardSizes {
		if size < 1 || size > universe {
			return invalid("card size %d outside 1..%d", size, universe)
		}
	}
	return nil
}

// CreatePackage validates and stores a package ruleset.
func (s *MatchService) CreatePackage(ctx context.Context, pkg *model.PackageConfig) (*model.PackageConfig, error) {
	if pkg.MaxCardsPerPlayer == 0 {
		pkg.MaxCardsPerPlayer = pkg.CardsPerPlayer
	}
	if pkg.MaxWinnersPerPrize == 0 {
		pkg.MaxWinnersPerPrize = 1
	}
	if err := ValidatePackage(pkg, s.cfg.NumberUniverse); err != nil {
		return nil, err
	}

	created, err := s.packages.CreatePackage(ctx, pkg)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("package_id", created.ID).Str("name", created.Name).Msg("Package created")
	return created, nil
}

// resolve fills zero options from the package and checks them against it.
func (s *MatchService) resolve(pkg *model.PackageConfig, opts MatchOptions) (MatchOptions, error) {
	if opts.CardSize == 0 {
		opts.CardSize = pkg.SmallestCardSize()
	}
	if opts.CardsPerPlayer == 0 {
		opts.CardsPerPlayer = pkg.CardsPerPlayer
	}
	if opts.PrizesPerRound == 0 {
		opts.PrizesPerRound = 1
	}
	if opts.MaxRounds == 0 {
		opts.MaxRounds = pkg.MaxRounds
	}

	switch {
	case !pkg.AllowsCardSize(opts.CardSize):
		return opts, fmt.Errorf("card size %d not allowed by package %d: %w", opts.CardSize, pkg.ID, model.ErrInvalidConfig)
	case opts.CardSize > s.cfg.NumberUniverse:
		return opts, fmt.Errorf("card size %d exceeds universe %d: %w", opts.CardSize, s.cfg.NumberUniverse, model.ErrInvalidConfig)
	case opts.CardsPerPlayer < 1 || opts.CardsPerPlayer > pkg.MaxCardsPerPlayer:
		return opts, fmt.Errorf("cards per player %d outside 1..%d: %w", opts.CardsPerPlayer, pkg.MaxCardsPerPlayer, model.ErrInvalidConfig)
	case opts.MaxRounds < 1 || opts.MaxRounds > pkg.MaxRounds:
		return opts, fmt.Errorf("rounds %d outside 1..%d: %w", opts.MaxRounds, pkg.MaxRounds, model.ErrInvalidConfig)
	case opts.PrizesPerRound < 1 || opts.PrizesPerRound > pkg.MaxWinnersPerPrize:
		return opts, fmt.Errorf("prizes per round %d outside 1..%d: %w", opts.PrizesPerRound, pkg.MaxWinnersPerPrize, model.ErrInvalidConfig)
	}
	return opts, nil
}

// CreateMatch creates a draft match hosted by hostAccountID with a fresh
// invite code and the first round's prizes. A package with a cost debits
// the host's wallet first; the debit is refunded if the match cannot be
// stored.
func (s *MatchService) CreateMatch(ctx context.Context, hostAccountID, packageID int64, opts MatchOptions) (*model.Match, error) {
	pkg, err := s.packages.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	opts, err = s.resolve(pkg, opts)
	if err != nil {
		return nil, err
	}

	var purchase *model.Transaction
	if pkg.CostCredits.IsPositive() {
		wallet, err := s.wallets.WalletForAccount(ctx, hostAccountID)
		if err != nil {
			return nil, err
		}
		purchase, err = s.wallets.Debit(ctx, wallet.ID, pkg.CostCredits,
			fmt.Sprintf("Package %s", pkg.Name), model.Ref(model.RefPackagePurchase, pkg.ID))
		if err != nil {
			return nil, err
		}
	}

	m := &model.Match{
		PackageID:      pkg.ID,
		HostAccountID:  hostAccountID,
		Status:         model.MatchDraft,
		CardSize:       opts.CardSize,
		CardsPerPlayer: opts.CardsPerPlayer,
		PrizesPerRound: opts.PrizesPerRound,
		MaxRounds:      opts.MaxRounds,
		CurrentRound:   1,
	}

	created, err := s.insertWithInviteCode(ctx, m, roundPrizes(1, opts.PrizesPerRound))
	if err != nil {
		if purchase != nil {
			if _, rerr := s.wallets.Refund(ctx, purchase.ID, "Match creation failed"); rerr != nil {
				log.Error().Err(rerr).Int64("tx_id", purchase.ID).Msg("Failed to refund package purchase")
			}
		}
		return nil, err
	}

	log.Info().
		Int64("match_id", created.ID).
		Int64("package_id", pkg.ID).
		Int64("host", hostAccountID).
		Str("invite_code", created.InviteCode).
		Msg("Match created")

	return created, nil
}

func (s *MatchService) insertWithInviteCode(ctx context.Context, m *model.Match, prizes []model.Prize) (*model.Match, error) {
	var err error
	attempts := max(s.cfg.InviteCodeAttempts, 1)
	for i := 0; i < attempts; i++ {
		m.InviteCode = bingo.NewInviteCode()

		var created *model.Match
		created, err = s.matches.CreateMatch(ctx, m, prizes)
		if !errors.Is(err, model.ErrDuplicateInviteCode) {
			return created, err
		}
		log.Warn().Str("invite_code", m.InviteCode).Msg("Invite code collision, generating another")
	}
	return nil, fmt.Errorf("no free invite code after %d attempts: %w", attempts, err)
}

func roundPrizes(round, count int) []model.Prize {
	prizes := make([]model.Prize, count)
	for i := range prizes {
		prizes[i] = model.Prize{
			RoundNumber: round,
			Name:        fmt.Sprintf("Prize %d", i+1),
			Position:    i + 1,
		}
	}
	return prizes
}

// Get returns a match.
func (s *MatchService) Get(ctx context.Context, matchID int64) (*model.Match, error) {
	return s.matches.GetMatch(ctx, matchID)
}

// GetByInviteCode returns the match an invite code points at.
func (s *MatchService) GetByInviteCode(ctx context.Context, code string) (*model.Match, error) {
	return s.matches.GetMatchByInviteCode(ctx, code)
}

// Players returns a match's players in join order.
func (s *MatchService) Players(ctx context.Context, matchID int64) ([]model.Player, error) {
	return s.players.ListPlayers(ctx, matchID)
}

// Open moves a draft match to waiting so players can join.
func (s *MatchService) Open(ctx context.Context, matchID int64) (*model.Match, error) {
	return s.transition(ctx, matchID, model.MatchWaiting, model.MatchDraft)
}

// Start moves a waiting match with at least one player to active.
func (s *MatchService) Start(ctx context.Context, matchID int64) (*model.Match, error) {
	var m *model.Match
	err := s.locks.WithLock(ctx, matchID, s.cfg.LockTimeout, func() error {
		var err error
		m, err = s.matches.StartMatch(ctx, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("match_id", matchID).Msg("Match started")
	return m, nil
}

// Pause suspends an active match.
func (s *MatchService) Pause(ctx context.Context, matchID int64) (*model.Match, error) {
	return s.transition(ctx, matchID, model.MatchPaused, model.MatchActive)
}

// Resume reactivates a paused match.
func (s *MatchService) Resume(ctx context.Context, matchID int64) (*model.Match, error) {
	return s.transition(ctx, matchID, model.MatchActive, model.MatchPaused)
}

// Finish ends a match early from any state but finished.
func (s *MatchService) Finish(ctx context.Context, matchID int64) (*model.Match, error) {
	return s.transition(ctx, matchID, model.MatchFinished, bingo.From(model.MatchFinished)...)
}

func (s *MatchService) transition(ctx context.Context, matchID int64, to model.MatchStatus, from ...model.MatchStatus) (*model.Match, error) {
	var m *model.Match
	err := s.locks.WithLock(ctx, matchID, s.cfg.LockTimeout, func() error {
		var err error
		m, err = s.matches.TransitionMatch(ctx, matchID, to, from...)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("match_id", matchID).Str("status", string(to)).Msg("Match status changed")
	return m, nil
}

// AdvanceRound moves an active match to its next round, dealing fresh
// cards to every player and a fresh prize pool. On the last round it
// finishes the match instead. Earlier rounds keep their draws and cards.
func (s *MatchService) AdvanceRound(ctx context.Context, matchID int64) (*model.Match, error) {
	var (
		updated  *model.Match
		previous int
	)
	err := s.locks.WithLock(ctx, matchID, s.cfg.LockTimeout, func() error {
		m, err := s.matches.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.Status != model.MatchActive {
			return fmt.Errorf("match %d is %s: %w", matchID, m.Status, model.ErrMatchNotActive)
		}
		previous = m.CurrentRound

		var setup *model.RoundSetup
		if !m.IsLastRound() {
			setup, err = s.nextRound(ctx, m)
			if err != nil {
				return err
			}
		}

		updated, err = s.matches.AdvanceRound(ctx, matchID, m.CurrentRound, setup)
		return err
	})
	if err != nil {
		return nil, err
	}

	finished := updated.Status == model.MatchFinished
	log.Info().
		Int64("match_id", matchID).
		Int("previous_round", previous).
		Int("round", updated.CurrentRound).
		Bool("finished", finished).
		Msg("Round advanced")

	s.events.Publish(ctx, event.Event{
		Kind:    event.KindRoundAdvanced,
		MatchID: matchID,
		Round:   updated.CurrentRound,
		Payload: event.RoundAdvancedPayload{PreviousRound: previous, Finished: finished},
		At:      updated.UpdatedAt,
	})

	return updated, nil
}

func (s *MatchService) nextRound(ctx context.Context, m *model.Match) (*model.RoundSetup, error) {
	players, err := s.players.ListPlayers(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	setup := &model.RoundSetup{Prizes: roundPrizes(m.CurrentRound+1, m.PrizesPerRound)}
	for _, p := range players {
		deck, err := s.deal(m.CardsPerPlayer, m.CardSize)
		if err != nil {
			return nil, err
		}
		for _, nums := range deck {
			setup.Cards = append(setup.Cards, model.Card{PlayerID: p.ID, Numbers: nums})
		}
	}
	return setup, nil
}

// deal generates count cards of size numbers each.
func (s *MatchService) deal(count, size int) ([][]int, error) {
	deck := make([][]int, count)
	for i := range deck {
		nums, err := bingo.GenerateNumbers(s.rng, s.cfg.NumberUniverse, size)
		if err != nil {
			return nil, err
		}
		deck[i] = nums
	}
	return deck, nil
}

// CanJoin reports whether the match is waiting and below its package's
// player limit.
func (s *MatchService) CanJoin(ctx context.Context, matchID int64) (bool, error) {
	err := s.joinable(ctx, matchID)
	if errors.Is(err, model.ErrMatchFull) || errors.Is(err, model.ErrMatchNotJoinable) {
		return false, nil
	}
	return err == nil, err
}

func (s *MatchService) joinable(ctx context.Context, matchID int64) error {
	m, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	pkg, err := s.packages.GetPackage(ctx, m.PackageID)
	if err != nil {
		return err
	}
	count, err := s.players.CountPlayers(ctx, matchID)
	if err != nil {
		return err
	}
	return bingo.JoinError(m, count, pkg.MaxPlayers)
}

// Join adds the account to a waiting match and deals its cards for the
// current round. The capacity check is repeated atomically by the store.
// A package with an entry fee debits the joining account first; the fee is
// refunded when the join is rejected.
func (s *MatchService) Join(ctx context.Context, matchID, accountID int64) (*model.Player, []model.Card, error) {
	m, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	pkg, err := s.packages.GetPackage(ctx, m.PackageID)
	if err != nil {
		return nil, nil, err
	}
	if m.Status != model.MatchWaiting {
		return nil, nil, model.ErrMatchNotJoinable
	}

	deck, err := s.deal(m.CardsPerPlayer, m.CardSize)
	if err != nil {
		return nil, nil, err
	}

	var entry *model.Transaction
	if pkg.EntryFeeCredits.IsPositive() {
		wallet, err := s.wallets.WalletForAccount(ctx, accountID)
		if err != nil {
			return nil, nil, err
		}
		entry, err = s.wallets.Debit(ctx, wallet.ID, pkg.EntryFeeCredits,
			fmt.Sprintf("Entry to match %d", matchID), model.Ref(model.RefMatchEntry, matchID))
		if err != nil {
			return nil, nil, err
		}
	}

	player, cards, err := s.players.JoinMatch(ctx, matchID, accountID, pkg.MaxPlayers, deck)
	if err != nil {
		if entry != nil {
			if _, rerr := s.wallets.Refund(ctx, entry.ID, "Join rejected"); rerr != nil {
				log.Error().Err(rerr).Int64("tx_id", entry.ID).Msg("Failed to refund match entry")
			}
		}
		return nil, nil, err
	}

	log.Info().
		Int64("match_id", matchID).
		Int64("account_id", accountID).
		Int64("player_id", player.ID).
		Int("cards", len(cards)).
		Msg("Player joined")

	return player, cards, nil
}

// Delete removes a match with everything it owns.
func (s *MatchService) Delete(ctx context.Context, matchID int64) error {
	err := s.locks.WithLock(ctx, matchID, s.cfg.LockTimeout, func() error {
		return s.matches.DeleteMatch(ctx, matchID)
	})
	if err != nil {
		return err
	}

	log.Info().Int64("match_id", matchID).Msg("Match deleted")
	return nil
}
