package service

import (
	"fmt"

	"bingo-engine/internal/config"
	"bingo-engine/internal/event"
	"bingo-engine/internal/game/bingo"
	"bingo-engine/internal/model"
	"bingo-engine/internal/pkg/lock"
)

// Engine bundles the services a caller drives.
type Engine struct {
	Accounts *AccountService
	Wallets  *WalletService
	Matches  *MatchService
	Draws    *DrawService
	Cards    *CardService
	Prizes   *PrizeService
	Ranks    *RankService
}

// NewEngine validates cfg and wires the services over stores. A nil rng uses
// a source seeded from cfg.RandomSeed; a nil publisher drops events.
func NewEngine(stores Stores, cfg config.EngineConfig, rng bingo.RandomSource, events event.Publisher) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}

	if rng == nil {
		rng = bingo.NewSource(cfg.RandomSeed)
	}
	if events == nil {
		events = event.Nop{}
	}

	matchLocks := lock.NewKeyedLock()
	wallets := NewWalletService(stores.Wallets, stores.Transactions, cfg.LockTimeout)

	engine := &Engine{
		Accounts: NewAccountService(stores.Wallets),
		Wallets:  wallets,
		Matches:  NewMatchService(stores, wallets, matchLocks, cfg, rng, events),
		Draws:    NewDrawService(stores.Matches, stores.Draws, matchLocks, cfg, rng),
		Cards:    NewCardService(stores.Cards, stores.Draws, cfg.StrictMarking),
		Prizes:   NewPrizeService(stores, cfg, events),
		Ranks:    NewRankService(stores.Ranks),
	}

	return engine, nil
}
