package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"bingo-engine/internal/config"
	"bingo-engine/internal/event"
	"bingo-engine/internal/game/bingo"
	"bingo-engine/internal/model"
	"bingo-engine/internal/repository/memory"
)

var _ Backend = (*memory.Store)(nil)

type testEngine struct {
	*Engine
	store  *memory.Store
	events *event.Buffer
	cfg    config.EngineConfig
}

func testConfig() config.EngineConfig {
	cfg := config.DefaultEngine()
	cfg.LockTimeout = 10 * time.Second
	return cfg
}

func newTestEngine(t *testing.T, cfg config.EngineConfig) *testEngine {
	t.Helper()
	return newTestEngineWith(t, cfg, nil)
}

// newTestEngineWith lets a test swap individual stores before wiring.
func newTestEngineWith(t *testing.T, cfg config.EngineConfig, override func(*Stores)) *testEngine {
	t.Helper()

	store := memory.New()
	stores := StoresFrom(store)
	if override != nil {
		override(&stores)
	}
	buf := event.NewBuffer()
	engine, err := NewEngine(stores, cfg, bingo.NewSource(1), buf)
	require.NoError(t, err)

	return &testEngine{
		Engine: engine,
		store:  store,
		events: buf,
		cfg:    cfg,
	}
}

func credits(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// openWallet opens an account and returns its wallet id.
func (e *testEngine) openWallet(t *testing.T, accountID int64) int64 {
	t.Helper()
	w, _, err := e.Accounts.Open(context.Background(), accountID)
	require.NoError(t, err)
	return w.ID
}

func (e *testEngine) createPackage(t *testing.T, pkg model.PackageConfig) *model.PackageConfig {
	t.Helper()
	created, err := e.Matches.CreatePackage(context.Background(), &pkg)
	require.NoError(t, err)
	return created
}

// startedMatch creates, opens, fills and starts a match with one player
// per account.
func (e *testEngine) startedMatch(t *testing.T, pkg model.PackageConfig, opts MatchOptions, accounts ...int64) *model.Match {
	t.Helper()
	ctx := context.Background()

	p := e.createPackage(t, pkg)
	m, err := e.Matches.CreateMatch(ctx, 1, p.ID, opts)
	require.NoError(t, err)
	_, err = e.Matches.Open(ctx, m.ID)
	require.NoError(t, err)

	for _, acc := range accounts {
		e.openWallet(t, acc)
		_, _, err := e.Matches.Join(ctx, m.ID, acc)
		require.NoError(t, err)
	}

	m, err = e.Matches.Start(ctx, m.ID)
	require.NoError(t, err)
	return m
}

func basicPackage() model.PackageConfig {
	return model.PackageConfig{
		Name:              "classic",
		MaxPlayers:        10,
		CardsPerPlayer:    1,
		MaxCardsPerPlayer: 3,
		MaxRounds:         1,
		AllowedCardSizes:  []int{24},
		CostCredits:       decimal.Zero,
	}
}

// fullCardPackage uses cards that hold the whole universe, so every card
// completes on the same draw.
func fullCardPackage(universe, players, prizes, rounds int) model.PackageConfig {
	return model.PackageConfig{
		Name:               "full",
		MaxPlayers:         players,
		CardsPerPlayer:     1,
		MaxCardsPerPlayer:  1,
		MaxRounds:          rounds,
		AllowedCardSizes:   []int{universe},
		MaxWinnersPerPrize: prizes,
	}
}

func smallUniverse(n int) config.EngineConfig {
	cfg := testConfig()
	cfg.NumberUniverse = n
	return cfg
}

// drawAll draws until the round is exhausted.
func (e *testEngine) drawAll(t *testing.T, matchID int64) []model.Draw {
	t.Helper()
	var draws []model.Draw
	for {
		d, err := e.Draws.DrawNext(context.Background(), matchID)
		if err != nil {
			require.ErrorIs(t, err, model.ErrRoundExhausted)
			return draws
		}
		draws = append(draws, *d)
	}
}
