// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bingo-engine/internal/config"
	"bingo-engine/internal/event"
	"bingo-engine/internal/game/bingo"
	"bingo-engine/internal/model"
	"bingo-engine/internal/pkg/db"
	"bingo-engine/internal/service"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a migrated PostgreSQL container and returns a
// connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func newStores(pool *pgxpool.Pool) service.Stores {
	return service.Stores{
		Packages:     NewPackageRepository(pool),
		Matches:      NewMatchRepository(pool),
		Players:      NewPlayerRepository(pool),
		Draws:        NewDrawRepository(pool),
		Cards:        NewCardRepository(pool),
		Prizes:       NewPrizeRepository(pool),
		Ranks:        NewRankRepository(pool),
		Wallets:      NewWalletRepository(pool),
		Transactions: NewTransactionRepository(pool),
	}
}

func newEngine(t *testing.T, pool *pgxpool.Pool, cfg config.EngineConfig, seed int64) *service.Engine {
	t.Helper()
	e, err := service.NewEngine(newStores(pool), cfg, bingo.NewSource(seed), event.Nop{})
	require.NoError(t, err)
	return e
}

func fullCardPackage(size, players, prizes int) *model.PackageConfig {
	return &model.PackageConfig{
		Name:               "full",
		MaxPlayers:         players,
		CardsPerPlayer:     1,
		MaxCardsPerPlayer:  1,
		MaxRounds:          2,
		AllowedCardSizes:   []int{size},
		CostCredits:        decimal.Zero,
		MaxWinnersPerPrize: prizes,
	}
}

// ============================================================================
// Migrations
// ============================================================================

func TestMigrate_IsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, db.Migrate(context.Background(), pool))
}

// ============================================================================
// WalletRepository Tests
// ============================================================================

func TestWalletRepository_CreateAccount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewWalletRepository(pool)
	ctx := context.Background()

	w, created, err := repo.CreateAccount(ctx, 12345)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(12345), w.AccountID)
	assert.True(t, w.Balance.IsZero())
	assert.False(t, w.CreatedAt.IsZero())

	again, created, err := repo.CreateAccount(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, w.ID, again.ID)

	rank, err := NewRankRepository(pool).GetRank(ctx, 12345)
	require.NoError(t, err)
	assert.Zero(t, rank.TotalWins)
}

func TestWalletRepository_ApplyEntry(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewWalletRepository(pool)
	txRepo := NewTransactionRepository(pool)
	ctx := context.Background()

	w, _, err := repo.CreateAccount(ctx, 1)
	require.NoError(t, err)

	tx, err := repo.ApplyEntry(ctx, model.LedgerEntry{
		WalletID:    w.ID,
		Type:        model.TxCredit,
		Amount:      decimal.RequireFromString("50.25"),
		Description: "top-up",
		Ref:         model.Ref(model.RefGiftCardRedemption, 9),
	})
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(decimal.RequireFromString("50.25")))
	assert.Equal(t, model.TxCompleted, tx.Status)

	_, err = repo.ApplyEntry(ctx, model.LedgerEntry{
		WalletID: w.ID,
		Type:     model.TxDebit,
		Amount:   decimal.RequireFromString("70"),
	})
	assert.ErrorIs(t, err, model.ErrInsufficientBalance)

	_, err = repo.ApplyEntry(ctx, model.LedgerEntry{
		WalletID: 999,
		Type:     model.TxCredit,
		Amount:   decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, model.ErrWalletNotFound)

	got, err := repo.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("50.25")))

	txs, err := txRepo.ListTransactions(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].Ref)
	assert.Equal(t, model.RefGiftCardRedemption, txs[0].Ref.Kind)
	assert.Equal(t, int64(9), txs[0].Ref.ID)
}

func TestWalletRepository_RefundTransaction(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewWalletRepository(pool)
	ctx := context.Background()

	w, _, err := repo.CreateAccount(ctx, 1)
	require.NoError(t, err)
	_, err = repo.ApplyEntry(ctx, model.LedgerEntry{WalletID: w.ID, Type: model.TxCredit, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	debit, err := repo.ApplyEntry(ctx, model.LedgerEntry{WalletID: w.ID, Type: model.TxDebit, Amount: decimal.NewFromInt(30)})
	require.NoError(t, err)

	refund, err := repo.RefundTransaction(ctx, debit.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, model.TxRefund, refund.Type)
	assert.True(t, refund.BalanceAfter.Equal(decimal.NewFromInt(100)))

	_, err = repo.RefundTransaction(ctx, debit.ID, "again")
	assert.ErrorIs(t, err, model.ErrNotRefundable)

	orig, err := NewTransactionRepository(pool).GetTransaction(ctx, debit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxRefunded, orig.Status)
}

func TestWalletService_ConcurrentDebitsAcrossEngines(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cfg := config.DefaultEngine()
	// Two engines share nothing in process, so only the database guards
	// the balance.
	a, b := newEngine(t, pool, cfg, 1), newEngine(t, pool, cfg, 1)

	w, _, err := a.Accounts.Open(ctx, 1)
	require.NoError(t, err)
	_, err = a.Wallets.Credit(ctx, w.ID, decimal.NewFromInt(100), "top-up", nil)
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 30; i++ {
		e := a
		if i%2 == 1 {
			e = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Wallets.Debit(ctx, w.ID, decimal.NewFromInt(7), "entry", nil)
			if err != nil {
				assert.ErrorIs(t, err, model.ErrInsufficientBalance)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 14, ok)
	balance, err := a.Wallets.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(2)), "balance %s", balance)
	assert.NoError(t, a.Wallets.Reconcile(ctx, w.ID))
}

// ============================================================================
// Match, draw and prize repositories
// ============================================================================

func TestMatchRepository_InviteCodeAndPackage(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	withFee := fullCardPackage(5, 2, 1)
	withFee.EntryFeeCredits = decimal.RequireFromString("2.50")
	pkg, err := NewPackageRepository(pool).CreatePackage(ctx, withFee)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, pkg.AllowedCardSizes)
	assert.True(t, pkg.EntryFeeCredits.Equal(decimal.RequireFromString("2.5")), "entry fee %s", pkg.EntryFeeCredits)

	repo := NewMatchRepository(pool)
	m := &model.Match{
		PackageID:      pkg.ID,
		HostAccountID:  1,
		Status:         model.MatchDraft,
		CardSize:       5,
		CardsPerPlayer: 1,
		PrizesPerRound: 1,
		MaxRounds:      1,
		CurrentRound:   1,
		InviteCode:     "ABCDEFGH",
	}
	created, err := repo.CreateMatch(ctx, m, []model.Prize{{RoundNumber: 1, Name: "Prize 1", Position: 1}})
	require.NoError(t, err)

	_, err = repo.CreateMatch(ctx, m, nil)
	assert.ErrorIs(t, err, model.ErrDuplicateInviteCode)

	m.InviteCode = "OTHERONE"
	m.PackageID = 999
	_, err = repo.CreateMatch(ctx, m, nil)
	assert.ErrorIs(t, err, model.ErrPackageNotFound)

	byCode, err := repo.GetMatchByInviteCode(ctx, "ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	_, err = repo.TransitionMatch(ctx, created.ID, model.MatchActive, model.MatchWaiting)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = repo.StartMatch(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = repo.TransitionMatch(ctx, created.ID, model.MatchWaiting, model.MatchDraft)
	require.NoError(t, err)

	_, err = repo.StartMatch(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrNoPlayers)
}

func TestPlayerRepository_JoinMatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	e := newEngine(t, pool, config.DefaultEngine(), 1)
	pkg, err := e.Matches.CreatePackage(ctx, fullCardPackage(24, 2, 1))
	require.NoError(t, err)
	m, err := e.Matches.CreateMatch(ctx, 1, pkg.ID, service.MatchOptions{})
	require.NoError(t, err)
	_, err = e.Matches.Open(ctx, m.ID)
	require.NoError(t, err)

	repo := NewPlayerRepository(pool)
	p, cards, err := repo.JoinMatch(ctx, m.ID, 10, 2, [][]int{{1, 2, 3}})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, p.ID, cards[0].PlayerID)
	assert.Equal(t, []int{1, 2, 3}, cards[0].Numbers)
	assert.Empty(t, cards[0].Marked)

	_, _, err = repo.JoinMatch(ctx, m.ID, 10, 2, [][]int{{4}})
	assert.ErrorIs(t, err, model.ErrAlreadyJoined)

	_, _, err = repo.JoinMatch(ctx, m.ID, 11, 2, [][]int{{4}})
	require.NoError(t, err)

	_, _, err = repo.JoinMatch(ctx, m.ID, 12, 2, [][]int{{5}})
	assert.ErrorIs(t, err, model.ErrMatchFull)

	count, err := repo.CountPlayers(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDrawRepository_InsertDraw(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	e := newEngine(t, pool, config.DefaultEngine(), 1)
	pkg, err := e.Matches.CreatePackage(ctx, fullCardPackage(24, 2, 1))
	require.NoError(t, err)
	m, err := e.Matches.CreateMatch(ctx, 1, pkg.ID, service.MatchOptions{})
	require.NoError(t, err)

	repo := NewDrawRepository(pool)
	_, err = repo.InsertDraw(ctx, m.ID, 1, 7)
	assert.ErrorIs(t, err, model.ErrMatchNotActive)
	_, err = repo.InsertDraw(ctx, 999, 1, 7)
	assert.ErrorIs(t, err, model.ErrMatchNotFound)

	_, err = e.Matches.Open(ctx, m.ID)
	require.NoError(t, err)
	_, _, err = e.Matches.Join(ctx, m.ID, 10)
	require.NoError(t, err)
	_, err = e.Matches.Start(ctx, m.ID)
	require.NoError(t, err)

	d, err := repo.InsertDraw(ctx, m.ID, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Sequence)

	_, err = repo.InsertDraw(ctx, m.ID, 1, 7)
	assert.ErrorIs(t, err, model.ErrDuplicateDraw)

	d, err = repo.InsertDraw(ctx, m.ID, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Sequence)

	draws, err := repo.ListDraws(ctx, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, 7, draws[0].Number)
	assert.Equal(t, 8, draws[1].Number)
}

func TestDrawService_ConcurrentAcrossEngines(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cfg := config.DefaultEngine()
	cfg.NumberUniverse = 15
	cfg.DrawRetries = 20
	a := newEngine(t, pool, cfg, 1)
	b := newEngine(t, pool, cfg, 2)

	pkg, err := a.Matches.CreatePackage(ctx, fullCardPackage(5, 2, 1))
	require.NoError(t, err)
	m, err := a.Matches.CreateMatch(ctx, 1, pkg.ID, service.MatchOptions{})
	require.NoError(t, err)
	_, err = a.Matches.Open(ctx, m.ID)
	require.NoError(t, err)
	_, _, err = a.Matches.Join(ctx, m.ID, 10)
	require.NoError(t, err)
	_, err = a.Matches.Start(ctx, m.ID)
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		drawn int
	)
	for i := 0; i < 30; i++ {
		e := a
		if i%2 == 1 {
			e = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Draws.DrawNext(ctx, m.ID)
			if err != nil {
				assert.ErrorIs(t, err, model.ErrResourceExhausted)
				return
			}
			mu.Lock()
			drawn++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 15, drawn)

	draws, err := a.Draws.Drawn(ctx, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, draws, 15)
	seen := make(map[int]bool)
	for i, d := range draws {
		assert.Equal(t, i+1, d.Sequence)
		assert.False(t, seen[d.Number])
		seen[d.Number] = true
	}
}

func TestPrizeRepository_AwardWinner(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cfg := config.DefaultEngine()
	cfg.NumberUniverse = 5
	e := newEngine(t, pool, cfg, 1)

	for _, acc := range []int64{10, 11, 12} {
		_, _, err := e.Accounts.Open(ctx, acc)
		require.NoError(t, err)
	}

	pkg, err := e.Matches.CreatePackage(ctx, fullCardPackage(5, 3, 2))
	require.NoError(t, err)
	m, err := e.Matches.CreateMatch(ctx, 1, pkg.ID, service.MatchOptions{PrizesPerRound: 2})
	require.NoError(t, err)
	_, err = e.Matches.Open(ctx, m.ID)
	require.NoError(t, err)
	for _, acc := range []int64{10, 11, 12} {
		_, _, err := e.Matches.Join(ctx, m.ID, acc)
		require.NoError(t, err)
	}
	_, err = e.Matches.Start(ctx, m.ID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := e.Draws.DrawNext(ctx, m.ID)
		require.NoError(t, err)
	}

	winning, err := e.Prizes.CheckWinningCards(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, winning, 3)

	prizes, err := e.Prizes.Prizes(ctx, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, prizes, 2)

	repo := NewPrizeRepository(pool)
	w, err := repo.AwardWinner(ctx, prizes[0].ID, winning[0].ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(10), w.AccountID)

	_, err = repo.AwardWinner(ctx, prizes[0].ID, winning[1].ID, time.Now().UTC())
	assert.ErrorIs(t, err, model.ErrPrizeAlreadyClaimed)
	_, err = repo.AwardWinner(ctx, prizes[1].ID, winning[0].ID, time.Now().UTC())
	assert.ErrorIs(t, err, model.ErrCardAlreadyWon)

	winners, err := e.Prizes.Sweep(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, winning[1].ID, winners[0].CardID)

	top, err := e.Ranks.Top(ctx, model.PeriodTotal, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(10), top[0].AccountID)
	assert.Equal(t, int64(11), top[1].AccountID)
	assert.Equal(t, 1, top[0].TotalWins)
	assert.Equal(t, 1, top[0].TotalGames)

	n, err := e.Ranks.Reset(ctx, model.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	m2, err := e.Matches.AdvanceRound(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, m2.CurrentRound)

	_, err = repo.AwardWinner(ctx, prizes[1].ID, winning[2].ID, time.Now().UTC())
	assert.ErrorIs(t, err, model.ErrPrizeRoundMismatch)

	roundTwo, err := e.Cards.Cards(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Len(t, roundTwo, 3)

	require.NoError(t, e.Matches.Delete(ctx, m.ID))
	_, err = e.Matches.Get(ctx, m.ID)
	assert.ErrorIs(t, err, model.ErrMatchNotFound)
}

func TestCardRepository_AddMark(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	e := newEngine(t, pool, config.DefaultEngine(), 1)
	pkg, err := e.Matches.CreatePackage(ctx, fullCardPackage(24, 2, 1))
	require.NoError(t, err)
	m, err := e.Matches.CreateMatch(ctx, 1, pkg.ID, service.MatchOptions{})
	require.NoError(t, err)
	_, err = e.Matches.Open(ctx, m.ID)
	require.NoError(t, err)
	_, cards, err := e.Matches.Join(ctx, m.ID, 10)
	require.NoError(t, err)

	repo := NewCardRepository(pool)
	n := cards[0].Numbers[3]
	ok, err := repo.AddMark(ctx, cards[0].ID, n)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AddMark(ctx, cards[0].ID, n)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AddMark(ctx, cards[0].ID, 1000)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetCard(ctx, cards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []int{n}, got.Marked)

	_, err = repo.AddMark(ctx, 999, 1)
	assert.ErrorIs(t, err, model.ErrCardNotFound)
}
