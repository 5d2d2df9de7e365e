// Package service provides the engine operations: match lifecycle, draws,
// marking, prize awards, ranks and the wallet ledger.
package service

import (
	"context"
	"time"

	"bingo-engine/internal/model"
)

// PackageStore persists immutable package rulesets.
type PackageStore interface {
	CreatePackage(ctx context.Context, pkg *model.PackageConfig) (*model.PackageConfig, error)
	GetPackage(ctx context.Context, id int64) (*model.PackageConfig, error)
}

// MatchStore persists matches. Every status change is a conditional write:
// the store refuses it unless the match is still in one of the from states.
type MatchStore interface {
	// CreateMatch inserts a match with its first round prizes. An invite
	// code collision returns model.ErrDuplicateInviteCode.
	CreateMatch(ctx context.Context, m *model.Match, prizes []model.Prize) (*model.Match, error)
	GetMatch(ctx context.Context, id int64) (*model.Match, error)
	GetMatchByInviteCode(ctx context.Context, code string) (*model.Match, error)
	TransitionMatch(ctx context.Context, id int64, to model.MatchStatus, from ...model.MatchStatus) (*model.Match, error)
	// StartMatch moves a waiting match with at least one player to active
	// and counts the game for every participant.
	StartMatch(ctx context.Context, id int64) (*model.Match, error)
	// AdvanceRound moves an active match from round expectRound to the
	// next one and stores the new round's cards and prizes. A nil setup
	// finishes the match instead.
	AdvanceRound(ctx context.Context, id int64, expectRound int, setup *model.RoundSetup) (*model.Match, error)
	DeleteMatch(ctx context.Context, id int64) error
}

// PlayerStore persists match participants.
type PlayerStore interface {
	// JoinMatch adds the account to a waiting match below maxPlayers and
	// stores one card per entry of cards for the current round.
	JoinMatch(ctx context.Context, matchID, accountID int64, maxPlayers int, cards [][]int) (*model.Player, []model.Card, error)
	ListPlayers(ctx context.Context, matchID int64) ([]model.Player, error)
	CountPlayers(ctx context.Context, matchID int64) (int, error)
}

// DrawStore persists drawn numbers.
type DrawStore interface {
	// InsertDraw appends number to the round of an active match with the
	// next sequence. A number already drawn returns model.ErrDuplicateDraw.
	InsertDraw(ctx context.Context, matchID int64, round, number int) (*model.Draw, error)
	ListDraws(ctx context.Context, matchID int64, round int) ([]model.Draw, error)
}

// CardStore persists cards and their marks.
type CardStore interface {
	GetCard(ctx context.Context, id int64) (*model.Card, error)
	ListCards(ctx context.Context, matchID int64, round int) ([]model.Card, error)
	ListPlayerCards(ctx context.Context, playerID int64, round int) ([]model.Card, error)
	// AddMark marks n on the card and reports whether n is on it.
	AddMark(ctx context.Context, cardID int64, n int) (bool, error)
}

// PrizeStore persists prizes and winner records.
type PrizeStore interface {
	ListPrizes(ctx context.Context, matchID int64, round int) ([]model.Prize, error)
	GetPrize(ctx context.Context, id int64) (*model.Prize, error)
	// AwardWinner records the winner, flags the card, claims the prize and
	// bumps the account's rank as one atomic unit.
	AwardWinner(ctx context.Context, prizeID, cardID int64, at time.Time) (*model.Winner, error)
	ListWinners(ctx context.Context, matchID int64) ([]model.Winner, error)
}

// RankStore persists per-account win counters.
type RankStore interface {
	GetRank(ctx context.Context, accountID int64) (*model.Rank, error)
	TopRanks(ctx context.Context, period model.RankPeriod, limit int) ([]model.Rank, error)
	ResetWins(ctx context.Context, period model.RankPeriod) (int64, error)
}

// WalletStore persists wallets and applies ledger entries.
type WalletStore interface {
	// CreateAccount creates the wallet and rank of an account. It returns
	// the existing wallet and false when the account already has one.
	CreateAccount(ctx context.Context, accountID int64) (*model.Wallet, bool, error)
	GetWallet(ctx context.Context, id int64) (*model.Wallet, error)
	GetWalletByAccount(ctx context.Context, accountID int64) (*model.Wallet, error)
	// ApplyEntry changes the balance and appends the transaction atomically.
	// A debit larger than the balance returns model.ErrInsufficientBalance.
	ApplyEntry(ctx context.Context, entry model.LedgerEntry) (*model.Transaction, error)
	// RefundTransaction credits back a completed debit and marks it refunded.
	RefundTransaction(ctx context.Context, txID int64, description string) (*model.Transaction, error)
	ListWalletIDs(ctx context.Context) ([]int64, error)
}

// TransactionStore reads the ledger.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	// ListTransactions returns a wallet's transactions in application order.
	ListTransactions(ctx context.Context, walletID int64) ([]model.Transaction, error)
}

// Stores groups every store the engine needs.
type Stores struct {
	Packages     PackageStore
	Matches      MatchStore
	Players      PlayerStore
	Draws        DrawStore
	Cards        CardStore
	Prizes       PrizeStore
	Ranks        RankStore
	Wallets      WalletStore
	Transactions TransactionStore
}

// Backend is a single value implementing every store.
type Backend interface {
	PackageStore
	MatchStore
	PlayerStore
	DrawStore
	CardStore
	PrizeStore
	RankStore
	WalletStore
	TransactionStore
}

// StoresFrom uses one backend for every store.
func StoresFrom(b Backend) Stores {
	return Stores{
		Packages:     b,
		Matches:      b,
		Players:      b,
		Draws:        b,
		Cards:        b,
		Prizes:       b,
		Ranks:        b,
		Wallets:      b,
		Transactions: b,
	}
}
