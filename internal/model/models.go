// Package model defines the data models for the bingo round engine and the
// credit wallet ledger.
package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

// Match states. finished is terminal.
const (
	MatchDraft    MatchStatus = "draft"
	MatchWaiting  MatchStatus = "waiting"
	MatchActive   MatchStatus = "active"
	MatchPaused   MatchStatus = "paused"
	MatchFinished MatchStatus = "finished"
)

// PackageConfig is the immutable ruleset a match is created against.
type PackageConfig struct {
	ID                 int64           `db:"id"`
	Name               string          `db:"name"`
	MaxPlayers         int             `db:"max_players"`
	CardsPerPlayer     int             `db:"cards_per_player"`
	MaxCardsPerPlayer  int             `db:"max_cards_per_player"`
	MaxRounds          int             `db:"max_rounds"`
	AllowedCardSizes   []int           `db:"allowed_card_sizes"`
	CostCredits        decimal.Decimal `db:"cost_credits"`
	EntryFeeCredits    decimal.Decimal `db:"entry_fee_credits"`
	MaxWinnersPerPrize int             `db:"max_winners_per_prize"`
	CreatedAt          time.Time       `db:"created_at"`
}

// AllowsCardSize reports whether size is one of the package's card sizes.
func (p *PackageConfig) AllowsCardSize(size int) bool {
	return slices.Contains(p.AllowedCardSizes, size)
}

// SmallestCardSize returns the smallest allowed card size, or 0 if none.
func (p *PackageConfig) SmallestCardSize() int {
	if len(p.AllowedCardSizes) == 0 {
		return 0
	}
	return slices.Min(p.AllowedCardSizes)
}

// Match is one bingo game instance.
type Match struct {
	ID             int64       `db:"id"`
	PackageID      int64       `db:"package_id"`
	HostAccountID  int64       `db:"host_account_id"`
	Status         MatchStatus `db:"status"`
	CardSize       int         `db:"card_size"`
	CardsPerPlayer int         `db:"cards_per_player"`
	PrizesPerRound int         `db:"prizes_per_round"`
	MaxRounds      int         `db:"max_rounds"`
	CurrentRound   int         `db:"current_round"`
	InviteCode     string      `db:"invite_code"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// IsLastRound reports whether the match is playing its final round.
func (m *Match) IsLastRound() bool {
	return m.CurrentRound >= m.MaxRounds
}

// Player is a match participant.
type Player struct {
	ID        int64     `db:"id"`
	MatchID   int64     `db:"match_id"`
	AccountID int64     `db:"account_id"`
	JoinedAt  time.Time `db:"joined_at"`
}

// Card is a player's board for one round.
type Card struct {
	ID          int64      `db:"id"`
	MatchID     int64      `db:"match_id"`
	PlayerID    int64      `db:"player_id"`
	RoundNumber int        `db:"round_number"`
	Numbers     []int      `db:"numbers"`
	Marked      []int      `db:"marked"`
	IsBingo     bool       `db:"is_bingo"`
	BingoAt     *time.Time `db:"bingo_at"`
}

// Draw is one number drawn in a round.
type Draw struct {
	ID          int64     `db:"id"`
	MatchID     int64     `db:"match_id"`
	RoundNumber int       `db:"round_number"`
	Number      int       `db:"number"`
	Sequence    int       `db:"sequence"`
	DrawnAt     time.Time `db:"drawn_at"`
}

// Prize is a claimable slot in a round.
type Prize struct {
	ID           int64  `db:"id"`
	MatchID      int64  `db:"match_id"`
	RoundNumber  int    `db:"round_number"`
	Name         string `db:"name"`
	Position     int    `db:"position"`
	IsClaimed    bool   `db:"is_claimed"`
	WinnerCardID *int64 `db:"winner_card_id"`
}

// Winner is the durable proof that a card completed a prize in a round.
type Winner struct {
	ID          int64     `db:"id"`
	MatchID     int64     `db:"match_id"`
	PrizeID     int64     `db:"prize_id"`
	CardID      int64     `db:"card_id"`
	AccountID   int64     `db:"account_id"`
	RoundNumber int       `db:"round_number"`
	WonAt       time.Time `db:"won_at"`
}

// Rank holds per-account aggregate win counters.
type Rank struct {
	AccountID   int64     `db:"account_id"`
	TotalWins   int       `db:"total_wins"`
	WeeklyWins  int       `db:"weekly_wins"`
	MonthlyWins int       `db:"monthly_wins"`
	TotalGames  int       `db:"total_games"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// RankPeriod selects which win counter a leaderboard or reset uses.
type RankPeriod string

// Rank periods.
const (
	PeriodTotal   RankPeriod = "total"
	PeriodWeekly  RankPeriod = "weekly"
	PeriodMonthly RankPeriod = "monthly"
)

// Wins returns the counter matching the period.
func (r *Rank) Wins(period RankPeriod) int {
	switch period {
	case PeriodWeekly:
		return r.WeeklyWins
	case PeriodMonthly:
		return r.MonthlyWins
	default:
		return r.TotalWins
	}
}

// RoundSetup is everything a new round needs: fresh cards and prizes.
type RoundSetup struct {
	Cards  []Card
	Prizes []Prize
}
