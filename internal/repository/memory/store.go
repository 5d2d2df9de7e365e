// Package memory keeps every engine store in process memory. Each call runs
// under one mutex, so every call is atomic the way a database transaction
// would be. Returned values are copies.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bingo-engine/internal/model"
)

// Store implements the engine stores in memory.
type Store struct {
	mu  sync.Mutex
	ids map[string]int64
	now func() time.Time

	packages  map[int64]model.PackageConfig
	matches   map[int64]model.Match
	invites   map[string]int64
	players   map[int64]model.Player
	cards     map[int64]model.Card
	draws     map[int64][]model.Draw
	prizes    map[int64]model.Prize
	winners   map[int64]model.Winner
	ranks     map[int64]model.Rank
	wallets   map[int64]model.Wallet
	byAccount map[int64]int64
	txs       map[int64]model.Transaction
	walletTxs map[int64][]int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		ids:       make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
		packages:  make(map[int64]model.PackageConfig),
		matches:   make(map[int64]model.Match),
		invites:   make(map[string]int64),
		players:   make(map[int64]model.Player),
		cards:     make(map[int64]model.Card),
		draws:     make(map[int64][]model.Draw),
		prizes:    make(map[int64]model.Prize),
		winners:   make(map[int64]model.Winner),
		ranks:     make(map[int64]model.Rank),
		wallets:   make(map[int64]model.Wallet),
		byAccount: make(map[int64]int64),
		txs:       make(map[int64]model.Transaction),
		walletTxs: make(map[int64][]int64),
	}
}

func (s *Store) nextID(table string) int64 {
	s.ids[table]++
	return s.ids[table]
}

// ============================================================================
// Packages
// ============================================================================

// CreatePackage stores a package and assigns its id.
func (s *Store) CreatePackage(_ context.Context, pkg *model.PackageConfig) (*model.PackageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := clonePackage(*pkg)
	p.ID = s.nextID("packages")
	p.CreatedAt = s.now()
	s.packages[p.ID] = p

	out := clonePackage(p)
	return &out, nil
}

// GetPackage returns a package or model.ErrPackageNotFound.
func (s *Store) GetPackage(_ context.Context, id int64) (*model.PackageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[id]
	if !ok {
		return nil, model.ErrPackageNotFound
	}
	out := clonePackage(p)
	return &out, nil
}

// ============================================================================
// Matches
// ============================================================================

// CreateMatch stores a match together with its first round prizes. The
// invite code must be unused.
func (s *Store) CreateMatch(_ context.Context, m *model.Match, prizes []model.Prize) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.invites[m.InviteCode]; taken {
		return nil, model.ErrDuplicateInviteCode
	}
	if _, ok := s.packages[m.PackageID]; !ok {
		return nil, model.ErrPackageNotFound
	}

	match := *m
	match.ID = s.nextID("matches")
	if match.CurrentRound == 0 {
		match.CurrentRound = 1
	}
	match.CreatedAt = s.now()
	match.UpdatedAt = match.CreatedAt
	s.matches[match.ID] = match
	s.invites[match.InviteCode] = match.ID

	s.insertPrizes(match.ID, prizes)

	out := match
	return &out, nil
}

// GetMatch returns a match by id.
func (s *Store) GetMatch(_ context.Context, id int64) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return &m, nil
}

// GetMatchByInviteCode returns the match holding code.
func (s *Store) GetMatchByInviteCode(_ context.Context, code string) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.invites[code]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	m := s.matches[id]
	return &m, nil
}

// TransitionMatch moves a match to status to if its current status is one
// of from.
func (s *Store) TransitionMatch(_ context.Context, id int64, to model.MatchStatus, from ...model.MatchStatus) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	if !slices.Contains(from, m.Status) {
		return nil, fmt.Errorf("match %d is %s, cannot move to %s: %w", id, m.Status, to, model.ErrInvalidTransition)
	}

	m.Status = to
	m.UpdatedAt = s.now()
	s.matches[id] = m
	return &m, nil
}

// StartMatch activates a waiting match and counts a game for every player.
func (s *Store) StartMatch(_ context.Context, id int64) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	if m.Status != model.MatchWaiting {
		return nil, fmt.Errorf("match %d is %s, cannot move to %s: %w", id, m.Status, model.MatchActive, model.ErrInvalidTransition)
	}

	var accounts []int64
	for _, p := range s.players {
		if p.MatchID == id {
			accounts = append(accounts, p.AccountID)
		}
	}
	if len(accounts) == 0 {
		return nil, model.ErrNoPlayers
	}

	now := s.now()
	for _, acc := range accounts {
		r := s.rankFor(acc)
		r.TotalGames++
		r.UpdatedAt = now
		s.ranks[acc] = r
	}

	m.Status = model.MatchActive
	m.UpdatedAt = now
	s.matches[id] = m
	return &m, nil
}

// AdvanceRound moves an active match from expectRound to the next round and
// stores that round's cards and prizes. A nil setup on the last round
// finishes the match instead.
func (s *Store) AdvanceRound(_ context.Context, id int64, expectRound int, setup *model.RoundSetup) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	if m.Status != model.MatchActive {
		return nil, fmt.Errorf("match %d is %s: %w", id, m.Status, model.ErrMatchNotActive)
	}
	if m.CurrentRound != expectRound {
		return nil, fmt.Errorf("match %d is in round %d, not %d: %w", id, m.CurrentRound, expectRound, model.ErrWriteConflict)
	}

	m.UpdatedAt = s.now()
	if setup == nil {
		m.Status = model.MatchFinished
		s.matches[id] = m
		return &m, nil
	}
	if m.CurrentRound >= m.MaxRounds {
		return nil, fmt.Errorf("match %d already plays its last round: %w", id, model.ErrInvalidTransition)
	}

	m.CurrentRound++
	s.matches[id] = m

	for _, c := range setup.Cards {
		s.insertCard(id, c.PlayerID, m.CurrentRound, c.Numbers)
	}
	prizes := make([]model.Prize, len(setup.Prizes))
	for i, p := range setup.Prizes {
		p.RoundNumber = m.CurrentRound
		prizes[i] = p
	}
	s.insertPrizes(id, prizes)

	return &m, nil
}

// DeleteMatch removes a match and everything it owns.
func (s *Store) DeleteMatch(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}

	delete(s.matches, id)
	delete(s.invites, m.InviteCode)
	delete(s.draws, id)
	for pid, p := range s.players {
		if p.MatchID == id {
			delete(s.players, pid)
		}
	}
	for cid, c := range s.cards {
		if c.MatchID == id {
			delete(s.cards, cid)
		}
	}
	for pid, p := range s.prizes {
		if p.MatchID == id {
			delete(s.prizes, pid)
		}
	}
	for wid, w := range s.winners {
		if w.MatchID == id {
			delete(s.winners, wid)
		}
	}
	return nil
}

// ============================================================================
// Players
// ============================================================================

// JoinMatch adds a player with its cards unless the match is full, not
// waiting, or already joined by the account.
func (s *Store) JoinMatch(_ context.Context, matchID, accountID int64, maxPlayers int, cards [][]int) (*model.Player, []model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return nil, nil, model.ErrMatchNotFound
	}
	if m.Status != model.MatchWaiting {
		return nil, nil, model.ErrMatchNotJoinable
	}

	count := 0
	for _, p := range s.players {
		if p.MatchID != matchID {
			continue
		}
		if p.AccountID == accountID {
			return nil, nil, model.ErrAlreadyJoined
		}
		count++
	}
	if count >= maxPlayers {
		return nil, nil, model.ErrMatchFull
	}

	player := model.Player{
		ID:        s.nextID("players"),
		MatchID:   matchID,
		AccountID: accountID,
		JoinedAt:  s.now(),
	}
	s.players[player.ID] = player

	created := make([]model.Card, 0, len(cards))
	for _, nums := range cards {
		created = append(created, cloneCard(s.insertCard(matchID, player.ID, m.CurrentRound, nums)))
	}
	return &player, created, nil
}

// ListPlayers returns a match's players in join order.
func (s *Store) ListPlayers(_ context.Context, matchID int64) ([]model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var players []model.Player
	for _, p := range s.players {
		if p.MatchID == matchID {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

// CountPlayers returns how many players joined the match.
func (s *Store) CountPlayers(_ context.Context, matchID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.players {
		if p.MatchID == matchID {
			count++
		}
	}
	return count, nil
}

// ============================================================================
// Draws
// ============================================================================

// InsertDraw records number as the next draw of the round. It fails with
// model.ErrDuplicateDraw when the number is already out.
func (s *Store) InsertDraw(_ context.Context, matchID int64, round, number int) (*model.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	if m.Status != model.MatchActive || m.CurrentRound != round {
		return nil, fmt.Errorf("match %d is %s in round %d: %w", matchID, m.Status, m.CurrentRound, model.ErrMatchNotActive)
	}

	seq := 0
	for _, d := range s.draws[matchID] {
		if d.RoundNumber != round {
			continue
		}
		if d.Number == number {
			return nil, model.ErrDuplicateDraw
		}
		seq = max(seq, d.Sequence)
	}

	d := model.Draw{
		ID:          s.nextID("draws"),
		MatchID:     matchID,
		RoundNumber: round,
		Number:      number,
		Sequence:    seq + 1,
		DrawnAt:     s.now(),
	}
	s.draws[matchID] = append(s.draws[matchID], d)
	return &d, nil
}

// ListDraws returns a round's draws ordered by sequence.
func (s *Store) ListDraws(_ context.Context, matchID int64, round int) ([]model.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var draws []model.Draw
	for _, d := range s.draws[matchID] {
		if d.RoundNumber == round {
			draws = append(draws, d)
		}
	}
	return draws, nil
}

// ============================================================================
// Cards
// ============================================================================

func (s *Store) insertCard(matchID, playerID int64, round int, numbers []int) model.Card {
	c := model.Card{
		ID:          s.nextID("cards"),
		MatchID:     matchID,
		PlayerID:    playerID,
		RoundNumber: round,
		Numbers:     slices.Clone(numbers),
		Marked:      []int{},
	}
	s.cards[c.ID] = c
	return c
}

// GetCard returns a card by id.
func (s *Store) GetCard(_ context.Context, id int64) (*model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, model.ErrCardNotFound
	}
	out := cloneCard(c)
	return &out, nil
}

// ListCards returns a round's cards ordered by id.
func (s *Store) ListCards(_ context.Context, matchID int64, round int) ([]model.Card, error) {
	return s.filterCards(func(c model.Card) bool {
		return c.MatchID == matchID && c.RoundNumber == round
	}), nil
}

// ListPlayerCards returns a player's cards for one round.
func (s *Store) ListPlayerCards(_ context.Context, playerID int64, round int) ([]model.Card, error) {
	return s.filterCards(func(c model.Card) bool {
		return c.PlayerID == playerID && c.RoundNumber == round
	}), nil
}

func (s *Store) filterCards(keep func(model.Card) bool) []model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cards []model.Card
	for _, c := range s.cards {
		if keep(c) {
			cards = append(cards, cloneCard(c))
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

// AddMark marks n on the card. It reports false when n is not on the card.
func (s *Store) AddMark(_ context.Context, cardID int64, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[cardID]
	if !ok {
		return false, model.ErrCardNotFound
	}
	if !slices.Contains(c.Numbers, n) {
		return false, nil
	}
	if !slices.Contains(c.Marked, n) {
		c.Marked = append(slices.Clone(c.Marked), n)
		s.cards[cardID] = c
	}
	return true, nil
}

// ============================================================================
// Prizes and winners
// ============================================================================

func (s *Store) insertPrizes(matchID int64, prizes []model.Prize) {
	for _, p := range prizes {
		p.ID = s.nextID("prizes")
		p.MatchID = matchID
		p.IsClaimed = false
		p.WinnerCardID = nil
		s.prizes[p.ID] = p
	}
}

// ListPrizes returns a round's prizes in position order.
func (s *Store) ListPrizes(_ context.Context, matchID int64, round int) ([]model.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prizes []model.Prize
	for _, p := range s.prizes {
		if p.MatchID == matchID && p.RoundNumber == round {
			prizes = append(prizes, clonePrize(p))
		}
	}
	sort.Slice(prizes, func(i, j int) bool { return prizes[i].Position < prizes[j].Position })
	return prizes, nil
}

// GetPrize returns a prize by id.
func (s *Store) GetPrize(_ context.Context, id int64) (*model.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prizes[id]
	if !ok {
		return nil, model.ErrPrizeNotFound
	}
	out := clonePrize(p)
	return &out, nil
}

// AwardWinner claims the prize for the card, marks the card as won and
// credits the winner's rank counters in one step.
func (s *Store) AwardWinner(_ context.Context, prizeID, cardID int64, at time.Time) (*model.Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prize, ok := s.prizes[prizeID]
	if !ok {
		return nil, model.ErrPrizeNotFound
	}
	card, ok := s.cards[cardID]
	if !ok {
		return nil, model.ErrCardNotFound
	}
	m := s.matches[prize.MatchID]

	if card.MatchID != prize.MatchID || card.RoundNumber != prize.RoundNumber {
		return nil, model.ErrPrizeRoundMismatch
	}
	if m.Status != model.MatchActive {
		return nil, fmt.Errorf("match %d is %s: %w", m.ID, m.Status, model.ErrMatchNotActive)
	}
	if prize.RoundNumber != m.CurrentRound {
		return nil, fmt.Errorf("prize is for round %d, match is in round %d: %w", prize.RoundNumber, m.CurrentRound, model.ErrPrizeRoundMismatch)
	}
	if prize.IsClaimed {
		return nil, model.ErrPrizeAlreadyClaimed
	}
	if card.IsBingo {
		return nil, model.ErrCardAlreadyWon
	}

	account := s.players[card.PlayerID].AccountID

	w := model.Winner{
		ID:          s.nextID("winners"),
		MatchID:     prize.MatchID,
		PrizeID:     prizeID,
		CardID:      cardID,
		AccountID:   account,
		RoundNumber: prize.RoundNumber,
		WonAt:       at,
	}
	s.winners[w.ID] = w

	card.IsBingo = true
	card.BingoAt = &at
	s.cards[cardID] = card

	prize.IsClaimed = true
	prize.WinnerCardID = &cardID
	s.prizes[prizeID] = prize

	r := s.rankFor(account)
	r.TotalWins++
	r.WeeklyWins++
	r.MonthlyWins++
	r.UpdatedAt = at
	s.ranks[account] = r

	return &w, nil
}

// ListWinners returns a match's winners in award order.
func (s *Store) ListWinners(_ context.Context, matchID int64) ([]model.Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var winners []model.Winner
	for _, w := range s.winners {
		if w.MatchID == matchID {
			winners = append(winners, w)
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].ID < winners[j].ID })
	return winners, nil
}

// ============================================================================
// Ranks
// ============================================================================

func (s *Store) rankFor(accountID int64) model.Rank {
	r, ok := s.ranks[accountID]
	if !ok {
		r = model.Rank{AccountID: accountID}
	}
	return r
}

// GetRank returns an account's rank counters.
func (s *Store) GetRank(_ context.Context, accountID int64) (*model.Rank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ranks[accountID]
	if !ok {
		return nil, model.ErrRankNotFound
	}
	return &r, nil
}

// TopRanks returns up to limit ranks ordered by wins in period.
func (s *Store) TopRanks(_ context.Context, period model.RankPeriod, limit int) ([]model.Rank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranks := make([]model.Rank, 0, len(s.ranks))
	for _, r := range s.ranks {
		ranks = append(ranks, r)
	}
	sort.Slice(ranks, func(i, j int) bool {
		wi, wj := ranks[i].Wins(period), ranks[j].Wins(period)
		if wi != wj {
			return wi > wj
		}
		return ranks[i].AccountID < ranks[j].AccountID
	})
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

// ResetWins zeroes the weekly or monthly win counters and returns how
// many ranks changed.
func (s *Store) ResetWins(_ context.Context, period model.RankPeriod) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if period != model.PeriodWeekly && period != model.PeriodMonthly {
		return 0, fmt.Errorf("cannot reset %s wins: %w", period, model.ErrInvalidConfig)
	}

	var n int64
	now := s.now()
	for id, r := range s.ranks {
		if r.Wins(period) == 0 {
			continue
		}
		if period == model.PeriodWeekly {
			r.WeeklyWins = 0
		} else {
			r.MonthlyWins = 0
		}
		r.UpdatedAt = now
		s.ranks[id] = r
		n++
	}
	return n, nil
}

// ============================================================================
// Wallets and transactions
// ============================================================================

// CreateAccount opens a wallet and rank for the account. It reports false
// and returns the existing wallet when the account is already open.
func (s *Store) CreateAccount(_ context.Context, accountID int64) (*model.Wallet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byAccount[accountID]; ok {
		w := s.wallets[id]
		return &w, false, nil
	}

	now := s.now()
	w := model.Wallet{
		ID:        s.nextID("wallets"),
		AccountID: accountID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[w.ID] = w
	s.byAccount[accountID] = w.ID

	if _, ok := s.ranks[accountID]; !ok {
		s.ranks[accountID] = model.Rank{AccountID: accountID, UpdatedAt: now}
	}
	return &w, true, nil
}

// GetWallet returns a wallet by id.
func (s *Store) GetWallet(_ context.Context, id int64) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return nil, model.ErrWalletNotFound
	}
	return &w, nil
}

// GetWalletByAccount returns the wallet owned by accountID.
func (s *Store) GetWalletByAccount(_ context.Context, accountID int64) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byAccount[accountID]
	if !ok {
		return nil, model.ErrWalletNotFound
	}
	w := s.wallets[id]
	return &w, nil
}

// ApplyEntry moves the balance and appends the transaction. A debit larger
// than the balance fails with model.ErrInsufficientBalance.
func (s *Store) ApplyEntry(_ context.Context, entry model.LedgerEntry) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !model.ValidAmount(entry.Amount) {
		return nil, model.ErrInvalidAmount
	}
	w, ok := s.wallets[entry.WalletID]
	if !ok {
		return nil, model.ErrWalletNotFound
	}

	delta := entry.Amount
	if entry.Type.Sign() < 0 {
		delta = delta.Neg()
	}
	balance := w.Balance.Add(delta)
	if balance.IsNegative() {
		return nil, model.ErrInsufficientBalance
	}

	tx := s.appendTx(&w, entry, balance)
	return &tx, nil
}

// RefundTransaction credits back a completed debit and marks it refunded.
func (s *Store) RefundTransaction(_ context.Context, txID int64, description string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.txs[txID]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}
	if orig.Type != model.TxDebit || orig.Status != model.TxCompleted {
		return nil, fmt.Errorf("transaction %d is a %s %s: %w", txID, orig.Status, orig.Type, model.ErrNotRefundable)
	}

	w := s.wallets[orig.WalletID]
	entry := model.LedgerEntry{
		WalletID:    w.ID,
		Type:        model.TxRefund,
		Amount:      orig.Amount,
		Description: description,
		Ref:         model.Ref(model.RefRefund, txID),
	}
	tx := s.appendTx(&w, entry, w.Balance.Add(orig.Amount))

	orig.Status = model.TxRefunded
	s.txs[txID] = orig
	return &tx, nil
}

func (s *Store) appendTx(w *model.Wallet, entry model.LedgerEntry, balance decimal.Decimal) model.Transaction {
	now := s.now()
	w.Balance = balance
	w.UpdatedAt = now
	s.wallets[w.ID] = *w

	tx := model.Transaction{
		ID:           s.nextID("transactions"),
		WalletID:     w.ID,
		Type:         entry.Type,
		Amount:       entry.Amount,
		BalanceAfter: balance,
		Description:  entry.Description,
		Ref:          cloneRef(entry.Ref),
		Status:       model.TxCompleted,
		CreatedAt:    now,
	}
	s.txs[tx.ID] = tx
	s.walletTxs[w.ID] = append(s.walletTxs[w.ID], tx.ID)

	tx.Ref = cloneRef(tx.Ref)
	return tx
}

// ListWalletIDs returns every wallet id in ascending order.
func (s *Store) ListWalletIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.wallets))
	for id := range s.wallets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// GetTransaction returns a transaction by id.
func (s *Store) GetTransaction(_ context.Context, id int64) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}
	tx.Ref = cloneRef(tx.Ref)
	return &tx, nil
}

// ListTransactions returns a wallet's transactions in creation order.
func (s *Store) ListTransactions(_ context.Context, walletID int64) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.walletTxs[walletID]
	txs := make([]model.Transaction, 0, len(ids))
	for _, id := range ids {
		tx := s.txs[id]
		tx.Ref = cloneRef(tx.Ref)
		txs = append(txs, tx)
	}
	return txs, nil
}

func clonePackage(p model.PackageConfig) model.PackageConfig {
	p.AllowedCardSizes = slices.Clone(p.AllowedCardSizes)
	return p
}

func cloneCard(c model.Card) model.Card {
	c.Numbers = slices.Clone(c.Numbers)
	c.Marked = slices.Clone(c.Marked)
	if c.BingoAt != nil {
		at := *c.BingoAt
		c.BingoAt = &at
	}
	return c
}

func clonePrize(p model.Prize) model.Prize {
	if p.WinnerCardID != nil {
		id := *p.WinnerCardID
		p.WinnerCardID = &id
	}
	return p
}

func cloneRef(r *model.Reference) *model.Reference {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
