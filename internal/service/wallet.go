package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-engine/internal/model"
	"bingo-engine/internal/pkg/lock"
)

// WalletService moves credits. Every balance change goes through Credit,
// Debit or Refund; each one is serialized per wallet in process and applied
// by the store as one conditional write plus an appended transaction.
type WalletService struct {
	wallets      WalletStore
	transactions TransactionStore
	locks        *lock.KeyedLock
	lockTimeout  time.Duration
}

// NewWalletService creates a new WalletService instance.
func NewWalletService(wallets WalletStore, transactions TransactionStore, lockTimeout time.Duration) *WalletService {
	return &WalletService{
		wallets:      wallets,
		transactions: transactions,
		locks:        lock.NewKeyedLock(),
		lockTimeout:  lockTimeout,
	}
}

// Credit adds amount to the wallet.
func (s *WalletService) Credit(ctx context.Context, walletID int64, amount decimal.Decimal, description string, ref *model.Reference) (*model.Transaction, error) {
	return s.apply(ctx, model.LedgerEntry{
		WalletID:    walletID,
		Type:        model.TxCredit,
		Amount:      amount,
		Description: description,
		Ref:         ref,
	})
}

// Debit removes amount from the wallet. It fails with
// model.ErrInsufficientBalance, leaving the balance alone, when the wallet
// holds less than amount.
func (s *WalletService) Debit(ctx context.Context, walletID int64, amount decimal.Decimal, description string, ref *model.Reference) (*model.Transaction, error) {
	return s.apply(ctx, model.LedgerEntry{
		WalletID:    walletID,
		Type:        model.TxDebit,
		Amount:      amount,
		Description: description,
		Ref:         ref,
	})
}

func (s *WalletService) apply(ctx context.Context, entry model.LedgerEntry) (*model.Transaction, error) {
	if !model.ValidAmount(entry.Amount) {
		return nil, fmt.Errorf("%s of %s: %w", entry.Type, entry.Amount, model.ErrInvalidAmount)
	}
	if entry.Ref != nil && !entry.Ref.Kind.Valid() {
		return nil, fmt.Errorf("unknown reference kind %q: %w", entry.Ref.Kind, model.ErrInvalidConfig)
	}

	var tx *model.Transaction
	err := s.locks.WithLock(ctx, entry.WalletID, s.lockTimeout, func() error {
		var err error
		tx, err = s.wallets.ApplyEntry(ctx, entry)
		return err
	})
	if err != nil {
		log.Debug().
			Err(err).
			Int64("wallet_id", entry.WalletID).
			Str("type", string(entry.Type)).
			Str("amount", entry.Amount.String()).
			Msg("Ledger entry rejected")
		return nil, err
	}

	log.Info().
		Int64("wallet_id", tx.WalletID).
		Int64("tx_id", tx.ID).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Str("balance_after", tx.BalanceAfter.String()).
		Msg("Ledger entry applied")

	return tx, nil
}

// Refund credits a completed debit back and marks it refunded. A debit can
// only be refunded once.
func (s *WalletService) Refund(ctx context.Context, transactionID int64, description string) (*model.Transaction, error) {
	orig, err := s.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var tx *model.Transaction
	err = s.locks.WithLock(ctx, orig.WalletID, s.lockTimeout, func() error {
		var err error
		tx, err = s.wallets.RefundTransaction(ctx, transactionID, description)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("wallet_id", tx.WalletID).
		Int64("tx_id", tx.ID).
		Int64("refunded_tx_id", transactionID).
		Str("amount", tx.Amount.String()).
		Msg("Debit refunded")

	return tx, nil
}

// HasBalance reports whether the wallet currently covers amount.
func (s *WalletService) HasBalance(ctx context.Context, walletID int64, amount decimal.Decimal) (bool, error) {
	w, err := s.wallets.GetWallet(ctx, walletID)
	if err != nil {
		return false, err
	}
	return w.Balance.GreaterThanOrEqual(amount), nil
}

// Balance returns the wallet's current balance.
func (s *WalletService) Balance(ctx context.Context, walletID int64) (decimal.Decimal, error) {
	w, err := s.wallets.GetWallet(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// WalletForAccount returns the wallet owned by an account.
func (s *WalletService) WalletForAccount(ctx context.Context, accountID int64) (*model.Wallet, error) {
	return s.wallets.GetWalletByAccount(ctx, accountID)
}

// History returns the wallet's transactions in application order.
func (s *WalletService) History(ctx context.Context, walletID int64) ([]model.Transaction, error) {
	return s.transactions.ListTransactions(ctx, walletID)
}

// Reconcile replays the wallet's transactions and checks them against the
// stored balance.
func (s *WalletService) Reconcile(ctx context.Context, walletID int64) error {
	w, err := s.wallets.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	txs, err := s.transactions.ListTransactions(ctx, walletID)
	if err != nil {
		return err
	}

	replayed, err := ReplayTransactions(txs)
	if err != nil {
		return fmt.Errorf("wallet %d: %w", walletID, err)
	}
	if !replayed.Equal(w.Balance) {
		return fmt.Errorf("wallet %d: replay gives %s, balance is %s: %w", walletID, replayed, w.Balance, model.ErrLedgerMismatch)
	}
	return nil
}

// ReconcileAll checks every wallet and returns the ids that do not
// reconcile.
func (s *WalletService) ReconcileAll(ctx context.Context) ([]int64, error) {
	ids, err := s.wallets.ListWalletIDs(ctx)
	if err != nil {
		return nil, err
	}

	var broken []int64
	for _, id := range ids {
		if err := s.Reconcile(ctx, id); err != nil {
			log.Error().Err(err).Int64("wallet_id", id).Msg("Wallet does not reconcile")
			broken = append(broken, id)
		}
	}

	log.Info().
		Int("wallets", len(ids)).
		Int("mismatches", len(broken)).
		Msg("Ledger reconciliation finished")

	return broken, nil
}

// ReplayTransactions folds a wallet's transactions from a zero balance and
// checks every balance_after along the way. It returns the final balance.
func ReplayTransactions(txs []model.Transaction) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, tx := range txs {
		if !tx.Amount.IsPositive() {
			return balance, fmt.Errorf("transaction %d has non-positive amount %s: %w", tx.ID, tx.Amount, model.ErrLedgerMismatch)
		}
		balance = balance.Add(tx.SignedAmount())
		if balance.IsNegative() {
			return balance, fmt.Errorf("transaction %d drives balance to %s: %w", tx.ID, balance, model.ErrLedgerMismatch)
		}
		if !balance.Equal(tx.BalanceAfter) {
			return balance, fmt.Errorf("transaction %d: replay gives %s, recorded %s: %w", tx.ID, balance, tx.BalanceAfter, model.ErrLedgerMismatch)
		}
	}
	return balance, nil
}
