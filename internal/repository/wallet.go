package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bingo-engine/internal/model"
)

// WalletRepository handles wallets and applies ledger entries.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

const walletColumns = `id, account_id, balance, created_at, updated_at`

func scanWallet(row scanner) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateAccount creates the account's wallet with a zero balance and its
// rank record. Calling it again returns the existing wallet.
func (r *WalletRepository) CreateAccount(ctx context.Context, accountID int64) (*model.Wallet, bool, error) {
	const insertWallet = `
		INSERT INTO wallets (account_id, balance, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING
		RETURNING ` + walletColumns
	const insertRank = `
		INSERT INTO ranks (account_id, updated_at)
		VALUES ($1, NOW())
		ON CONFLICT (account_id) DO NOTHING
	`

	var (
		wallet  *model.Wallet
		created bool
	)
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		wallet, err = scanWallet(tx.QueryRow(ctx, insertWallet, accountID))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			wallet, err = scanWallet(tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE account_id = $1`, accountID))
			return err
		}
		created = true

		_, err = tx.Exec(ctx, insertRank, accountID)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}
	return wallet, created, nil
}

// GetWallet retrieves a wallet by id.
func (r *WalletRepository) GetWallet(ctx context.Context, id int64) (*model.Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// GetWalletByAccount retrieves the wallet owned by an account.
func (r *WalletRepository) GetWalletByAccount(ctx context.Context, accountID int64) (*model.Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by account: %w", err)
	}
	return w, nil
}

// ApplyEntry changes the balance with a conditional update and appends the
// transaction in the same database transaction. A debit only matches the
// row while the balance covers it.
func (r *WalletRepository) ApplyEntry(ctx context.Context, entry model.LedgerEntry) (*model.Transaction, error) {
	if !model.ValidAmount(entry.Amount) {
		return nil, model.ErrInvalidAmount
	}

	var t *model.Transaction
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		balance, err := moveBalance(ctx, tx, entry.WalletID, entry.Type, entry.Amount)
		if err != nil {
			return err
		}
		t, err = insertTransaction(ctx, tx, entry, balance)
		return err
	})
	if err != nil {
		return nil, wrapUnlessKind(err, fmt.Sprintf("failed to apply %s", entry.Type))
	}
	return t, nil
}

// RefundTransaction credits a completed debit back to its wallet, records
// the refund and marks the debit refunded.
func (r *WalletRepository) RefundTransaction(ctx context.Context, txID int64, description string) (*model.Transaction, error) {
	const lockTx = `SELECT wallet_id, type, amount, status FROM transactions WHERE id = $1 FOR UPDATE`
	const markRefunded = `UPDATE transactions SET status = 'refunded' WHERE id = $1`

	var t *model.Transaction
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			walletID int64
			txType   model.TxType
			amount   decimal.Decimal
			status   model.TxStatus
		)
		if err := tx.QueryRow(ctx, lockTx, txID).Scan(&walletID, &txType, &amount, &status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrTransactionNotFound
			}
			return err
		}
		if txType != model.TxDebit || status != model.TxCompleted {
			return fmt.Errorf("transaction %d is a %s %s: %w", txID, status, txType, model.ErrNotRefundable)
		}

		balance, err := moveBalance(ctx, tx, walletID, model.TxRefund, amount)
		if err != nil {
			return err
		}

		t, err = insertTransaction(ctx, tx, model.LedgerEntry{
			WalletID:    walletID,
			Type:        model.TxRefund,
			Amount:      amount,
			Description: description,
			Ref:         model.Ref(model.RefRefund, txID),
		}, balance)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, markRefunded, txID)
		return err
	})
	if err != nil {
		return nil, wrapUnlessKind(err, "failed to refund transaction")
	}
	return t, nil
}

// moveBalance applies a signed amount and returns the new balance.
func moveBalance(ctx context.Context, tx pgx.Tx, walletID int64, txType model.TxType, amount decimal.Decimal) (decimal.Decimal, error) {
	const credit = `
		UPDATE wallets SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`
	const debit = `
		UPDATE wallets SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`

	query := credit
	if txType.Sign() < 0 {
		query = debit
	}

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, query, walletID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if code, _ := pgCode(err); code == codeCheckViolation {
		return decimal.Zero, model.ErrInsufficientBalance
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, walletID).Scan(&exists); err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, model.ErrWalletNotFound
	}
	return decimal.Zero, model.ErrInsufficientBalance
}

// ListWalletIDs returns every wallet id in ascending order.
func (r *WalletRepository) ListWalletIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM wallets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wallet id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return ids, nil
}
