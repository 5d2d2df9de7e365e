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

// TransactionRepository reads the append-only ledger.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, wallet_id, type, amount, balance_after, description,
	ref_kind, ref_id, status, created_at`

func scanTransaction(row scanner) (*model.Transaction, error) {
	var (
		t       model.Transaction
		refKind *string
		refID   *int64
	)
	err := row.Scan(
		&t.ID,
		&t.WalletID,
		&t.Type,
		&t.Amount,
		&t.BalanceAfter,
		&t.Description,
		&refKind,
		&refID,
		&t.Status,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if refKind != nil && refID != nil {
		t.Ref = model.Ref(model.RefKind(*refKind), *refID)
	}
	return &t, nil
}

// insertTransaction appends a completed entry. It must run in the same
// transaction that changed the wallet balance, while the wallet row is
// still locked, so ids follow application order.
func insertTransaction(ctx context.Context, tx pgx.Tx, entry model.LedgerEntry, balanceAfter decimal.Decimal) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (wallet_id, type, amount, balance_after, description,
			ref_kind, ref_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'completed', NOW())
		RETURNING ` + transactionColumns

	var (
		refKind *string
		refID   *int64
	)
	if entry.Ref != nil {
		kind := string(entry.Ref.Kind)
		refKind, refID = &kind, &entry.Ref.ID
	}

	t, err := scanTransaction(tx.QueryRow(ctx, query,
		entry.WalletID,
		entry.Type,
		entry.Amount,
		balanceAfter,
		entry.Description,
		refKind,
		refID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

// GetTransaction retrieves a transaction by id.
func (r *TransactionRepository) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns a wallet's transactions oldest first.
func (r *TransactionRepository) ListTransactions(ctx context.Context, walletID int64) ([]model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
