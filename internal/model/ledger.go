package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places a credit amount may carry.
// Balances and amounts are stored as NUMERIC(18,2).
const AmountScale = 2

// ValidAmount reports whether d is a positive amount with at most
// AmountScale decimal places.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(AmountScale))
}

// Wallet holds an account's credit balance.
type Wallet struct {
	ID        int64           `db:"id"`
	AccountID int64           `db:"account_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// TxType categorizes a ledger transaction.
type TxType string

// Transaction types.
const (
	TxCredit TxType = "credit"
	TxDebit  TxType = "debit"
	TxRefund TxType = "refund"
)

// Sign returns +1 for balance-increasing types and -1 for debits.
func (t TxType) Sign() int {
	if t == TxDebit {
		return -1
	}
	return 1
}

// TxStatus is the settlement state of a transaction.
type TxStatus string

// Transaction statuses.
const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxRefunded  TxStatus = "refunded"
)

// RefKind names the kind of entity that caused a transaction.
type RefKind string

// Reference kinds.
const (
	RefPackagePurchase    RefKind = "package_purchase"
	RefGiftCardRedemption RefKind = "gift_card_redemption"
	RefMatchEntry         RefKind = "match_entry"
	RefRefund             RefKind = "refund"
)

// Valid reports whether k is a known reference kind.
func (k RefKind) Valid() bool {
	switch k {
	case RefPackagePurchase, RefGiftCardRedemption, RefMatchEntry, RefRefund:
		return true
	}
	return false
}

// Reference points at the entity that caused a transaction.
type Reference struct {
	Kind RefKind
	ID   int64
}

// Ref builds a reference.
func Ref(kind RefKind, id int64) *Reference {
	return &Reference{Kind: kind, ID: id}
}

// Transaction is one append-only ledger entry.
type Transaction struct {
	ID           int64           `db:"id"`
	WalletID     int64           `db:"wallet_id"`
	Type         TxType          `db:"type"`
	Amount       decimal.Decimal `db:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after"`
	Description  string          `db:"description"`
	Ref          *Reference      `db:"-"`
	Status       TxStatus        `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
}

// SignedAmount returns the amount with the sign it applies to the balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type.Sign() < 0 {
		return t.Amount.Neg()
	}
	return t.Amount
}

// LedgerEntry is a requested balance mutation.
type LedgerEntry struct {
	WalletID    int64
	Type        TxType
	Amount      decimal.Decimal
	Description string
	Ref         *Reference
}
