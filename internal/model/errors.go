package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every engine failure wraps exactly one of these, so callers
// can classify with errors.Is.
var (
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrResourceExhausted   = errors.New("resource exhausted")
	ErrNotFound            = errors.New("not found")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// Not found.
var (
	ErrPackageNotFound     = fmt.Errorf("package %w", ErrNotFound)
	ErrMatchNotFound       = fmt.Errorf("match %w", ErrNotFound)
	ErrCardNotFound        = fmt.Errorf("card %w", ErrNotFound)
	ErrPrizeNotFound       = fmt.Errorf("prize %w", ErrNotFound)
	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrRankNotFound        = fmt.Errorf("rank %w", ErrNotFound)
)

// State violations.
var (
	ErrMatchFull          = fmt.Errorf("match is full: %w", ErrInvalidTransition)
	ErrMatchNotJoinable   = fmt.Errorf("match is not accepting players: %w", ErrInvalidTransition)
	ErrNoPlayers          = fmt.Errorf("match has no players: %w", ErrInvalidTransition)
	ErrMatchNotActive     = fmt.Errorf("match is not active: %w", ErrInvalidTransition)
	ErrCardNotWinning     = fmt.Errorf("card numbers are not all drawn: %w", ErrInvalidTransition)
	ErrPrizeRoundMismatch = fmt.Errorf("card and prize belong to different rounds: %w", ErrInvalidTransition)
	ErrNotRefundable      = fmt.Errorf("transaction cannot be refunded: %w", ErrInvalidTransition)
)

// Uniqueness races. ErrDuplicateDraw and ErrWriteConflict are retried
// internally; the rest surface to the caller.
var (
	ErrDuplicateDraw       = fmt.Errorf("number already drawn in round: %w", ErrConstraintViolation)
	ErrPrizeAlreadyClaimed = fmt.Errorf("prize already claimed: %w", ErrConstraintViolation)
	ErrCardAlreadyWon      = fmt.Errorf("card already won: %w", ErrConstraintViolation)
	ErrAlreadyJoined       = fmt.Errorf("account already joined match: %w", ErrConstraintViolation)
	ErrDuplicateInviteCode = fmt.Errorf("invite code already in use: %w", ErrConstraintViolation)
	ErrWriteConflict       = fmt.Errorf("concurrent write conflict: %w", ErrConstraintViolation)
)

// Exhaustion.
var (
	ErrRoundExhausted   = fmt.Errorf("no numbers left to draw in round: %w", ErrResourceExhausted)
	ErrNoPrizeAvailable = fmt.Errorf("no unclaimed prize left in round: %w", ErrResourceExhausted)
)

// ErrLedgerMismatch is returned when replaying a wallet's transactions does
// not reproduce its balance.
var ErrLedgerMismatch = errors.New("ledger does not reconcile")
