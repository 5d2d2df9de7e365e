// Package repository provides the PostgreSQL stores of the engine.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bingo-engine/internal/model"
)

// PostgreSQL error codes the stores translate.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// isUniqueViolation reports whether err breaks the named unique constraint.
// An empty name matches any unique constraint.
func isUniqueViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == codeUniqueViolation && (constraint == "" || name == constraint)
}

// asConflict maps serialization failures and deadlocks to
// model.ErrWriteConflict so callers can retry them.
func asConflict(err error) error {
	switch code, _ := pgCode(err); code {
	case codeSerializationFailure, codeDeadlockDetected:
		return errors.Join(model.ErrWriteConflict, err)
	}
	return err
}

// inTx runs fn in a read committed transaction.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return asConflict(pgx.BeginFunc(ctx, pool, fn))
}

// engineKinds are the errors the stores return as they are.
var engineKinds = []error{
	model.ErrInvalidTransition,
	model.ErrConstraintViolation,
	model.ErrInsufficientBalance,
	model.ErrInvalidAmount,
	model.ErrResourceExhausted,
	model.ErrNotFound,
	model.ErrInvalidConfig,
}

// wrapUnlessKind adds context to infrastructure errors and passes engine
// errors through untouched.
func wrapUnlessKind(err error, msg string) error {
	for _, kind := range engineKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
