package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// retry runs fn up to attempts times while it fails with retryable.
// fn always runs at least once. The last error is returned once attempts
// run out.
func retry(ctx context.Context, attempts int, retryable error, op string, fn func() error) error {
	attempts = max(attempts, 1)

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil || !errors.Is(err, retryable) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", i).
			Int("max_attempts", attempts).
			Msg("Retrying after write race")
	}
	return err
}
