package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bingo-engine/internal/model"
)

// AccountService creates the per-account records the engine owns.
type AccountService struct {
	wallets WalletStore
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(wallets WalletStore) *AccountService {
	return &AccountService{wallets: wallets}
}

// Open creates the account's wallet, with a zero balance, and its rank
// record together. Opening an existing account returns its wallet and false.
func (s *AccountService) Open(ctx context.Context, accountID int64) (*model.Wallet, bool, error) {
	wallet, created, err := s.wallets.CreateAccount(ctx, accountID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open account %d: %w", accountID, err)
	}

	if created {
		log.Info().
			Int64("account_id", accountID).
			Int64("wallet_id", wallet.ID).
			Msg("Account opened")
	}

	return wallet, created, nil
}
