package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations are applied in order; each one is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{"packages", `
		CREATE TABLE IF NOT EXISTS packages (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			max_players INT NOT NULL CHECK (max_players > 0),
			cards_per_player INT NOT NULL CHECK (cards_per_player > 0),
			max_cards_per_player INT NOT NULL,
			max_rounds INT NOT NULL CHECK (max_rounds > 0),
			allowed_card_sizes JSONB NOT NULL,
			cost_credits NUMERIC(18,2) NOT NULL DEFAULT 0,
			entry_fee_credits NUMERIC(18,2) NOT NULL DEFAULT 0,
			max_winners_per_prize INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"matches", `
		CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			package_id BIGINT NOT NULL REFERENCES packages(id),
			host_account_id BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL,
			card_size INT NOT NULL,
			cards_per_player INT NOT NULL,
			prizes_per_round INT NOT NULL,
			max_rounds INT NOT NULL,
			current_round INT NOT NULL DEFAULT 1,
			invite_code VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_matches_invite_code UNIQUE (invite_code),
			CONSTRAINT ck_matches_round CHECK (current_round >= 1 AND current_round <= max_rounds)
		);
		CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
	`},
	{"players", `
		CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			account_id BIGINT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_players_match_account UNIQUE (match_id, account_id)
		);
	`},
	{"cards", `
		CREATE TABLE IF NOT EXISTS cards (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			round_number INT NOT NULL,
			numbers JSONB NOT NULL,
			marked JSONB NOT NULL DEFAULT '[]'::jsonb,
			is_bingo BOOLEAN NOT NULL DEFAULT FALSE,
			bingo_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_cards_match_round ON cards(match_id, round_number, id);
		CREATE INDEX IF NOT EXISTS idx_cards_player_round ON cards(player_id, round_number);
	`},
	{"draws", `
		CREATE TABLE IF NOT EXISTS draws (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			round_number INT NOT NULL,
			number INT NOT NULL,
			sequence INT NOT NULL,
			drawn_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_draws_number UNIQUE (match_id, round_number, number),
			CONSTRAINT uq_draws_sequence UNIQUE (match_id, round_number, sequence)
		);
	`},
	{"prizes", `
		CREATE TABLE IF NOT EXISTS prizes (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			round_number INT NOT NULL,
			name VARCHAR(255) NOT NULL,
			position INT NOT NULL,
			is_claimed BOOLEAN NOT NULL DEFAULT FALSE,
			winner_card_id BIGINT REFERENCES cards(id) ON DELETE SET NULL,
			CONSTRAINT uq_prizes_position UNIQUE (match_id, round_number, position)
		);
	`},
	{"winners", `
		CREATE TABLE IF NOT EXISTS winners (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			prize_id BIGINT NOT NULL REFERENCES prizes(id) ON DELETE CASCADE,
			card_id BIGINT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			account_id BIGINT NOT NULL,
			round_number INT NOT NULL,
			won_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_winners_prize_round UNIQUE (prize_id, round_number)
		);
		CREATE INDEX IF NOT EXISTS idx_winners_match ON winners(match_id, id);
	`},
	{"ranks", `
		CREATE TABLE IF NOT EXISTS ranks (
			account_id BIGINT PRIMARY KEY,
			total_wins INT NOT NULL DEFAULT 0,
			weekly_wins INT NOT NULL DEFAULT 0,
			monthly_wins INT NOT NULL DEFAULT 0,
			total_games INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"wallets", `
		CREATE TABLE IF NOT EXISTS wallets (
			id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL,
			balance NUMERIC(18,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_wallets_account UNIQUE (account_id),
			CONSTRAINT ck_wallets_balance CHECK (balance >= 0)
		);
	`},
	{"transactions", `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			wallet_id BIGINT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
			type VARCHAR(16) NOT NULL,
			amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
			balance_after NUMERIC(18,2) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			ref_kind VARCHAR(32),
			ref_id BIGINT,
			status VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_wallet ON transactions(wallet_id, id);
	`},
}

// Migrate creates the engine schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Int("count", len(migrations)).Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Debug().Int("step", i+1).Str("table", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
