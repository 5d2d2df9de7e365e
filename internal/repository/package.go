package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bingo-engine/internal/model"
)

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// PackageRepository handles package ruleset persistence.
type PackageRepository struct {
	pool *pgxpool.Pool
}

// NewPackageRepository creates a new PackageRepository instance.
func NewPackageRepository(pool *pgxpool.Pool) *PackageRepository {
	return &PackageRepository{pool: pool}
}

const packageColumns = `id, name, max_players, cards_per_player, max_cards_per_player,
	max_rounds, allowed_card_sizes, cost_credits, entry_fee_credits, max_winners_per_prize, created_at`

func scanPackage(row scanner) (*model.PackageConfig, error) {
	var p model.PackageConfig
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.MaxPlayers,
		&p.CardsPerPlayer,
		&p.MaxCardsPerPlayer,
		&p.MaxRounds,
		&p.AllowedCardSizes,
		&p.CostCredits,
		&p.EntryFeeCredits,
		&p.MaxWinnersPerPrize,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePackage stores a new package.
func (r *PackageRepository) CreatePackage(ctx context.Context, pkg *model.PackageConfig) (*model.PackageConfig, error) {
	const query = `
		INSERT INTO packages (name, max_players, cards_per_player, max_cards_per_player,
			max_rounds, allowed_card_sizes, cost_credits, entry_fee_credits, max_winners_per_prize)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + packageColumns

	p, err := scanPackage(r.pool.QueryRow(ctx, query,
		pkg.Name,
		pkg.MaxPlayers,
		pkg.CardsPerPlayer,
		pkg.MaxCardsPerPlayer,
		pkg.MaxRounds,
		pkg.AllowedCardSizes,
		pkg.CostCredits,
		pkg.EntryFeeCredits,
		pkg.MaxWinnersPerPrize,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create package: %w", err)
	}
	return p, nil
}

// GetPackage retrieves a package by id.
func (r *PackageRepository) GetPackage(ctx context.Context, id int64) (*model.PackageConfig, error) {
	const query = `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`

	p, err := scanPackage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return p, nil
}
