// Package main is the operator entry point for the bingo engine. It applies
// the schema and runs maintenance jobs against the configured database:
//
//	engine            migrate, then audit every wallet ledger
//	engine migrate    migrate only
//	engine reset weekly|monthly
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bingo-engine/internal/config"
	"bingo-engine/internal/event"
	"bingo-engine/internal/model"
	"bingo-engine/internal/pkg/db"
	"bingo-engine/internal/repository"
	"bingo-engine/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(cfg.Log.ZerologLevel())

	log.Info().Msg("Configuration loaded successfully")

	os.Exit(run(cfg, os.Args[1:]))
}

// run executes one command and returns the process exit code. Deferred
// cleanup runs before main exits.
func run(cfg *config.Config, args []string) int {
	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer dbPool.Close()

	// Run database migrations
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	// Initialize repositories
	stores := service.Stores{
		Packages:     repository.NewPackageRepository(dbPool.Pool),
		Matches:      repository.NewMatchRepository(dbPool.Pool),
		Players:      repository.NewPlayerRepository(dbPool.Pool),
		Draws:        repository.NewDrawRepository(dbPool.Pool),
		Cards:        repository.NewCardRepository(dbPool.Pool),
		Prizes:       repository.NewPrizeRepository(dbPool.Pool),
		Ranks:        repository.NewRankRepository(dbPool.Pool),
		Wallets:      repository.NewWalletRepository(dbPool.Pool),
		Transactions: repository.NewTransactionRepository(dbPool.Pool),
	}

	// Initialize services
	engine, err := service.NewEngine(stores, cfg.Engine, nil, event.LogPublisher{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize engine")
		return 1
	}

	if len(args) == 0 {
		args = []string{"audit"}
	}

	switch args[0] {
	case "migrate":
		log.Info().Msg("Schema is up to date")

	case "audit":
		broken, err := engine.Wallets.ReconcileAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Ledger audit failed")
			return 1
		}
		if len(broken) > 0 {
			log.Error().Ints64("wallet_ids", broken).Msg("Ledger audit found wallets that do not reconcile")
			return 1
		}
		log.Info().Msg("Ledger audit passed")

	case "reset":
		if len(args) < 2 {
			log.Error().Msg("Usage: engine reset weekly|monthly")
			return 2
		}
		if _, err := engine.Ranks.Reset(ctx, model.RankPeriod(args[1])); err != nil {
			log.Error().Err(err).Str("period", args[1]).Msg("Failed to reset rank counters")
			return 1
		}

	default:
		log.Error().Str("command", args[0]).Msg("Unknown command")
		return 2
	}

	return 0
}
