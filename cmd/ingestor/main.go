package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/hostaway"
	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/seed"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage"
)

// ingestor runs one review sync plus a listing seed against the configured
// store and exits. Useful for cron jobs and first-time setup.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.SetLevel(cfg.LogLevel)

	log.Info().
		Str("store", cfg.StoreDriver).
		Bool("hostaway", cfg.HostawayEnabled()).
		Int("workers", cfg.Workers).
		Msg("ingestor starting")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	var remote domain.ReviewSource
	if cfg.HostawayEnabled() {
		c, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccount, cfg.HostawayKey, cfg.HostawayRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
		}
		remote = c
	}

	n, err := app.NewListingService(store, app.NewQueryService(store), seed.Listings).Seed(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing seed failed")
	} else {
		log.Info().Int("listings", n).Msg("listing seed ok")
	}

	res, err := app.NewSyncService(remote, []domain.ReviewSource{seed.Source{}}, store,
		app.WithFetchTimeout(cfg.HostawayTimeout),
		app.WithWorkers(cfg.Workers),
	).Sync(ctx)
	if err != nil {
		log.Error().Err(err).Msg("review sync failed")
		return
	}
	log.Info().
		Int("fetched", res.Fetched).
		Int("upserted", res.Upserted).
		Int("failed", res.Failed).
		Bool("fallback", res.Fallback).
		Int("stored", len(res.Reviews)).
		Msg("ingestion completed")
}
