package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/hostaway"
	server "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/adapters/memcache"
	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/adapters/places"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/adapters/scheduler"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/seed"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.SetLevel(cfg.LogLevel)

	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// store
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := storage.Open(openCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store open failed")
	}

	cache := newCache(ctx, cfg)

	// review sources
	var remote domain.ReviewSource
	if cfg.HostawayEnabled() {
		c, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccount, cfg.HostawayKey, cfg.HostawayRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
		}
		remote = c
	}

	// services
	syncSvc := app.NewSyncService(remote, []domain.ReviewSource{seed.Source{}}, store,
		app.WithFetchTimeout(cfg.HostawayTimeout),
		app.WithWorkers(cfg.Workers),
	)
	q := app.NewQueryService(store)
	handlers := &server.Handlers{
		Sync:       syncSvc,
		Moderation: app.NewModerationService(store),
		Queries:    q,
		Reports:    app.NewReportService(store),
		Listings:   app.NewListingService(store, q, seed.Listings),
		Places:     app.NewPlacesService(places.New(cfg.PlacesBase, cfg.PlacesKey), cache, cfg.PlaceIDTTL, cfg.PlaceDetailsTTL),
		Health:     store.Ping,
	}

	var sched *scheduler.SyncScheduler
	if cfg.SyncCron != "" {
		sched = scheduler.NewSyncScheduler(syncSvc, cfg.SyncCron, 2*time.Minute)
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("sync scheduler failed to start")
		}
	}

	// http
	srv := server.New(cfg.AllowedOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(observability.InitRegistry()))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if sched != nil {
		sched.Stop()
	}
	if err := cache.Clear(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("cache clear failed")
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("store close failed")
	}
	log.Info().Msg("bye")
}

// newCache picks the Places cache. An unreachable Redis degrades to the
// in-process cache rather than failing startup.
func newCache(ctx context.Context, cfg shared.Config) domain.Cache {
	switch cfg.CacheDriver {
	case "redis":
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rc.Ping(pctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, using in-memory cache")
			_ = rc.Close()
			return memcache.New()
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache ok")
		return rc
	case "none", "off":
		return memcache.Noop{}
	}
	return memcache.New()
}
