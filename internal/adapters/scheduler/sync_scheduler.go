// Package scheduler runs the review sync on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/app"
)

// Syncer is the part of app.SyncService the scheduler needs.
type Syncer interface {
	Sync(ctx context.Context) (app.SyncResult, error)
}

type SyncScheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	spec    string
	timeout time.Duration
}

// NewSyncScheduler schedules syncer on spec (standard 5-field cron or a
// descriptor such as "@every 15m"). Overlapping runs are skipped.
func NewSyncScheduler(syncer Syncer, spec string, timeout time.Duration) *SyncScheduler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &SyncScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		syncer:  syncer,
		spec:    spec,
		timeout: timeout,
	}
}

func (s *SyncScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		log.Error().Err(err).Str("spec", s.spec).Msg("failed to add review sync job")
		return err
	}
	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("review sync scheduler started")
	return nil
}

// Stop waits for a running sync to finish.
func (s *SyncScheduler) Stop() {
	log.Info().Msg("stopping review sync scheduler")
	<-s.cron.Stop().Done()
}

func (s *SyncScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.syncer.Sync(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled review sync failed")
		return
	}
	log.Info().
		Int("upserted", res.Upserted).
		Int("failed", res.Failed).
		Bool("fallback", res.Fallback).
		Msg("scheduled review sync done")
}
