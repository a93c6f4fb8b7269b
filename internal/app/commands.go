package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

type SyncService struct {
	remote       domain.ReviewSource // nil in mock-only mode
	seeds        []domain.ReviewSource
	repo         domain.ReviewRepository
	fetchTimeout time.Duration
	workers      int64
	now          func() time.Time
}

type SyncOption func(*SyncService)

func WithFetchTimeout(d time.Duration) SyncOption {
	return func(s *SyncService) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func WithWorkers(n int) SyncOption {
	return func(s *SyncService) {
		if n > 0 {
			s.workers = int64(n)
		}
	}
}

func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncService) { s.now = now }
}

// NewSyncService wires the reconciliation engine. remote may be nil.
func NewSyncService(remote domain.ReviewSource, seeds []domain.ReviewSource, repo domain.ReviewRepository, opts ...SyncOption) *SyncService {
	s := &SyncService{
		remote:       remote,
		seeds:        seeds,
		repo:         repo,
		fetchTimeout: 5 * time.Second,
		workers:      8,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type SyncResult struct {
	Reviews  []domain.Review
	Fetched  int
	Upserted int
	Failed   int
	Fallback bool // remote source skipped or failed
}

// Sync pulls remote and seed payloads, normalizes them and upserts each one
// independently. Remote failures degrade to seed-only; per-record failures are
// logged and counted. Only the final read of the store can fail the call.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	var raws []map[string]any

	if s.remote == nil {
		res.Fallback = true
		log.Warn().Msg("review source credentials missing, using seed data only")
	} else {
		fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		rs, err := s.remote.FetchReviews(fctx)
		cancel()
		if err != nil {
			res.Fallback = true
			observability.ObserveSync(s.remote.Name(), "fallback")
			log.Warn().Err(err).Str("source", s.remote.Name()).Msg("remote fetch failed, falling back to seed data")
		} else {
			observability.ObserveSync(s.remote.Name(), "ok")
			log.Info().Str("source", s.remote.Name()).Int("count", len(rs)).Msg("remote reviews fetched")
			raws = append(raws, rs...)
		}
	}

	for _, src := range s.seeds {
		rs, err := src.FetchReviews(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", src.Name()).Msg("seed source failed")
			continue
		}
		raws = append(raws, rs...)
	}
	res.Fetched = len(raws)

	batch := dedupeByExternalID(mapReviews(raws, s.now()))
	res.Upserted, res.Failed = s.reconcile(ctx, batch)

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("list reviews after sync: %w", err)
	}
	res.Reviews = all
	log.Info().
		Int("fetched", res.Fetched).
		Int("upserted", res.Upserted).
		Int("failed", res.Failed).
		Bool("fallback", res.Fallback).
		Msg("review sync completed")
	return res, nil
}

// reconcile upserts with bounded concurrency. Records are independent, so no
// ordering is imposed between them.
func (s *SyncService) reconcile(ctx context.Context, batch []domain.Review) (ok, failed int) {
	sem := semaphore.NewWeighted(s.workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, r := range batch {
		r := r
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			failed++
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			err := s.repo.UpsertReview(ctx, r)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				observability.ObserveIngest("failed")
				log.Warn().Err(err).Str("externalId", r.ExternalID).Msg("review upsert failed")
				return
			}
			ok++
			observability.ObserveIngest("ok")
		}()
	}
	wg.Wait()
	return ok, failed
}

// dedupeByExternalID keeps the last occurrence of each id, preserving first-seen order.
func dedupeByExternalID(in []domain.Review) []domain.Review {
	idx := make(map[string]int, len(in))
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		if i, ok := idx[r.ExternalID]; ok {
			out[i] = r
			continue
		}
		idx[r.ExternalID] = len(out)
		out = append(out, r)
	}
	return out
}

type ModerationService struct {
	repo domain.ReviewRepository
}

func NewModerationService(r domain.ReviewRepository) *ModerationService {
	return &ModerationService{repo: r}
}

func (s *ModerationService) ToggleApproved(ctx context.Context, id string) (domain.Review, error) {
	return s.toggle(ctx, id, domain.FlagApproved)
}

func (s *ModerationService) ToggleShowPublic(ctx context.Context, id string) (domain.Review, error) {
	return s.toggle(ctx, id, domain.FlagShowPublic)
}

// toggle is read-modify-write; concurrent toggles on one review are last-write-wins.
func (s *ModerationService) toggle(ctx context.Context, id string, flag domain.ModerationFlag) (domain.Review, error) {
	cur, err := s.repo.GetReview(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Review{}, err
		}
		return domain.Review{}, fmt.Errorf("load review %s: %w", id, err)
	}
	updated, err := s.repo.SetFlag(ctx, id, flag, !cur.Flag(flag))
	if err != nil {
		return domain.Review{}, err
	}
	log.Info().Str("id", id).Str("flag", string(flag)).Bool("value", updated.Flag(flag)).Msg("moderation flag toggled")
	return updated, nil
}
