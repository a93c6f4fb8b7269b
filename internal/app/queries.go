package app

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"flex_reviews/internal/domain"
)

type QueryService struct {
	repo domain.ReviewRepository
}

func NewQueryService(r domain.ReviewRepository) *QueryService {
	return &QueryService{repo: r}
}

// ListReviews returns one page plus the total for the same filter. The two
// store calls are independent and run concurrently.
func (s *QueryService) ListReviews(ctx context.Context, f domain.ReviewFilter) (domain.ReviewPage, error) {
	var (
		items []domain.Review
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.FindReviews(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountReviews(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ReviewPage{}, err
	}
	if items == nil {
		items = []domain.Review{}
	}
	return domain.ReviewPage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// PublicReviews lists approved and published reviews of one listing, newest first.
func (s *QueryService) PublicReviews(ctx context.Context, listingName string) ([]domain.Review, error) {
	yes := true
	out, err := s.repo.FindReviews(ctx, domain.ReviewFilter{
		Listing:    listingName,
		Approved:   &yes,
		ShowPublic: &yes,
		Sort:       domain.SortSpec{Field: "submittedAt", Desc: true},
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Review{}
	}
	return out, nil
}

type ReportService struct {
	repo domain.ReviewRepository
}

func NewReportService(r domain.ReviewRepository) *ReportService {
	return &ReportService{repo: r}
}

// Performance groups reviews by listing, best average first.
func (s *ReportService) Performance(ctx context.Context, w domain.DateWindow) ([]domain.ListingPerformance, error) {
	out, err := s.repo.Performance(ctx, w)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ListingPerformance{}
	}
	return out, nil
}

// Trends buckets reviews by UTC calendar period, oldest first.
func (s *ReportService) Trends(ctx context.Context, listing string, w domain.DateWindow, interval domain.TrendInterval) ([]domain.TrendPoint, error) {
	listing = strings.TrimSpace(listing)
	if listing == AllListings {
		listing = ""
	}
	if interval == "" {
		interval = domain.IntervalDay
	}
	out, err := s.repo.Trends(ctx, domain.TrendQuery{Listing: listing, Window: w, Interval: interval})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.TrendPoint{}
	}
	return out, nil
}
