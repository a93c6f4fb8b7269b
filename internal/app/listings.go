package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

type ListingService struct {
	listings domain.ListingRepository
	reviews  *QueryService
	seed     func() ([]domain.Listing, error)
}

func NewListingService(l domain.ListingRepository, q *QueryService, seed func() ([]domain.Listing, error)) *ListingService {
	return &ListingService{listings: l, reviews: q, seed: seed}
}

func (s *ListingService) List(ctx context.Context) ([]domain.Listing, error) {
	out, err := s.listings.ListListings(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Listing{}
	}
	return out, nil
}

// Seed upserts the bundled listings by name; safe to repeat.
func (s *ListingService) Seed(ctx context.Context) (int, error) {
	rows, err := s.seed()
	if err != nil {
		return 0, fmt.Errorf("load seed listings: %w", err)
	}
	for _, l := range rows {
		if err := s.listings.UpsertListing(ctx, l); err != nil {
			return 0, fmt.Errorf("seed listing %q: %w", l.ListingName, err)
		}
	}
	log.Info().Int("count", len(rows)).Msg("listings seeded")
	return len(rows), nil
}

func (s *ListingService) PublicListing(ctx context.Context, name string) (domain.PublicListing, error) {
	l, err := s.listings.GetListingByName(ctx, name)
	if err != nil {
		return domain.PublicListing{}, err
	}
	rs, err := s.reviews.PublicReviews(ctx, name)
	if err != nil {
		return domain.PublicListing{}, err
	}
	return domain.PublicListing{Listing: l, Reviews: rs}, nil
}

func (s *ListingService) SetPlaceID(ctx context.Context, id, placeID string) (domain.Listing, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return domain.Listing{}, fmt.Errorf("%w: placeId required", domain.ErrInvalid)
	}
	l, err := s.listings.SetPlaceID(ctx, id, placeID)
	if err != nil {
		return domain.Listing{}, err
	}
	log.Info().Str("id", id).Str("placeId", placeID).Msg("listing place id updated")
	return l, nil
}
