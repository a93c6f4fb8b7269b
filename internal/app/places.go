package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

type PlacesService struct {
	client     domain.PlacesClient
	cache      domain.Cache
	idTTL      time.Duration
	detailsTTL time.Duration
}

func NewPlacesService(c domain.PlacesClient, cache domain.Cache, idTTL, detailsTTL time.Duration) *PlacesService {
	if idTTL <= 0 {
		idTTL = time.Hour
	}
	if detailsTTL <= 0 {
		detailsTTL = 10 * time.Minute
	}
	return &PlacesService{client: c, cache: cache, idTTL: idTTL, detailsTTL: detailsTTL}
}

// GoogleReviews resolves placeID (or q) to place details. placeID wins when
// both are given.
func (s *PlacesService) GoogleReviews(ctx context.Context, placeID, q string) (domain.PlaceDetails, error) {
	id := strings.TrimSpace(placeID)
	if id == "" {
		q = strings.TrimSpace(q)
		if q == "" {
			return domain.PlaceDetails{}, fmt.Errorf("%w: placeId or q required", domain.ErrInvalid)
		}
		var err error
		if id, err = s.resolvePlaceID(ctx, q); err != nil {
			return domain.PlaceDetails{}, err
		}
		if id == "" {
			return domain.PlaceDetails{}, fmt.Errorf("place %w", domain.ErrNotFound)
		}
	}

	d, err := s.details(ctx, id)
	if err != nil {
		return domain.PlaceDetails{}, err
	}
	if d == nil {
		return domain.PlaceDetails{}, fmt.Errorf("place %w", domain.ErrNotFound)
	}
	if d.Reviews == nil {
		d.Reviews = []domain.PlaceReview{}
	}
	return *d, nil
}

// only successful lookups are cached
func (s *PlacesService) resolvePlaceID(ctx context.Context, text string) (string, error) {
	key := "find:" + text
	var id string
	if ok, _ := s.cache.Get(ctx, key, &id); ok && id != "" {
		return id, nil
	}
	id, err := s.client.FindPlaceID(ctx, text)
	if err != nil {
		return "", err
	}
	if id != "" {
		s.store(ctx, key, id, s.idTTL)
	}
	return id, nil
}

func (s *PlacesService) details(ctx context.Context, placeID string) (*domain.PlaceDetails, error) {
	key := "place:" + placeID
	var d domain.PlaceDetails
	if ok, _ := s.cache.Get(ctx, key, &d); ok {
		return &d, nil
	}
	out, err := s.client.PlaceDetails(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if out != nil {
		s.store(ctx, key, out, s.detailsTTL)
	}
	return out, nil
}

// store writes through to the cache; a failed write only costs a refetch.
func (s *PlacesService) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, v, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("places cache write failed")
	}
}
