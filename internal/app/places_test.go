package app_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flex_reviews/internal/adapters/memcache"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

type countingPlaces struct {
	finds, details int
	ids            map[string]string
	places         map[string]*domain.PlaceDetails
	err            error
}

func (c *countingPlaces) FindPlaceID(_ context.Context, text string) (string, error) {
	c.finds++
	return c.ids[text], c.err
}

func (c *countingPlaces) PlaceDetails(_ context.Context, id string) (*domain.PlaceDetails, error) {
	c.details++
	if c.err != nil {
		return nil, c.err
	}
	return c.places[id], nil
}

func newPlaces() *countingPlaces {
	return &countingPlaces{
		ids: map[string]string{"Camden Lock": "p-1"},
		places: map[string]*domain.PlaceDetails{
			"p-1": {PlaceID: "p-1", Name: "Camden Lock Studio", Rating: ptr(4.6), Reviews: []domain.PlaceReview{{AuthorName: "Jo", Rating: 5}}},
			"p-2": {PlaceID: "p-2", Name: "No Reviews Yet"},
		},
	}
}

func TestGoogleReviews_CacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	client := newPlaces()
	svc := app.NewPlacesService(client, memcache.New(), 0, 0)

	d, err := svc.GoogleReviews(ctx, "", "Camden Lock")
	require.NoError(t, err)
	assert.Equal(t, "p-1", d.PlaceID)
	require.Len(t, d.Reviews, 1)
	assert.Equal(t, 1, client.finds)
	assert.Equal(t, 1, client.details)

	d, err = svc.GoogleReviews(ctx, "", "Camden Lock")
	require.NoError(t, err)
	assert.Equal(t, "Camden Lock Studio", d.Name)
	assert.Equal(t, 1, client.finds, "place id served from cache")
	assert.Equal(t, 1, client.details, "details served from cache")
}

func TestGoogleReviews_PlaceIDWins(t *testing.T) {
	client := newPlaces()
	svc := app.NewPlacesService(client, memcache.Noop{}, 0, 0)

	d, err := svc.GoogleReviews(context.Background(), "p-2", "Camden Lock")
	require.NoError(t, err)
	assert.Equal(t, "p-2", d.PlaceID)
	assert.NotNil(t, d.Reviews)
	assert.Zero(t, client.finds)
}

func TestGoogleReviews_Errors(t *testing.T) {
	ctx := context.Background()
	client := newPlaces()
	svc := app.NewPlacesService(client, memcache.New(), 0, 0)

	_, err := svc.GoogleReviews(ctx, " ", "")
	assert.True(t, errors.Is(err, domain.ErrInvalid))

	_, err = svc.GoogleReviews(ctx, "", "Atlantis")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.GoogleReviews(ctx, "p-404", "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// misses are not cached
	_, _ = svc.GoogleReviews(ctx, "", "Atlantis")
	assert.Equal(t, 2, client.finds)

	client.err = errors.New("upstream down")
	_, err = svc.GoogleReviews(ctx, "p-9", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

type brokenCache struct{ memcache.Noop }

func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("redis: connection refused")
}

func TestGoogleReviews_CacheWriteFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	svc := app.NewPlacesService(newPlaces(), brokenCache{}, 0, 0)
	d, err := svc.GoogleReviews(context.Background(), "", "Camden Lock")
	require.NoError(t, err)
	assert.Equal(t, "p-1", d.PlaceID)

	assert.Contains(t, buf.String(), "places cache write failed")
	assert.Contains(t, buf.String(), "place:p-1")
	assert.Contains(t, buf.String(), "find:Camden Lock")
}
