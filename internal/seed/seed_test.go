package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/seed"
)

var _ domain.ReviewSource = seed.Source{}

func TestSource_FetchReviews(t *testing.T) {
	rs, err := seed.Source{}.FetchReviews(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rs)
	for _, r := range rs {
		assert.NotNil(t, r["id"], "every mock review carries an id")
	}

	// fresh decode each call
	rs[0]["listingName"] = "mutated"
	again, err := seed.Source{}.FetchReviews(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0]["listingName"])
}

func TestListings(t *testing.T) {
	ls, err := seed.Listings()
	require.NoError(t, err)
	require.Len(t, ls, 3)
	names := map[string]bool{}
	for _, l := range ls {
		assert.NotEmpty(t, l.Slug)
		names[l.ListingName] = true
	}
	assert.True(t, names["1B Camden Lock Studio"])
}
