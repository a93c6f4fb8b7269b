package app_test

import (
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

func TestParseReviewFilter_Defaults(t *testing.T) {
	f, err := app.ParseReviewFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, domain.SortSpec{Field: "submittedAt", Desc: true}, f.Sort)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, app.DefaultPageLimit, f.Limit)
	assert.Empty(t, f.Listing)
	assert.Nil(t, f.MinRating)
	assert.Nil(t, f.Approved)
	assert.Nil(t, f.From)
}

func TestParseReviewFilter_AllFields(t *testing.T) {
	v := url.Values{
		"listing":    {"1B Camden Lock Studio"},
		"channel":    {"Airbnb"},
		"category":   {"cleanliness"},
		"minRating":  {"3"},
		"maxRating":  {"4.5"},
		"approved":   {"true"},
		"showPublic": {"false"},
		"from":       {"2024-09-01"},
		"to":         {"2024-09-30"},
		"q":          {"  heating "},
		"sort":       {"-rating"},
		"page":       {"3"},
		"limit":      {"20"},
	}
	f, err := app.ParseReviewFilter(v)
	require.NoError(t, err)

	assert.Equal(t, "1B Camden Lock Studio", f.Listing)
	assert.Equal(t, "Airbnb", f.Channel)
	assert.Equal(t, "cleanliness", f.Category)
	assert.Equal(t, 3.0, *f.MinRating)
	assert.Equal(t, 4.5, *f.MaxRating)
	assert.True(t, *f.Approved)
	assert.False(t, *f.ShowPublic)
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2024, 9, 30, 23, 59, 59, 999999999, time.UTC), *f.To)
	assert.Equal(t, "heating", f.Q)
	assert.Equal(t, domain.SortSpec{Field: "rating", Desc: true}, f.Sort)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 40, f.Offset())
}

func TestParseReviewFilter_Clamping(t *testing.T) {
	f, err := app.ParseReviewFilter(url.Values{"listing": {"All"}, "page": {"-4"}, "limit": {"0"}, "sort": {"guestName"}})
	require.NoError(t, err)
	assert.Empty(t, f.Listing)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, app.DefaultPageLimit, f.Limit)
	assert.Equal(t, domain.SortSpec{Field: "guestName"}, f.Sort)

	f, err = app.ParseReviewFilter(url.Values{"limit": {"100000"}})
	require.NoError(t, err)
	assert.Equal(t, app.MaxPageLimit, f.Limit)
}

func TestParseReviewFilter_Invalid(t *testing.T) {
	for name, v := range map[string]url.Values{
		"minRating": {"minRating": {"lots"}},
		"approved":  {"approved": {"maybe"}},
		"from":      {"from": {"01/02/2024"}},
		"to":        {"to": {"soon"}},
		"sort":      {"sort": {"-password"}},
		"page":      {"page": {"two"}},
		"limit":     {"limit": {"x"}},
		"huge page": {"page": {"4611686018427387905"}, "limit": {"50"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := app.ParseReviewFilter(v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalid))
		})
	}
}

func TestReviewFilter_OffsetSaturates(t *testing.T) {
	f := domain.ReviewFilter{Page: math.MaxInt, Limit: 50}
	assert.Equal(t, math.MaxInt, f.Offset())
	f = domain.ReviewFilter{Page: 3, Limit: 50}
	assert.Equal(t, 100, f.Offset())
}

func TestParseDateWindow_RFC3339(t *testing.T) {
	w, err := app.ParseDateWindow(url.Values{"to": {"2024-09-30T10:00:00+01:00"}})
	require.NoError(t, err)
	assert.Nil(t, w.From)
	require.NotNil(t, w.To)
	assert.Equal(t, time.Date(2024, 9, 30, 9, 0, 0, 0, time.UTC), *w.To)
}
