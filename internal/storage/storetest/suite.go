// Package storetest holds the behavioural contract every review store must
// satisfy. Backends call Run from their own tests with a factory that hands
// out an empty store.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flex_reviews/internal/domain"
)

type Store interface {
	domain.ReviewRepository
	domain.ListingRepository
}

// Factory returns an empty store; cleanup is registered on t.
type Factory func(t *testing.T) Store

func Run(t *testing.T, newStore Factory) {
	t.Run("UpsertIsIdempotent", func(t *testing.T) { testUpsertIdempotent(t, newStore(t)) })
	t.Run("UpsertPreservesModeration", func(t *testing.T) { testUpsertPreservesModeration(t, newStore(t)) })
	t.Run("SetFlagUnknownID", func(t *testing.T) { testSetFlagUnknown(t, newStore(t)) })
	t.Run("FindReviewsFilters", func(t *testing.T) { testFindFilters(t, newStore(t)) })
	t.Run("FindReviewsSortAndPage", func(t *testing.T) { testSortAndPage(t, newStore(t)) })
	t.Run("MinRatingAboveScale", func(t *testing.T) { testMinRatingAboveScale(t, newStore(t)) })
	t.Run("Performance", func(t *testing.T) { testPerformance(t, newStore(t)) })
	t.Run("Trends", func(t *testing.T) { testTrends(t, newStore(t)) })
	t.Run("TrendIntervals", func(t *testing.T) { testTrendIntervals(t, newStore(t)) })
	t.Run("EmptyReports", func(t *testing.T) { testEmptyReports(t, newStore(t)) })
	t.Run("Listings", func(t *testing.T) { testListings(t, newStore(t)) })
}

/********** fixtures **********/

func f64(v float64) *float64 { return &v }
func yes() *bool             { b := true; return &b }
func no() *bool              { b := false; return &b }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func review(ext, listing string, rating *float64, at time.Time) domain.Review {
	return domain.Review{
		ExternalID:   ext,
		ListingName:  listing,
		Channel:      domain.ChannelUnknown,
		Type:         "guest-to-host",
		Status:       "published",
		Rating:       rating,
		Categories:   []domain.Category{},
		PublicReview: "review " + ext,
		GuestName:    "Guest",
		SubmittedAt:  at,
	}
}

func mustUpsert(t *testing.T, s Store, rs ...domain.Review) {
	t.Helper()
	for _, r := range rs {
		require.NoError(t, s.UpsertReview(context.Background(), r))
	}
}

func byExternal(t *testing.T, s Store, ext string) domain.Review {
	t.Helper()
	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	for _, r := range all {
		if r.ExternalID == ext {
			return r
		}
	}
	t.Fatalf("review %s not stored", ext)
	return domain.Review{}
}

func externalIDs(rs []domain.Review) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ExternalID
	}
	return out
}

/********** cases **********/

func testUpsertIdempotent(t *testing.T, s Store) {
	ctx := context.Background()
	a := review("1", "Shoreditch", f64(5), day("2024-08-21 10:00:00"))
	a.Categories = []domain.Category{{Category: "cleanliness", Rating: f64(8)}, {Category: "value", Rating: nil}}
	b := review("2", "Camden", nil, day("2024-08-22 10:00:00"))

	mustUpsert(t, s, a, b)
	first, err := s.ListAll(ctx)
	require.NoError(t, err)
	mustUpsert(t, s, a, b)
	second, err := s.ListAll(ctx)
	require.NoError(t, err)

	require.Len(t, second, 2)
	assert.Equal(t, externalIDs(first), externalIDs(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Rating, second[i].Rating)
		assert.Equal(t, first[i].Categories, second[i].Categories)
		assert.True(t, first[i].SubmittedAt.Equal(second[i].SubmittedAt))
		assert.True(t, first[i].CreatedAt.Equal(second[i].CreatedAt))
	}

	got := byExternal(t, s, "1")
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "cleanliness", got.Categories[0].Category)
	assert.Nil(t, got.Categories[1].Rating)
	assert.Nil(t, byExternal(t, s, "2").Rating)
}

func testUpsertPreservesModeration(t *testing.T, s Store) {
	ctx := context.Background()
	r := review("42", "Shoreditch", f64(4), day("2024-08-21 10:00:00"))
	mustUpsert(t, s, r)
	stored := byExternal(t, s, "42")
	assert.False(t, stored.Approved)
	assert.False(t, stored.ShowPublic)

	_, err := s.SetFlag(ctx, stored.ID, domain.FlagApproved, true)
	require.NoError(t, err)
	_, err = s.SetFlag(ctx, stored.ID, domain.FlagShowPublic, true)
	require.NoError(t, err)

	r.PublicReview = "edited text"
	r.Rating = f64(3)
	r.Approved, r.ShowPublic = false, false
	mustUpsert(t, s, r)

	got, err := s.GetReview(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, got.Approved)
	assert.True(t, got.ShowPublic)
	assert.Equal(t, "edited text", got.PublicReview)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 3.0, *got.Rating)
}

func testSetFlagUnknown(t *testing.T, s Store) {
	ctx := context.Background()
	_, err := s.SetFlag(ctx, unknownID, domain.FlagApproved, true)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	_, err = s.GetReview(ctx, unknownID)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

// unknownID is well-formed for every backend's id scheme but never issued.
const unknownID = "000000000000000000000000"

func seedQuerySet(t *testing.T, s Store) {
	t.Helper()
	a := review("a", "Shoreditch Heights", f64(5), day("2024-08-01 09:00:00"))
	a.Channel = domain.ChannelAirbnb
	a.PublicReview = "Spotless flat, great host"
	a.GuestName = "Shane"
	a.Categories = []domain.Category{{Category: "cleanliness", Rating: f64(10)}}

	b := review("b", "Camden Studio", f64(3), day("2024-08-15 12:00:00"))
	b.Channel = domain.ChannelBooking
	b.PublicReview = "Noisy street"
	b.GuestName = "Kenji"
	b.Categories = []domain.Category{{Category: "noise", Rating: f64(3)}}

	c := review("c", "Camden Studio", f64(4), day("2024-08-31 23:30:00"))
	c.Channel = domain.ChannelDirect
	c.PublicReview = "Lovely stay 100% recommended"
	c.GuestName = "Lucia"

	d := review("d", "Kensington", nil, day("2024-09-05 08:00:00"))
	d.GuestName = "SHANE_2"

	mustUpsert(t, s, a, b, c, d)
	_, err := s.SetFlag(context.Background(), byExternal(t, s, "c").ID, domain.FlagApproved, true)
	require.NoError(t, err)
}

func testFindFilters(t *testing.T, s Store) {
	ctx := context.Background()
	seedQuerySet(t, s)
	from := day("2024-08-15 00:00:00")
	to := day("2024-08-31 23:59:59")

	cases := []struct {
		name string
		f    domain.ReviewFilter
		want []string
	}{
		{"all", domain.ReviewFilter{}, []string{"a", "b", "c", "d"}},
		{"listing", domain.ReviewFilter{Listing: "Camden Studio"}, []string{"b", "c"}},
		{"channel", domain.ReviewFilter{Channel: "Airbnb"}, []string{"a"}},
		{"category", domain.ReviewFilter{Category: "noise"}, []string{"b"}},
		{"minRating", domain.ReviewFilter{MinRating: f64(4)}, []string{"a", "c"}},
		{"maxRating", domain.ReviewFilter{MaxRating: f64(3)}, []string{"b"}},
		{"range", domain.ReviewFilter{MinRating: f64(3), MaxRating: f64(4)}, []string{"b", "c"}},
		{"approved", domain.ReviewFilter{Approved: yes()}, []string{"c"}},
		{"notApproved", domain.ReviewFilter{Approved: no()}, []string{"a", "b", "d"}},
		{"showPublic", domain.ReviewFilter{ShowPublic: yes()}, []string{}},
		{"window", domain.ReviewFilter{From: &from, To: &to}, []string{"b", "c"}},
		{"qText", domain.ReviewFilter{Q: "spotless"}, []string{"a"}},
		{"qGuestCaseInsensitive", domain.ReviewFilter{Q: "shane"}, []string{"a", "d"}},
		{"qListing", domain.ReviewFilter{Q: "kensington"}, []string{"d"}},
		{"qLiteralPercent", domain.ReviewFilter{Q: "100%"}, []string{"c"}},
		{"qLiteralUnderscore", domain.ReviewFilter{Q: "e_2"}, []string{"d"}},
		{"combined", domain.ReviewFilter{Listing: "Camden Studio", MinRating: f64(4)}, []string{"c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.f.Sort = domain.SortSpec{Field: "submittedAt"}
			got, err := s.FindReviews(ctx, tc.f)
			require.NoError(t, err)
			assert.Equal(t, tc.want, externalIDs(got))

			n, err := s.CountReviews(ctx, tc.f)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tc.want)), n)
		})
	}
}

func testSortAndPage(t *testing.T, s Store) {
	ctx := context.Background()
	seedQuerySet(t, s)

	got, err := s.FindReviews(ctx, domain.ReviewFilter{Sort: domain.SortSpec{Field: "submittedAt", Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, externalIDs(got))

	got, err = s.FindReviews(ctx, domain.ReviewFilter{Sort: domain.SortSpec{Field: "rating", Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, externalIDs(got), "null rating sorts last descending")

	got, err = s.FindReviews(ctx, domain.ReviewFilter{Sort: domain.SortSpec{Field: "listingName"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d", "a"}, externalIDs(got))

	page := domain.ReviewFilter{Sort: domain.SortSpec{Field: "submittedAt"}, Page: 2, Limit: 3}
	got, err = s.FindReviews(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, externalIDs(got))
	n, err := s.CountReviews(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "total ignores pagination")

	page.Page = 5
	got, err = s.FindReviews(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, got)

	// offset would overflow int
	page = domain.ReviewFilter{Sort: domain.SortSpec{Field: "submittedAt"}, Page: math.MaxInt/50 + 2, Limit: 50}
	got, err = s.FindReviews(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testMinRatingAboveScale(t *testing.T, s Store) {
	ctx := context.Background()
	seedQuerySet(t, s)
	f := domain.ReviewFilter{MinRating: f64(8), Page: 1, Limit: 50}
	got, err := s.FindReviews(ctx, f)
	require.NoError(t, err)
	assert.Empty(t, got)
	n, err := s.CountReviews(ctx, f)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testPerformance(t *testing.T, s Store) {
	ctx := context.Background()
	seedQuerySet(t, s)
	_, err := s.SetFlag(ctx, byExternal(t, s, "c").ID, domain.FlagShowPublic, true)
	require.NoError(t, err)

	rows, err := s.Performance(ctx, domain.DateWindow{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Shoreditch Heights", rows[0].ListingName)
	require.NotNil(t, rows[0].AvgRating)
	assert.InDelta(t, 5.0, *rows[0].AvgRating, 1e-9)

	assert.Equal(t, "Camden Studio", rows[1].ListingName)
	require.NotNil(t, rows[1].AvgRating)
	assert.InDelta(t, 3.5, *rows[1].AvgRating, 1e-9)
	assert.Equal(t, int64(2), rows[1].Total)
	assert.Equal(t, int64(1), rows[1].ApprovedCount)
	assert.Equal(t, int64(1), rows[1].PublishedCount)

	assert.Equal(t, "Kensington", rows[2].ListingName, "unrated listing sorts last")
	assert.Nil(t, rows[2].AvgRating)
	assert.Equal(t, int64(1), rows[2].Total)

	from := day("2024-08-10 00:00:00")
	to := day("2024-08-20 00:00:00")
	rows, err = s.Performance(ctx, domain.DateWindow{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Total)
}

func testTrends(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s,
		review("t1", "Shoreditch", f64(4), day("2024-08-01 08:00:00")),
		review("t2", "Shoreditch", f64(5), day("2024-08-01 21:00:00")),
		review("t3", "Shoreditch", f64(3), day("2024-08-02 10:00:00")),
		review("t4", "Camden", f64(1), day("2024-08-02 11:00:00")),
	)

	pts, err := s.Trends(ctx, domain.TrendQuery{Listing: "Shoreditch", Interval: domain.IntervalDay})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "2024-08-01", pts[0].Day)
	require.NotNil(t, pts[0].AvgRating)
	assert.InDelta(t, 4.5, *pts[0].AvgRating, 1e-9)
	assert.Equal(t, int64(2), pts[0].Count)
	assert.Equal(t, "2024-08-02", pts[1].Day)
	require.NotNil(t, pts[1].AvgRating)
	assert.InDelta(t, 3.0, *pts[1].AvgRating, 1e-9)
	assert.Equal(t, int64(1), pts[1].Count)

	pts, err = s.Trends(ctx, domain.TrendQuery{Interval: domain.IntervalDay})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, int64(2), pts[1].Count, "unscoped trends include every listing")
}

func testTrendIntervals(t *testing.T, s Store) {
	ctx := context.Background()
	mustUpsert(t, s,
		review("w1", "L", f64(2), day("2024-12-30 10:00:00")), // ISO 2025-W01
		review("w2", "L", f64(4), day("2025-01-02 10:00:00")), // ISO 2025-W01
		review("w3", "L", nil, day("2025-01-20 10:00:00")),
	)

	weeks, err := s.Trends(ctx, domain.TrendQuery{Interval: domain.IntervalWeek})
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, "2025-W01", weeks[0].Day)
	assert.Equal(t, int64(2), weeks[0].Count)
	assert.Equal(t, "2025-W04", weeks[1].Day)
	assert.Nil(t, weeks[1].AvgRating)

	months, err := s.Trends(ctx, domain.TrendQuery{Interval: domain.IntervalMonth})
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-12", months[0].Day)
	assert.Equal(t, "2025-01", months[1].Day)
	assert.Equal(t, int64(2), months[1].Count)
	require.NotNil(t, months[1].AvgRating)
	assert.InDelta(t, 4.0, *months[1].AvgRating, 1e-9)
}

func testEmptyReports(t *testing.T, s Store) {
	ctx := context.Background()
	rows, err := s.Performance(ctx, domain.DateWindow{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	pts, err := s.Trends(ctx, domain.TrendQuery{Interval: domain.IntervalDay})
	require.NoError(t, err)
	assert.Empty(t, pts)
	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testListings(t *testing.T, s Store) {
	ctx := context.Background()
	b := domain.Listing{ListingName: "B Flat", Slug: "b-flat", City: "London", Bedrooms: 2,
		Gallery: []string{"g1"}, Highlights: []string{"wifi"}}
	a := domain.Listing{ListingName: "A Studio", Slug: "a-studio", NightlyFrom: 120.5}
	require.NoError(t, s.UpsertListing(ctx, b))
	require.NoError(t, s.UpsertListing(ctx, a))

	ls, err := s.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, ls, 2)
	assert.Equal(t, "A Studio", ls[0].ListingName)
	assert.Equal(t, 120.5, ls[0].NightlyFrom)

	got, err := s.GetListingByName(ctx, "B Flat")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, got.Gallery)
	assert.Equal(t, 2, got.Bedrooms)

	updated, err := s.SetPlaceID(ctx, got.ID, "ChIJ123")
	require.NoError(t, err)
	assert.Equal(t, "ChIJ123", updated.PlaceID)

	// reseeding by name keeps id and place id
	b.City = "Leeds"
	require.NoError(t, s.UpsertListing(ctx, b))
	again, err := s.GetListingByName(ctx, "B Flat")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.Equal(t, "ChIJ123", again.PlaceID)
	assert.Equal(t, "Leeds", again.City)
	ls, err = s.ListListings(ctx)
	require.NoError(t, err)
	assert.Len(t, ls, 2)

	_, err = s.GetListingByName(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	_, err = s.SetPlaceID(ctx, unknownID, "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}
