package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flex_reviews/internal/adapters/export"
	server "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/adapters/memcache"
	"flex_reviews/internal/adapters/places"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/seed"
	"flex_reviews/internal/storage/memory"
)

type fakePlaces struct{ details map[string]*domain.PlaceDetails }

func (f fakePlaces) FindPlaceID(_ context.Context, text string) (string, error) {
	if strings.Contains(text, "Camden") {
		return "cam-1", nil
	}
	return "", nil
}

func (f fakePlaces) PlaceDetails(_ context.Context, id string) (*domain.PlaceDetails, error) {
	return f.details[id], nil
}

type envelope struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Meta    map[string]any  `json:"meta"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T, health func(context.Context) error) *httptest.Server {
	t.Helper()
	repo := memory.New()
	q := app.NewQueryService(repo)
	fake := fakePlaces{details: map[string]*domain.PlaceDetails{
		"cam-1": {PlaceID: "cam-1", Name: "Camden Lock Studio"},
	}}

	srv := server.New([]string{"http://localhost:5173"})
	srv.MountHandlers(&server.Handlers{
		Sync:       app.NewSyncService(nil, []domain.ReviewSource{seed.Source{}}, repo),
		Moderation: app.NewModerationService(repo),
		Queries:    q,
		Reports:    app.NewReportService(repo),
		Listings:   app.NewListingService(repo, q, seed.Listings),
		Places:     app.NewPlacesService(fake, memcache.Noop{}, 0, 0),
		Health:     health,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, u string, body io.Reader, hdr map[string]string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, u, body)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return res, env
}

func syncAll(t *testing.T, ts *httptest.Server) []domain.Review {
	t.Helper()
	res, env := do(t, http.MethodGet, ts.URL+"/api/reviews/hostaway", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var rs []domain.Review
	require.NoError(t, json.Unmarshal(env.Result, &rs))
	return rs
}

func TestSyncAndList(t *testing.T) {
	ts := newTestServer(t, nil)

	res, env := do(t, http.MethodGet, ts.URL+"/api/reviews/hostaway", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, true, env.Meta["fallback"])
	assert.EqualValues(t, 8, env.Meta["fetched"])
	assert.EqualValues(t, 8, env.Meta["upserted"])

	res, env = do(t, http.MethodGet, ts.URL+"/api/reviews?limit=3&page=2", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var page []domain.Review
	require.NoError(t, json.Unmarshal(env.Result, &page))
	assert.Len(t, page, 3)
	assert.EqualValues(t, 8, env.Meta["total"])
	assert.EqualValues(t, 2, env.Meta["page"])
	assert.EqualValues(t, 3, env.Meta["pages"])

	res, env = do(t, http.MethodGet, ts.URL+"/api/reviews?listing="+url.QueryEscape("1B Camden Lock Studio"), nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 3, env.Meta["total"])

	res, env = do(t, http.MethodGet, ts.URL+"/api/reviews?page=4611686018427387905&limit=50", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "error", env.Status)

	res, env = do(t, http.MethodGet, ts.URL+"/api/reviews?minRating=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "error", env.Status)
	assert.NotEmpty(t, env.Message)
}

func TestModerationAndPublicReviews(t *testing.T) {
	ts := newTestServer(t, nil)
	rs := syncAll(t, ts)

	var target domain.Review
	for _, r := range rs {
		if r.ListingName == "1B Camden Lock Studio" {
			target = r
			break
		}
	}
	require.NotEmpty(t, target.ID)

	res, env := do(t, http.MethodPatch, ts.URL+"/api/reviews/"+target.ID+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got domain.Review
	require.NoError(t, json.Unmarshal(env.Result, &got))
	assert.True(t, got.Approved)
	assert.False(t, got.ShowPublic)

	res, env = do(t, http.MethodPatch, ts.URL+"/api/reviews/"+target.ID+"/show-public", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(env.Result, &got))
	assert.True(t, got.ShowPublic)

	// a re-sync must not reset moderation
	syncAll(t, ts)

	publicURL := ts.URL + "/api/reviews/public/" + url.PathEscape("1B Camden Lock Studio")
	res, env = do(t, http.MethodGet, publicURL, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var pub []domain.Review
	require.NoError(t, json.Unmarshal(env.Result, &pub))
	require.Len(t, pub, 1)
	assert.Equal(t, target.ExternalID, pub[0].ExternalID)

	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)
	res, _ = do(t, http.MethodGet, publicURL, nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, res.StatusCode)

	// toggling twice flips back
	res, env = do(t, http.MethodPatch, ts.URL+"/api/reviews/"+target.ID+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(env.Result, &got))
	assert.False(t, got.Approved)

	res, env = do(t, http.MethodPatch, ts.URL+"/api/reviews/does-not-exist/approve", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "error", env.Status)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t, nil)
	syncAll(t, ts)

	res, env := do(t, http.MethodGet, ts.URL+"/api/reviews/reports/performance", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var perf []domain.ListingPerformance
	require.NoError(t, json.Unmarshal(env.Result, &perf))
	require.Len(t, perf, 3)
	for i := 1; i < len(perf); i++ {
		if perf[i-1].AvgRating != nil && perf[i].AvgRating != nil {
			assert.GreaterOrEqual(t, *perf[i-1].AvgRating, *perf[i].AvgRating)
		}
	}

	res, env = do(t, http.MethodGet, ts.URL+"/api/reviews/reports/trends?interval=month&listing=All", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var pts []domain.TrendPoint
	require.NoError(t, json.Unmarshal(env.Result, &pts))
	require.NotEmpty(t, pts)
	assert.Equal(t, "2024-08", pts[0].Day)

	res, _ = do(t, http.MethodGet, ts.URL+"/api/reviews/reports/trends?interval=year", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = do(t, http.MethodGet, ts.URL+"/api/reviews/reports/performance?format=csv", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = do(t, http.MethodGet, ts.URL+"/api/reviews/reports/performance?format=xlsx", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, export.ContentTypeXLSX, res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "performance-")
}

func TestListings(t *testing.T) {
	ts := newTestServer(t, nil)

	res, env := do(t, http.MethodPost, ts.URL+"/api/listings/seed", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "3", string(env.Result))

	res, env = do(t, http.MethodGet, ts.URL+"/api/listings", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var ls []domain.Listing
	require.NoError(t, json.Unmarshal(env.Result, &ls))
	require.Len(t, ls, 3)

	id := ls[0].ID
	res, _ = do(t, http.MethodPatch, ts.URL+"/api/admin/listings/"+id+"/placeId", strings.NewReader("{not json"), nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, env = do(t, http.MethodPatch, ts.URL+"/api/admin/listings/"+id+"/placeId", strings.NewReader(`{"placeId":"ChIJ123"}`), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var l domain.Listing
	require.NoError(t, json.Unmarshal(env.Result, &l))
	assert.Equal(t, "ChIJ123", l.PlaceID)

	res, _ = do(t, http.MethodGet, ts.URL+"/api/listings/public/"+url.PathEscape("No Such Flat"), nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, env = do(t, http.MethodGet, ts.URL+"/api/listings/public/"+url.PathEscape(ls[0].ListingName), nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var pl domain.PublicListing
	require.NoError(t, json.Unmarshal(env.Result, &pl))
	assert.Equal(t, ls[0].ListingName, pl.Listing.ListingName)
	assert.NotNil(t, pl.Reviews)
}

func TestGoogleReviews(t *testing.T) {
	ts := newTestServer(t, nil)

	res, _ := do(t, http.MethodGet, ts.URL+"/api/external/google-reviews", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, env := do(t, http.MethodGet, ts.URL+"/api/external/google-reviews?q="+url.QueryEscape("Camden Lock"), nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var d domain.PlaceDetails
	require.NoError(t, json.Unmarshal(env.Result, &d))
	assert.Equal(t, "cam-1", d.PlaceID)
	assert.NotNil(t, d.Reviews)

	res, _ = do(t, http.MethodGet, ts.URL+"/api/external/google-reviews?q=nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGoogleReviews_UpstreamDownHidesKey(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := dead.URL
	dead.Close()

	srv := server.New(nil)
	srv.MountHandlers(&server.Handlers{
		Places: app.NewPlacesService(places.New(base, "SUPERSECRETKEY"), memcache.Noop{}, 0, 0),
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	res, env := do(t, http.MethodGet, ts.URL+"/api/external/google-reviews?placeId=abc", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "error", env.Status)
	assert.NotContains(t, env.Message, "SUPERSECRETKEY")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil)

	res, _ := do(t, http.MethodOptions, ts.URL+"/api/reviews", nil, map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": "PATCH",
	})
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "http://localhost:5173", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, res.Header.Get("Access-Control-Allow-Methods"), "PATCH")

	res, _ = do(t, http.MethodGet, ts.URL+"/api/reviews", nil, map[string]string{"Origin": "http://evil.test"})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	res, _ := do(t, http.MethodGet, ts.URL+"/_health", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	down := newTestServer(t, func(context.Context) error { return errors.New("db down") })
	res, _ = do(t, http.MethodGet, down.URL+"/_health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	res, _ = do(t, http.MethodGet, down.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
