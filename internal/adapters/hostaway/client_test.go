package hostaway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"flex_reviews/internal/adapters/hostaway"
)

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := hostaway.New("", "", "key", 1); err == nil {
		t.Fatalf("expected error without account id")
	}
	if _, err := hostaway.New("", "61148", "", 1); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestClient_FetchReviews_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reviews" || r.URL.Query().Get("accountId") != "61148" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization header: %q", got)
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","result":[{"id":7245,"rating":9,"listingName":"2B N1 A"}]}`))
		}
	}))
	defer ts.Close()

	cl, err := hostaway.New(ts.URL, "61148", "secret", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.FetchReviews(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["listingName"] != "2B N1 A" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_FetchReviews_BareArray(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "1", "k", 100)
	got, err := cl.FetchReviews(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 reviews, got %d", len(got))
	}
}

func TestClient_FetchReviews_EmptyResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","result":[]}`))
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "1", "k", 100)
	got, err := cl.FetchReviews(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestClient_FetchReviews_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "1", "bad", 100)
	if _, err := cl.FetchReviews(context.Background()); err != hostaway.ErrUnauthorized {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}
