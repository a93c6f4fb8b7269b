package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"flex_reviews/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()
	if reg != observability.InitRegistry() {
		t.Fatalf("expected a single process registry")
	}

	// record samples so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveSync("hostaway", "fallback")
	observability.ObserveIngest("ok")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{"flex_http_requests_total", "flex_sync_runs_total", "flex_ingested_reviews_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	observability.SetLevel("debug")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("level: %v", zerolog.GlobalLevel())
	}
	observability.SetLevel("nonsense")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %v", zerolog.GlobalLevel())
	}
}
