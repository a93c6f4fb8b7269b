//go:build integration || !unit

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"flex_reviews/internal/adapters/hostaway"
	server "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/adapters/memcache"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/seed"
	mysqlrepo "flex_reviews/internal/storage/mysql"
)

// ---------- helpers ----------

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=flex"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/flex?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

type envelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Meta   map[string]any  `json:"meta"`
}

func call(t *testing.T, method, u string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, u, err)
	}
	defer res.Body.Close()
	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", u, err)
	}
	return res.StatusCode, env
}

func reviewsByExternalID(t *testing.T, raw json.RawMessage) map[string]domain.Review {
	t.Helper()
	var rs []domain.Review
	if err := json.Unmarshal(raw, &rs); err != nil {
		t.Fatalf("decode reviews: %v", err)
	}
	out := make(map[string]domain.Review, len(rs))
	for _, r := range rs {
		out[r.ExternalID] = r
	}
	return out
}

// ---------- the test ----------

// Hostaway -> normalize -> MySQL -> moderation -> re-sync, all over HTTP.
func TestHTTP_EndToEnd_SyncModerateResync(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)

	var rating atomic.Value
	rating.Store(9.0)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"result": []map[string]any{
				{"id": 1, "rating": rating.Load(), "listingName": "E2E Flat", "publicReview": "Booked on Airbnb", "submittedAt": "2024-09-01 10:00:00"},
				{"id": 2, "listingName": "E2E Flat", "submittedAt": "2024-09-02 10:00:00", "reviewCategory": []map[string]any{
					{"category": "cleanliness", "rating": 8},
					{"category": "value", "rating": 6},
				}},
			},
		})
	}))
	defer upstream.Close()

	remote, err := hostaway.New(upstream.URL, "acct", "key", 50)
	if err != nil {
		t.Fatalf("hostaway.New: %v", err)
	}

	q := app.NewQueryService(repo)
	srv := server.New([]string{"*"})
	srv.MountHandlers(&server.Handlers{
		Sync:       app.NewSyncService(remote, nil, repo),
		Moderation: app.NewModerationService(repo),
		Queries:    q,
		Reports:    app.NewReportService(repo),
		Listings:   app.NewListingService(repo, q, seed.Listings),
		Places:     app.NewPlacesService(nil, memcache.Noop{}, 0, 0),
		Health:     repo.Ping,
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	code, env := call(t, http.MethodGet, ts.URL+"/api/reviews/hostaway")
	if code != http.StatusOK {
		t.Fatalf("sync status %d", code)
	}
	if env.Meta["fallback"] != false {
		t.Fatalf("expected live fetch, meta=%v", env.Meta)
	}
	got := reviewsByExternalID(t, env.Result)
	if len(got) != 2 {
		t.Fatalf("want 2 reviews, got %d", len(got))
	}
	if r := got["1"]; r.Rating == nil || *r.Rating != 5 || r.Channel != domain.ChannelAirbnb {
		t.Fatalf("review 1: %+v", r)
	}
	if r := got["2"]; r.Rating == nil || *r.Rating != 4 {
		t.Fatalf("review 2: %+v", r)
	}

	code, env = call(t, http.MethodPatch, ts.URL+"/api/reviews/"+got["1"].ID+"/approve")
	if code != http.StatusOK {
		t.Fatalf("approve status %d", code)
	}

	rating.Store(2.0)
	code, env = call(t, http.MethodGet, ts.URL+"/api/reviews/hostaway")
	if code != http.StatusOK {
		t.Fatalf("resync status %d", code)
	}
	again := reviewsByExternalID(t, env.Result)
	if r := again["1"]; !r.Approved || r.Rating == nil || *r.Rating != 2 || r.ID != got["1"].ID {
		t.Fatalf("review 1 after resync: %+v", r)
	}

	code, env = call(t, http.MethodGet, ts.URL+"/api/reviews/reports/performance")
	if code != http.StatusOK {
		t.Fatalf("performance status %d", code)
	}
	var perf []domain.ListingPerformance
	if err := json.Unmarshal(env.Result, &perf); err != nil {
		t.Fatalf("decode performance: %v", err)
	}
	if len(perf) != 1 || perf[0].Total != 2 || perf[0].ApprovedCount != 1 || perf[0].AvgRating == nil || *perf[0].AvgRating != 3 {
		t.Fatalf("performance: %+v", perf)
	}
}
