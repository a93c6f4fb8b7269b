// internal/adapters/http_server/handlers.go
package httpserver

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/export"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

type Handlers struct {
	Sync       *app.SyncService
	Moderation *app.ModerationService
	Queries    *app.QueryService
	Reports    *app.ReportService
	Listings   *app.ListingService
	Places     *app.PlacesService
	Health     func(ctx context.Context) error // store ping; nil means always healthy
}

type success struct {
	Status string `json:"status"`
	Result any    `json:"result"`
	Meta   any    `json:"meta,omitempty"`
}

type failure struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/_health", h.health)

	s.mux.Route("/api", func(r chi.Router) {
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", h.listReviews)
			r.Get("/hostaway", h.syncReviews)
			r.Get("/public/{listingName}", h.publicReviews)
			r.Get("/reports/performance", h.performance)
			r.Get("/reports/trends", h.trends)
			r.Patch("/{id}/approve", h.toggleApproved)
			r.Patch("/{id}/show-public", h.toggleShowPublic)
		})
		r.Route("/listings", func(r chi.Router) {
			r.Get("/", h.listListings)
			r.Post("/seed", h.seedListings)
			r.Get("/public/{listingName}", h.publicListing)
		})
		r.Patch("/admin/listings/{id}/placeId", h.setPlaceID)
		r.Get("/external/google-reviews", h.googleReviews)
	})
}

/********** envelope **********/

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeOK(w http.ResponseWriter, result, meta any) {
	writeJSON(w, http.StatusOK, success{Status: "success", Result: result, Meta: meta})
}

// writeError maps domain sentinels to status codes; anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, failure{Status: "error", Message: err.Error()})
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable serves public reads with a weak ETag and honours If-None-Match.
func writeCacheable(w http.ResponseWriter, r *http.Request, result any) {
	etag, body := calcETagAndBody(success{Status: "success", Result: result})
	if body == nil {
		writeError(w, r, errors.New("encode response"))
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cacheable body")
	}
}

// pathParam returns a URL parameter with percent-encoding removed.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

/********** reviews **********/

func (h *Handlers) syncReviews(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.Sync(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, res.Reviews, map[string]any{
		"fetched":  res.Fetched,
		"upserted": res.Upserted,
		"failed":   res.Failed,
		"fallback": res.Fallback,
	})
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	f, err := app.ParseReviewFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Queries.ListReviews(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pages := int64(0)
	if page.Limit > 0 {
		pages = (page.Total + int64(page.Limit) - 1) / int64(page.Limit)
	}
	writeOK(w, page.Items, map[string]any{
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
		"pages": pages,
	})
}

func (h *Handlers) publicReviews(w http.ResponseWriter, r *http.Request) {
	out, err := h.Queries.PublicReviews(r.Context(), pathParam(r, "listingName"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) toggleApproved(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Moderation.ToggleApproved(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, rv, nil)
}

func (h *Handlers) toggleShowPublic(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Moderation.ToggleShowPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, rv, nil)
}

/********** reports **********/

func wantsXLSX(r *http.Request) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "", "json":
		return false, nil
	case "xlsx":
		return true, nil
	}
	return false, fmt.Errorf("%w: format must be json or xlsx", domain.ErrInvalid)
}

func writeXLSX(w http.ResponseWriter, r *http.Request, name string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, name, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("failed to write xlsx body")
	}
}

func (h *Handlers) performance(w http.ResponseWriter, r *http.Request) {
	xlsx, err := wantsXLSX(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	win, err := app.ParseDateWindow(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.Reports.Performance(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if xlsx {
		writeXLSX(w, r, "performance", func(b *bytes.Buffer) error { return export.WritePerformance(b, rows) })
		return
	}
	writeOK(w, rows, nil)
}

func (h *Handlers) trends(w http.ResponseWriter, r *http.Request) {
	xlsx, err := wantsXLSX(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	win, err := app.ParseDateWindow(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	interval, ok := domain.ParseInterval(strings.TrimSpace(q.Get("interval")))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: interval must be day, week or month", domain.ErrInvalid))
		return
	}
	pts, err := h.Reports.Trends(r.Context(), q.Get("listing"), win, interval)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if xlsx {
		writeXLSX(w, r, "trends", func(b *bytes.Buffer) error { return export.WriteTrends(b, pts) })
		return
	}
	writeOK(w, pts, map[string]any{"interval": interval})
}

/********** listings **********/

func (h *Handlers) listListings(w http.ResponseWriter, r *http.Request) {
	ls, err := h.Listings.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, ls, nil)
}

func (h *Handlers) seedListings(w http.ResponseWriter, r *http.Request) {
	n, err := h.Listings.Seed(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, n, nil)
}

func (h *Handlers) publicListing(w http.ResponseWriter, r *http.Request) {
	pl, err := h.Listings.PublicListing(r.Context(), pathParam(r, "listingName"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, pl)
}

func (h *Handlers) setPlaceID(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlaceID string `json:"placeId"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: body must be JSON {\"placeId\": \"...\"}", domain.ErrInvalid))
		return
	}
	l, err := h.Listings.SetPlaceID(r.Context(), chi.URLParam(r, "id"), body.PlaceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, l, nil)
}

/********** external **********/

func (h *Handlers) googleReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := h.Places.GoogleReviews(r.Context(), q.Get("placeId"), q.Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, d, nil)
}

/********** ops **********/

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
