// Package memory is an in-process store for local runs and tests. It keeps
// the same upsert and moderation semantics as the database-backed stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flex_reviews/internal/domain"
)

type Repo struct {
	mu sync.RWMutex

	reviews    map[string]*domain.Review // by id
	byExternal map[string]string         // externalId -> id

	listings map[string]*domain.Listing // by id
	byName   map[string]string          // listingName -> id

	now func() time.Time
}

func New() *Repo {
	return &Repo{
		reviews:    make(map[string]*domain.Review),
		byExternal: make(map[string]string),
		listings:   make(map[string]*domain.Listing),
		byName:     make(map[string]string),
		now:        time.Now,
	}
}

/********** reviews: writes **********/

// UpsertReview inserts by externalId or overwrites the content fields of the
// stored review. Moderation flags and createdAt are insert-only.
func (r *Repo) UpsertReview(_ context.Context, in domain.Review) error {
	if in.ExternalID == "" {
		return fmt.Errorf("%w: externalId required", domain.ErrInvalid)
	}
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byExternal[in.ExternalID]; ok {
		cur := r.reviews[id]
		next := *cur
		applyContent(&next, in)
		next.UpdatedAt = now
		r.reviews[id] = &next
		return nil
	}

	rv := domain.Review{
		ID:         uuid.NewString(),
		ExternalID: in.ExternalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyContent(&rv, in)
	r.reviews[rv.ID] = &rv
	r.byExternal[rv.ExternalID] = rv.ID
	return nil
}

// applyContent copies the sync-owned fields only.
func applyContent(dst *domain.Review, src domain.Review) {
	dst.ListingName = src.ListingName
	dst.Channel = src.Channel
	dst.Type = src.Type
	dst.Status = src.Status
	dst.Rating = copyFloat(src.Rating)
	dst.Categories = copyCategories(src.Categories)
	dst.PublicReview = src.PublicReview
	dst.GuestName = src.GuestName
	dst.SubmittedAt = src.SubmittedAt.UTC()
}

func (r *Repo) SetFlag(_ context.Context, id string, flag domain.ModerationFlag, value bool) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.reviews[id]
	if !ok {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	next := *cur
	switch flag {
	case domain.FlagApproved:
		next.Approved = value
	case domain.FlagShowPublic:
		next.ShowPublic = value
	default:
		return domain.Review{}, fmt.Errorf("%w: unknown flag %q", domain.ErrInvalid, flag)
	}
	next.UpdatedAt = r.now().UTC()
	r.reviews[id] = &next
	return clone(next), nil
}

/********** reviews: reads **********/

func (r *Repo) GetReview(_ context.Context, id string) (domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cur, ok := r.reviews[id]
	if !ok {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	return clone(*cur), nil
}

func (r *Repo) ListAll(ctx context.Context) ([]domain.Review, error) {
	return r.FindReviews(ctx, domain.ReviewFilter{Sort: domain.SortSpec{Field: "submittedAt", Desc: true}})
}

func (r *Repo) FindReviews(_ context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	out := r.matching(f)
	sortReviews(out, f.Sort)

	off := f.Offset()
	if off < 0 || off >= len(out) {
		return []domain.Review{}, nil
	}
	out = out[off:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Repo) CountReviews(_ context.Context, f domain.ReviewFilter) (int64, error) {
	return int64(len(r.matching(f))), nil
}

func (r *Repo) matching(f domain.ReviewFilter) []domain.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Review, 0, len(r.reviews))
	for _, rv := range r.reviews {
		if Match(*rv, f) {
			out = append(out, clone(*rv))
		}
	}
	return out
}

/********** reports **********/

func (r *Repo) Performance(_ context.Context, w domain.DateWindow) ([]domain.ListingPerformance, error) {
	type acc struct {
		row   domain.ListingPerformance
		sum   float64
		rated int
	}
	groups := map[string]*acc{}

	r.mu.RLock()
	for _, rv := range r.reviews {
		if !w.Contains(rv.SubmittedAt) {
			continue
		}
		a, ok := groups[rv.ListingName]
		if !ok {
			a = &acc{row: domain.ListingPerformance{ListingName: rv.ListingName}}
			groups[rv.ListingName] = a
		}
		a.row.Total++
		if rv.Approved {
			a.row.ApprovedCount++
		}
		if rv.ShowPublic {
			a.row.PublishedCount++
		}
		if rv.Rating != nil {
			a.sum += *rv.Rating
			a.rated++
		}
	}
	r.mu.RUnlock()

	out := make([]domain.ListingPerformance, 0, len(groups))
	for _, a := range groups {
		if a.rated > 0 {
			avg := a.sum / float64(a.rated)
			a.row.AvgRating = &avg
		}
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].AvgRating, out[j].AvgRating
		switch {
		case ai == nil && aj == nil:
		case ai == nil:
			return false
		case aj == nil:
			return true
		case *ai != *aj:
			return *ai > *aj
		}
		return out[i].ListingName < out[j].ListingName
	})
	return out, nil
}

func (r *Repo) Trends(_ context.Context, q domain.TrendQuery) ([]domain.TrendPoint, error) {
	type acc struct {
		count int64
		sum   float64
		rated int
	}
	buckets := map[string]*acc{}

	r.mu.RLock()
	for _, rv := range r.reviews {
		if q.Listing != "" && rv.ListingName != q.Listing {
			continue
		}
		if !q.Window.Contains(rv.SubmittedAt) {
			continue
		}
		key := q.Interval.Bucket(rv.SubmittedAt)
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		a.count++
		if rv.Rating != nil {
			a.sum += *rv.Rating
			a.rated++
		}
	}
	r.mu.RUnlock()

	out := make([]domain.TrendPoint, 0, len(buckets))
	for day, a := range buckets {
		p := domain.TrendPoint{Day: day, Count: a.count}
		if a.rated > 0 {
			avg := a.sum / float64(a.rated)
			p.AvgRating = &avg
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

/********** listings **********/

func (r *Repo) ListListings(_ context.Context) ([]domain.Listing, error) {
	r.mu.RLock()
	out := make([]domain.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		out = append(out, cloneListing(*l))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ListingName < out[j].ListingName })
	return out, nil
}

func (r *Repo) GetListingByName(_ context.Context, name string) (domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return domain.Listing{}, fmt.Errorf("listing %q: %w", name, domain.ErrNotFound)
	}
	return cloneListing(*r.listings[id]), nil
}

// UpsertListing matches by name. An empty incoming placeId keeps the stored one.
func (r *Repo) UpsertListing(_ context.Context, l domain.Listing) error {
	if strings.TrimSpace(l.ListingName) == "" {
		return fmt.Errorf("%w: listingName required", domain.ErrInvalid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := cloneListing(l)
	if id, ok := r.byName[l.ListingName]; ok {
		next.ID = id
		if next.PlaceID == "" {
			next.PlaceID = r.listings[id].PlaceID
		}
	} else {
		next.ID = uuid.NewString()
		r.byName[next.ListingName] = next.ID
	}
	r.listings[next.ID] = &next
	return nil
}

func (r *Repo) SetPlaceID(_ context.Context, id, placeID string) (domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.listings[id]
	if !ok {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	next := cloneListing(*cur)
	next.PlaceID = placeID
	r.listings[id] = &next
	return cloneListing(next), nil
}

/********** copies **********/

func clone(r domain.Review) domain.Review {
	r.Rating = copyFloat(r.Rating)
	r.Categories = copyCategories(r.Categories)
	return r
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyCategories(in []domain.Category) []domain.Category {
	out := make([]domain.Category, len(in))
	for i, c := range in {
		out[i] = domain.Category{Category: c.Category, Rating: copyFloat(c.Rating)}
	}
	return out
}

func cloneListing(l domain.Listing) domain.Listing {
	l.Gallery = append([]string(nil), l.Gallery...)
	l.Highlights = append([]string(nil), l.Highlights...)
	return l
}
