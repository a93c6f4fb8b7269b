package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flex_reviews/internal/domain"
)

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) Close(context.Context) error { return r.db.Close() }

/********** reviews: writes **********/

func (r *Repo) UpsertReview(ctx context.Context, rv domain.Review) error {
	if rv.ExternalID == "" {
		return fmt.Errorf("%w: externalId required", domain.ErrInvalid)
	}
	cats := rv.Categories
	if cats == nil {
		cats = []domain.Category{}
	}
	catsJSON, err := valJSON(cats)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx, upsertReviewSQL,
		uuid.NewString(),
		rv.ExternalID,
		rv.ListingName,
		string(rv.Channel),
		rv.Type,
		rv.Status,
		valF64(rv.Rating),
		catsJSON,
		rv.PublicReview,
		rv.GuestName,
		rv.SubmittedAt.UTC(),
		now, // created_at, insert only
		now,
	)
	return err
}

func (r *Repo) SetFlag(ctx context.Context, id string, flag domain.ModerationFlag, value bool) (domain.Review, error) {
	var stmt string
	switch flag {
	case domain.FlagApproved:
		stmt = setApprovedSQL
	case domain.FlagShowPublic:
		stmt = setShowPublicSQL
	default:
		return domain.Review{}, fmt.Errorf("%w: unknown flag %q", domain.ErrInvalid, flag)
	}
	if _, err := r.db.ExecContext(ctx, stmt, value, r.now().UTC(), id); err != nil {
		return domain.Review{}, err
	}
	return r.GetReview(ctx, id)
}

/********** reviews: reads **********/

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	return rv, err
}

func (r *Repo) ListAll(ctx context.Context) ([]domain.Review, error) {
	return r.FindReviews(ctx, domain.ReviewFilter{Sort: domain.SortSpec{Field: "submittedAt", Desc: true}})
}

func (r *Repo) FindReviews(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	where, args := buildWhere(f)
	lim, largs := limitClause(f)
	q := "SELECT " + reviewColumns + " FROM reviews" + where + orderBy(f.Sort) + lim

	rows, err := r.db.QueryContext(ctx, q, append(args, largs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) CountReviews(ctx context.Context, f domain.ReviewFilter) (int64, error) {
	where, args := buildWhere(f)
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews"+where, args...).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(s scanner) (domain.Review, error) {
	var (
		rv       domain.Review
		channel  string
		rating   sql.NullFloat64
		catsJSON []byte
	)
	if err := s.Scan(
		&rv.ID,
		&rv.ExternalID,
		&rv.ListingName,
		&channel,
		&rv.Type,
		&rv.Status,
		&rating,
		&catsJSON,
		&rv.PublicReview,
		&rv.GuestName,
		&rv.SubmittedAt,
		&rv.Approved,
		&rv.ShowPublic,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	rv.Channel = domain.Channel(channel)
	if rating.Valid {
		f := rating.Float64
		rv.Rating = &f
	}
	rv.Categories = []domain.Category{}
	if len(catsJSON) > 0 {
		if err := json.Unmarshal(catsJSON, &rv.Categories); err != nil {
			return domain.Review{}, fmt.Errorf("decode categories of %s: %w", rv.ExternalID, err)
		}
	}
	rv.SubmittedAt = rv.SubmittedAt.UTC()
	rv.CreatedAt = rv.CreatedAt.UTC()
	rv.UpdatedAt = rv.UpdatedAt.UTC()
	return rv, nil
}

/********** reports **********/

func (r *Repo) Performance(ctx context.Context, w domain.DateWindow) ([]domain.ListingPerformance, error) {
	conds, args := windowConds(w)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(performanceSQL, joinWhere(conds)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ListingPerformance{}
	for rows.Next() {
		var (
			p   domain.ListingPerformance
			avg sql.NullFloat64
		)
		if err := rows.Scan(&p.ListingName, &avg, &p.Total, &p.ApprovedCount, &p.PublishedCount); err != nil {
			return nil, err
		}
		if avg.Valid {
			f := avg.Float64
			p.AvgRating = &f
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Trends(ctx context.Context, q domain.TrendQuery) ([]domain.TrendPoint, error) {
	format, ok := bucketFormats[q.Interval]
	if !ok {
		format = bucketFormats[domain.IntervalDay]
	}
	conds, args := windowConds(q.Window)
	if q.Listing != "" {
		conds = append([]string{"listing_name = ?"}, conds...)
		args = append([]any{q.Listing}, args...)
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(trendsSQL, format, joinWhere(conds)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TrendPoint{}
	for rows.Next() {
		var (
			p   domain.TrendPoint
			avg sql.NullFloat64
		)
		if err := rows.Scan(&p.Day, &avg, &p.Count); err != nil {
			return nil, err
		}
		if avg.Valid {
			f := avg.Float64
			p.AvgRating = &f
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

/********** listings **********/

func (r *Repo) ListListings(ctx context.Context) ([]domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, listListingsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) GetListingByName(ctx context.Context, name string) (domain.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, getListingByNameSQL, name))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, fmt.Errorf("listing %q: %w", name, domain.ErrNotFound)
	}
	return l, err
}

func (r *Repo) UpsertListing(ctx context.Context, l domain.Listing) error {
	if l.ListingName == "" {
		return fmt.Errorf("%w: listingName required", domain.ErrInvalid)
	}
	gallery, err := valJSON(nonNil(l.Gallery))
	if err != nil {
		return err
	}
	highlights, err := valJSON(nonNil(l.Highlights))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertListingSQL,
		uuid.NewString(),
		l.ListingName,
		l.Slug,
		l.PlaceID,
		l.Address,
		l.City,
		l.Country,
		l.Bedrooms,
		l.Bathrooms,
		l.Sleeps,
		l.Sqft,
		l.NightlyFrom,
		l.HeroImage,
		gallery,
		highlights,
		l.Description,
	)
	return err
}

func (r *Repo) SetPlaceID(ctx context.Context, id, placeID string) (domain.Listing, error) {
	if _, err := r.db.ExecContext(ctx, setPlaceIDSQL, placeID, id); err != nil {
		return domain.Listing{}, err
	}
	l, err := scanListing(r.db.QueryRowContext(ctx, getListingByIDSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return l, err
}

func scanListing(s scanner) (domain.Listing, error) {
	var (
		l                   domain.Listing
		gallery, highlights []byte
	)
	if err := s.Scan(
		&l.ID, &l.ListingName, &l.Slug, &l.PlaceID,
		&l.Address, &l.City, &l.Country,
		&l.Bedrooms, &l.Bathrooms, &l.Sleeps, &l.Sqft,
		&l.NightlyFrom, &l.HeroImage,
		&gallery, &highlights,
		&l.Description,
	); err != nil {
		return domain.Listing{}, err
	}
	if err := decodeStrings(gallery, &l.Gallery); err != nil {
		return domain.Listing{}, fmt.Errorf("decode gallery for listing %s: %w", l.ID, err)
	}
	if err := decodeStrings(highlights, &l.Highlights); err != nil {
		return domain.Listing{}, fmt.Errorf("decode highlights for listing %s: %w", l.ID, err)
	}
	return l, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// decodeStrings accepts SQL NULL as an empty list.
func decodeStrings(b []byte, dst *[]string) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
