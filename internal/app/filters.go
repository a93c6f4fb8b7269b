package app

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"flex_reviews/internal/domain"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
	AllListings      = "All"
)

var sortableFields = map[string]struct{}{
	"submittedAt": {},
	"rating":      {},
	"listingName": {},
	"guestName":   {},
	"createdAt":   {},
}

// ParseReviewFilter builds a ReviewFilter from query parameters. It does not
// touch any store; malformed values wrap domain.ErrInvalid.
func ParseReviewFilter(v url.Values) (domain.ReviewFilter, error) {
	f := domain.ReviewFilter{
		Sort:  domain.SortSpec{Field: "submittedAt", Desc: true},
		Page:  1,
		Limit: DefaultPageLimit,
	}

	if l := strings.TrimSpace(v.Get("listing")); l != "" && l != AllListings {
		f.Listing = l
	}
	f.Channel = strings.TrimSpace(v.Get("channel"))
	f.Category = strings.TrimSpace(v.Get("category"))
	f.Q = strings.TrimSpace(v.Get("q"))

	var err error
	if f.MinRating, err = optFloat(v, "minRating"); err != nil {
		return f, err
	}
	if f.MaxRating, err = optFloat(v, "maxRating"); err != nil {
		return f, err
	}
	if f.Approved, err = optBool(v, "approved"); err != nil {
		return f, err
	}
	if f.ShowPublic, err = optBool(v, "showPublic"); err != nil {
		return f, err
	}

	w, err := ParseDateWindow(v)
	if err != nil {
		return f, err
	}
	f.From, f.To = w.From, w.To

	if s := strings.TrimSpace(v.Get("sort")); s != "" {
		desc := strings.HasPrefix(s, "-")
		field := strings.TrimPrefix(s, "-")
		if _, ok := sortableFields[field]; !ok {
			return f, fmt.Errorf("%w: unsupported sort field %q", domain.ErrInvalid, field)
		}
		f.Sort = domain.SortSpec{Field: field, Desc: desc}
	}

	if ps := strings.TrimSpace(v.Get("page")); ps != "" {
		p, err := strconv.Atoi(ps)
		if err != nil {
			return f, fmt.Errorf("%w: page must be an integer", domain.ErrInvalid)
		}
		if p > 1 {
			f.Page = p
		}
	}
	if ls := strings.TrimSpace(v.Get("limit")); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil {
			return f, fmt.Errorf("%w: limit must be an integer", domain.ErrInvalid)
		}
		switch {
		case l <= 0:
			f.Limit = DefaultPageLimit
		case l > MaxPageLimit:
			f.Limit = MaxPageLimit
		default:
			f.Limit = l
		}
	}
	if f.Page > math.MaxInt/f.Limit {
		return f, fmt.Errorf("%w: page out of range", domain.ErrInvalid)
	}
	return f, nil
}

// ParseDateWindow reads from/to. A date-only "to" covers the whole day.
func ParseDateWindow(v url.Values) (domain.DateWindow, error) {
	var w domain.DateWindow
	if s := strings.TrimSpace(v.Get("from")); s != "" {
		t, _, err := parseDate(s)
		if err != nil {
			return w, fmt.Errorf("%w: from: %v", domain.ErrInvalid, err)
		}
		w.From = &t
	}
	if s := strings.TrimSpace(v.Get("to")); s != "" {
		t, dateOnly, err := parseDate(s)
		if err != nil {
			return w, fmt.Errorf("%w: to: %v", domain.ErrInvalid, err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		w.To = &t
	}
	return w, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	return t.UTC(), false, nil
}

func optFloat(v url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalid, key)
	}
	return &f, nil
}

func optBool(v url.Values, key string) (*bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalid, key)
	}
	return &b, nil
}
