package domain

import (
	"context"
	"math"
	"time"
)

type ReviewRepository interface {
	// Write paths
	UpsertReview(ctx context.Context, r Review) error
	SetFlag(ctx context.Context, id string, flag ModerationFlag, value bool) (Review, error)

	// Read paths
	GetReview(ctx context.Context, id string) (Review, error)
	ListAll(ctx context.Context) ([]Review, error)
	FindReviews(ctx context.Context, f ReviewFilter) ([]Review, error)
	CountReviews(ctx context.Context, f ReviewFilter) (int64, error)

	// Reports
	Performance(ctx context.Context, w DateWindow) ([]ListingPerformance, error)
	Trends(ctx context.Context, q TrendQuery) ([]TrendPoint, error)
}

type ListingRepository interface {
	ListListings(ctx context.Context) ([]Listing, error)
	GetListingByName(ctx context.Context, name string) (Listing, error)
	UpsertListing(ctx context.Context, l Listing) error
	SetPlaceID(ctx context.Context, id, placeID string) (Listing, error)
}

// ReviewSource yields raw, source-shaped review payloads.
type ReviewSource interface {
	Name() string
	FetchReviews(ctx context.Context) ([]map[string]any, error)
}

type PlacesClient interface {
	FindPlaceID(ctx context.Context, text string) (string, error)
	PlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Read models & queries

type SortSpec struct {
	Field string // submittedAt|rating|listingName|guestName|createdAt
	Desc  bool
}

// ReviewFilter is a storage-agnostic description of a review query. Nil
// pointers and empty strings mean "no constraint".
type ReviewFilter struct {
	Listing    string
	Channel    string
	Category   string
	MinRating  *float64
	MaxRating  *float64
	Approved   *bool
	ShowPublic *bool
	From       *time.Time
	To         *time.Time
	Q          string
	Sort       SortSpec
	Page       int
	Limit      int // 0 = unlimited
}

// Offset saturates at math.MaxInt instead of overflowing.
func (f ReviewFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

type ReviewPage struct {
	Items []Review `json:"items"`
	Total int64    `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

// DateWindow is an inclusive [From, To] range on submittedAt.
type DateWindow struct {
	From *time.Time
	To   *time.Time
}

type TrendInterval string

const (
	IntervalDay   TrendInterval = "day"
	IntervalWeek  TrendInterval = "week"
	IntervalMonth TrendInterval = "month"
)

type TrendQuery struct {
	Listing  string
	Window   DateWindow
	Interval TrendInterval
}

type ListingPerformance struct {
	ListingName    string   `json:"listingName"`
	AvgRating      *float64 `json:"avgRating"`
	Total          int64    `json:"total"`
	ApprovedCount  int64    `json:"approvedCount"`
	PublishedCount int64    `json:"publishedCount"`
}

type TrendPoint struct {
	Day       string   `json:"day"` // bucket label, UTC
	AvgRating *float64 `json:"avgRating"`
	Count     int64    `json:"count"`
}

type PlaceReview struct {
	AuthorName              string  `json:"authorName"`
	Rating                  float64 `json:"rating"`
	Text                    string  `json:"text"`
	Time                    int64   `json:"time"`
	RelativeTimeDescription string  `json:"relativeTimeDescription"`
	ProfilePhotoURL         string  `json:"profilePhotoUrl"`
}

type PlaceDetails struct {
	PlaceID          string        `json:"placeId"`
	Name             string        `json:"name"`
	Address          string        `json:"address"`
	Rating           *float64      `json:"rating"`
	UserRatingsTotal int           `json:"user_ratings_total"`
	Website          string        `json:"website,omitempty"`
	Reviews          []PlaceReview `json:"reviews"`
}
