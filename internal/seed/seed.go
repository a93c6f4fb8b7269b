// Package seed embeds the mock reviews and listings used when the remote
// review source is unavailable, and by the listing seed endpoint.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"flex_reviews/internal/domain"
)

//go:embed mock-reviews.json
var mockReviews []byte

//go:embed mock-listings.json
var mockListings []byte

// Source serves the embedded mock reviews as a domain.ReviewSource.
type Source struct{}

func (Source) Name() string { return "mock" }

// FetchReviews decodes a fresh copy on every call so callers may mutate it.
func (Source) FetchReviews(_ context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := json.Unmarshal(mockReviews, &out); err != nil {
		return nil, fmt.Errorf("decode mock reviews: %w", err)
	}
	return out, nil
}

// Listings returns the embedded mock listings.
func Listings() ([]domain.Listing, error) {
	var out []domain.Listing
	if err := json.Unmarshal(mockListings, &out); err != nil {
		return nil, fmt.Errorf("decode mock listings: %w", err)
	}
	return out, nil
}
