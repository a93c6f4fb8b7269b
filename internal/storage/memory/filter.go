package memory

import (
	"sort"
	"strings"

	"flex_reviews/internal/domain"
)

// Match reports whether r satisfies every constraint in f. A rating bound
// excludes reviews without a rating.
func Match(r domain.Review, f domain.ReviewFilter) bool {
	if f.Listing != "" && r.ListingName != f.Listing {
		return false
	}
	if f.Channel != "" && string(r.Channel) != f.Channel {
		return false
	}
	if f.Category != "" && !hasCategory(r.Categories, f.Category) {
		return false
	}
	if f.MinRating != nil && (r.Rating == nil || *r.Rating < *f.MinRating) {
		return false
	}
	if f.MaxRating != nil && (r.Rating == nil || *r.Rating > *f.MaxRating) {
		return false
	}
	if f.Approved != nil && r.Approved != *f.Approved {
		return false
	}
	if f.ShowPublic != nil && r.ShowPublic != *f.ShowPublic {
		return false
	}
	if !(domain.DateWindow{From: f.From, To: f.To}).Contains(r.SubmittedAt) {
		return false
	}
	if f.Q != "" {
		q := strings.ToLower(f.Q)
		if !strings.Contains(strings.ToLower(r.PublicReview), q) &&
			!strings.Contains(strings.ToLower(r.GuestName), q) &&
			!strings.Contains(strings.ToLower(r.ListingName), q) {
			return false
		}
	}
	return true
}

func hasCategory(cs []domain.Category, name string) bool {
	for _, c := range cs {
		if c.Category == name {
			return true
		}
	}
	return false
}

// sortReviews orders by the requested field, externalId ascending on ties.
// A nil rating sorts before any number, as the databases order NULL.
func sortReviews(rs []domain.Review, s domain.SortSpec) {
	cmp := compareBy(s.Field)
	sort.SliceStable(rs, func(i, j int) bool {
		c := cmp(rs[i], rs[j])
		if c == 0 {
			return rs[i].ExternalID < rs[j].ExternalID
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareBy(field string) func(a, b domain.Review) int {
	switch field {
	case "rating":
		return func(a, b domain.Review) int {
			switch {
			case a.Rating == nil && b.Rating == nil:
				return 0
			case a.Rating == nil:
				return -1
			case b.Rating == nil:
				return 1
			case *a.Rating < *b.Rating:
				return -1
			case *a.Rating > *b.Rating:
				return 1
			}
			return 0
		}
	case "listingName":
		return func(a, b domain.Review) int { return strings.Compare(a.ListingName, b.ListingName) }
	case "guestName":
		return func(a, b domain.Review) int { return strings.Compare(a.GuestName, b.GuestName) }
	case "createdAt":
		return func(a, b domain.Review) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return func(a, b domain.Review) int { return a.SubmittedAt.Compare(b.SubmittedAt) }
	}
}
