package app

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"flex_reviews/internal/domain"
)

/********** alias registries (single source of truth) **********/

var reviewAliases = map[string][]string{
	"external_id": {"id", "hostawayId", "externalId", "reviewId"},
	"listing":     {"listingName", "listing_name", "listing.name"},
	"guest":       {"guestName", "guest_name", "authorName", "author_name"},
	"text":        {"publicReview", "public_review", "text", "comment"},
	"type":        {"type"},
	"status":      {"status"},
	"submitted":   {"submittedAt", "submitted_at", "date"},
	"rating":      {"rating", "overallRating", "overall_rating"},
	"categories":  {"reviewCategory", "reviewCategories", "categories"},
}

var categoryAliases = map[string][]string{
	"name":   {"category", "key", "name"},
	"rating": {"rating", "score", "score10"},
}

// submittedLayouts are tried in order; Hostaway sends "2006-01-02 15:04:05".
var submittedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-blank string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// toFloat accepts float64/int/int64/json-ish strings like "8,5".
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// getFloatFlexible: number from several paths.
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		if f, ok := toFloat(lookupAny(m, k)); ok {
			return &f
		}
	}
	return nil
}

// idString renders ids that arrive as numbers or strings.
func idString(m map[string]any, paths ...string) string {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

func firstSlice(m map[string]any, paths ...string) []any {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			return raw
		}
	}
	return nil
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

/********** channel policy **********/

// InferChannel attributes a review to a platform by substring match on the
// lower-cased text. Priority is Airbnb > Booking > Google > Direct > Unknown;
// the first match wins, so a text naming two platforms goes to the earlier one.
func InferChannel(text string) domain.Channel {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return domain.ChannelUnknown
	case strings.Contains(t, "airbnb"):
		return domain.ChannelAirbnb
	case strings.Contains(t, "booking"):
		return domain.ChannelBooking
	case strings.Contains(t, "google"):
		return domain.ChannelGoogle
	case strings.Contains(t, "website"), strings.Contains(t, "direct"):
		return domain.ChannelDirect
	}
	return domain.ChannelUnknown
}

/********** category aggregator **********/

// CategoryAverage is the arithmetic mean of the sub-ratings. A nil rating
// counts as 0 and stays in the denominator. Empty input yields nil.
func CategoryAverage(cs []domain.Category) *float64 {
	if len(cs) == 0 {
		return nil
	}
	var sum float64
	for _, c := range cs {
		if c.Rating != nil {
			sum += *c.Rating
		}
	}
	avg := sum / float64(len(cs))
	return &avg
}

// StarsFromCategories converts a 0-10 category mean to whole 0-5 stars.
func StarsFromCategories(cs []domain.Category) *float64 {
	avg := CategoryAverage(cs)
	if avg == nil {
		return nil
	}
	stars := clamp(math.Round(*avg/2), 0, 5)
	return &stars
}

/********** review mapper **********/

func mapCategories(raw []any) []domain.Category {
	out := make([]domain.Category, 0, len(raw))
	for _, it := range raw {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := firstNonEmptyAlias(obj, categoryAliases, "name")
		if name == "" {
			continue
		}
		out = append(out, domain.Category{
			Category: name,
			Rating:   getFloatFlexible(obj, categoryAliases["rating"]...),
		})
	}
	return out
}

func parseSubmitted(m map[string]any) (time.Time, bool) {
	for _, p := range reviewAliases["submitted"] {
		switch v := lookupAny(m, p).(type) {
		case string:
			s := strings.TrimSpace(v)
			for _, layout := range submittedLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC(), true
				}
			}
		case float64:
			// epoch millis
			if v > 0 {
				return time.UnixMilli(int64(v)).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// NormalizeReview maps one raw source payload to the canonical Review. It
// never fails: anything missing is defaulted, and the moderation flags are
// always false here because only the toggle operations may set them.
func NormalizeReview(raw map[string]any, now time.Time) domain.Review {
	var rv domain.Review

	rv.ExternalID = idString(raw, reviewAliases["external_id"]...)
	if rv.ExternalID == "" {
		rv.ExternalID = uuid.NewString()
	}

	rv.ListingName = firstNonEmptyAlias(raw, reviewAliases, "listing")
	if rv.ListingName == "" {
		rv.ListingName = "unknown"
	}
	rv.PublicReview = firstNonEmptyAlias(raw, reviewAliases, "text")
	rv.GuestName = firstNonEmptyAlias(raw, reviewAliases, "guest")
	if rv.GuestName == "" {
		rv.GuestName = "Guest"
	}
	rv.Type = firstNonEmptyAlias(raw, reviewAliases, "type")
	if rv.Type == "" {
		rv.Type = "guest-to-host"
	}
	rv.Status = firstNonEmptyAlias(raw, reviewAliases, "status")
	if rv.Status == "" {
		rv.Status = "published"
	}

	// the raw channel field is never trusted
	rv.Channel = InferChannel(rv.ListingName + " " + rv.PublicReview)

	rv.Categories = mapCategories(firstSlice(raw, reviewAliases["categories"]...))

	// Rating: explicit overall first, then category mean, else unknown (nil).
	if f := getFloatFlexible(raw, reviewAliases["rating"]...); f != nil {
		stars := clamp(*f, 0, 5)
		rv.Rating = &stars
	} else {
		rv.Rating = StarsFromCategories(rv.Categories)
	}

	if t, ok := parseSubmitted(raw); ok {
		rv.SubmittedAt = t
	} else {
		rv.SubmittedAt = now.UTC()
	}
	return rv
}

func mapReviews(in []map[string]any, now time.Time) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		out = append(out, NormalizeReview(r, now))
	}
	return out
}
