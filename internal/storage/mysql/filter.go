package mysql

import (
	"fmt"
	"strings"

	"flex_reviews/internal/domain"
)

var sortColumns = map[string]string{
	"submittedAt": "submitted_at",
	"rating":      "rating",
	"listingName": "listing_name",
	"guestName":   "guest_name",
	"createdAt":   "created_at",
}

var bucketFormats = map[domain.TrendInterval]string{
	domain.IntervalDay:   "%Y-%m-%d",
	domain.IntervalWeek:  "%x-W%v",
	domain.IntervalMonth: "%Y-%m",
}

// buildWhere translates a ReviewFilter into a WHERE clause (with leading
// space, or "") and its positional args.
func buildWhere(f domain.ReviewFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Listing != "" {
		conds = append(conds, "listing_name = ?")
		args = append(args, f.Listing)
	}
	if f.Channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, f.Channel)
	}
	if f.Category != "" {
		conds = append(conds, "JSON_CONTAINS(categories, JSON_OBJECT('category', ?))")
		args = append(args, f.Category)
	}
	if f.MinRating != nil {
		conds = append(conds, "rating >= ?")
		args = append(args, *f.MinRating)
	}
	if f.MaxRating != nil {
		conds = append(conds, "rating <= ?")
		args = append(args, *f.MaxRating)
	}
	if f.Approved != nil {
		conds = append(conds, "approved = ?")
		args = append(args, *f.Approved)
	}
	if f.ShowPublic != nil {
		conds = append(conds, "show_public = ?")
		args = append(args, *f.ShowPublic)
	}
	wc, wa := windowConds(domain.DateWindow{From: f.From, To: f.To})
	conds = append(conds, wc...)
	args = append(args, wa...)
	if f.Q != "" {
		like := "%" + escapeLike(strings.ToLower(f.Q)) + "%"
		conds = append(conds, "(LOWER(public_review) LIKE ? ESCAPE '!' OR LOWER(guest_name) LIKE ? ESCAPE '!' OR LOWER(listing_name) LIKE ? ESCAPE '!')")
		args = append(args, like, like, like)
	}
	return joinWhere(conds), args
}

func windowConds(w domain.DateWindow) ([]string, []any) {
	var (
		conds []string
		args  []any
	)
	if w.From != nil {
		conds = append(conds, "submitted_at >= ?")
		args = append(args, w.From.UTC())
	}
	if w.To != nil {
		conds = append(conds, "submitted_at <= ?")
		args = append(args, w.To.UTC())
	}
	return conds, args
}

func joinWhere(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// orderBy ties on external_id so pages are stable.
func orderBy(s domain.SortSpec) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = "submitted_at"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, external_id ASC", col, dir)
}

func limitClause(f domain.ReviewFilter) (string, []any) {
	if f.Limit <= 0 {
		return "", nil
	}
	return " LIMIT ? OFFSET ?", []any{f.Limit, f.Offset()}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }
