package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"flex_reviews/internal/domain"
)

var sortFields = map[string]string{
	"submittedAt": "submittedAt",
	"rating":      "rating",
	"listingName": "listingName",
	"guestName":   "guestName",
	"createdAt":   "createdAt",
}

var bucketFormats = map[domain.TrendInterval]string{
	domain.IntervalDay:   "%Y-%m-%d",
	domain.IntervalWeek:  "%G-W%V",
	domain.IntervalMonth: "%Y-%m",
}

// buildFilter translates a ReviewFilter into a find/count filter document.
func buildFilter(f domain.ReviewFilter) bson.M {
	m := bson.M{}
	if f.Listing != "" {
		m["listingName"] = f.Listing
	}
	if f.Channel != "" {
		m["channel"] = f.Channel
	}
	if f.Category != "" {
		m["categories.category"] = f.Category
	}
	if f.MinRating != nil || f.MaxRating != nil {
		r := bson.M{}
		if f.MinRating != nil {
			r["$gte"] = *f.MinRating
		}
		if f.MaxRating != nil {
			r["$lte"] = *f.MaxRating
		}
		m["rating"] = r
	}
	if f.Approved != nil {
		m["approved"] = *f.Approved
	}
	if f.ShowPublic != nil {
		m["showPublic"] = *f.ShowPublic
	}
	if w := windowFilter(domain.DateWindow{From: f.From, To: f.To}); w != nil {
		m["submittedAt"] = w
	}
	if f.Q != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Q), Options: "i"}
		m["$or"] = bson.A{
			bson.M{"publicReview": rx},
			bson.M{"guestName": rx},
			bson.M{"listingName": rx},
		}
	}
	return m
}

func windowFilter(w domain.DateWindow) bson.M {
	if w.From == nil && w.To == nil {
		return nil
	}
	r := bson.M{}
	if w.From != nil {
		r["$gte"] = w.From.UTC()
	}
	if w.To != nil {
		r["$lte"] = w.To.UTC()
	}
	return r
}

// sortDoc ties on externalId so pages are stable.
func sortDoc(s domain.SortSpec) bson.D {
	field, ok := sortFields[s.Field]
	if !ok {
		field = "submittedAt"
	}
	dir := 1
	if s.Desc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "externalId", Value: 1}}
}

func performancePipeline(w domain.DateWindow) mongo.Pipeline {
	match := bson.M{}
	if wf := windowFilter(w); wf != nil {
		match["submittedAt"] = wf
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$listingName"},
			{Key: "avgRating", Value: bson.M{"$avg": "$rating"}},
			{Key: "total", Value: bson.M{"$sum": 1}},
			{Key: "approvedCount", Value: bson.M{"$sum": bson.M{"$cond": bson.A{"$approved", 1, 0}}}},
			{Key: "publishedCount", Value: bson.M{"$sum": bson.M{"$cond": bson.A{"$showPublic", 1, 0}}}},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"unrated": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$avgRating", nil}}, 1, 0}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "unrated", Value: 1},
			{Key: "avgRating", Value: -1},
			{Key: "_id", Value: 1},
		}}},
	}
}

func trendsPipeline(q domain.TrendQuery) mongo.Pipeline {
	format, ok := bucketFormats[q.Interval]
	if !ok {
		format = bucketFormats[domain.IntervalDay]
	}
	match := bson.M{}
	if q.Listing != "" {
		match["listingName"] = q.Listing
	}
	if wf := windowFilter(q.Window); wf != nil {
		match["submittedAt"] = wf
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$dateToString": bson.M{
				"format":   format,
				"date":     "$submittedAt",
				"timezone": "UTC",
			}}},
			{Key: "avgRating", Value: bson.M{"$avg": "$rating"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}
