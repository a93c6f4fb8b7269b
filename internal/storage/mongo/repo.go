// Package mongo stores reviews and listings in MongoDB. Review upserts use
// $set for sync-owned fields and $setOnInsert for moderation defaults.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flex_reviews/internal/domain"
)

const (
	reviewsCollection  = "reviews"
	listingsCollection = "listings"
)

type Repo struct {
	client   *mongo.Client
	reviews  *mongo.Collection
	listings *mongo.Collection
	now      func() time.Time
}

// Connect dials uri, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, dbName string) (*Repo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	r := New(client, client.Database(dbName))
	if err := r.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

func New(client *mongo.Client, db *mongo.Database) *Repo {
	return &Repo{
		client:   client,
		reviews:  db.Collection(reviewsCollection),
		listings: db.Collection(listingsCollection),
		now:      time.Now,
	}
}

func (r *Repo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.reviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "externalId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "listingName", Value: 1}, {Key: "submittedAt", Value: -1}}},
		{Keys: bson.D{{Key: "submittedAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create review indexes: %w", err)
	}
	if _, err := r.listings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "listingName", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create listing indexes: %w", err)
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error { return r.client.Ping(ctx, nil) }

func (r *Repo) Close(ctx context.Context) error { return r.client.Disconnect(ctx) }

/********** reviews: writes **********/

func (r *Repo) UpsertReview(ctx context.Context, rv domain.Review) error {
	if rv.ExternalID == "" {
		return fmt.Errorf("%w: externalId required", domain.ErrInvalid)
	}
	cats := rv.Categories
	if cats == nil {
		cats = []domain.Category{}
	}
	now := r.now().UTC()
	update := bson.M{
		"$set": bson.M{
			"listingName":  rv.ListingName,
			"channel":      string(rv.Channel),
			"type":         rv.Type,
			"status":       rv.Status,
			"rating":       rv.Rating,
			"categories":   cats,
			"publicReview": rv.PublicReview,
			"guestName":    rv.GuestName,
			"submittedAt":  rv.SubmittedAt.UTC(),
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"approved":   false,
			"showPublic": false,
			"createdAt":  now,
		},
	}
	_, err := r.reviews.UpdateOne(ctx, bson.M{"externalId": rv.ExternalID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *Repo) SetFlag(ctx context.Context, id string, flag domain.ModerationFlag, value bool) (domain.Review, error) {
	var field string
	switch flag {
	case domain.FlagApproved:
		field = "approved"
	case domain.FlagShowPublic:
		field = "showPublic"
	default:
		return domain.Review{}, fmt.Errorf("%w: unknown flag %q", domain.ErrInvalid, flag)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	var doc reviewDocument
	err = r.reviews.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{field: value, "updatedAt": r.now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Review{}, err
	}
	return mapReviewDocument(doc), nil
}

/********** reviews: reads **********/

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	var doc reviewDocument
	err = r.reviews.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Review{}, err
	}
	return mapReviewDocument(doc), nil
}

func (r *Repo) ListAll(ctx context.Context) ([]domain.Review, error) {
	return r.FindReviews(ctx, domain.ReviewFilter{Sort: domain.SortSpec{Field: "submittedAt", Desc: true}})
}

func (r *Repo) FindReviews(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	opts := options.Find().SetSort(sortDoc(f.Sort))
	if f.Limit > 0 {
		opts.SetSkip(int64(f.Offset())).SetLimit(int64(f.Limit))
	}
	cursor, err := r.reviews.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domain.Review, 0)
	for cursor.Next(ctx) {
		var doc reviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, mapReviewDocument(doc))
	}
	return out, cursor.Err()
}

func (r *Repo) CountReviews(ctx context.Context, f domain.ReviewFilter) (int64, error) {
	return r.reviews.CountDocuments(ctx, buildFilter(f))
}

/********** reports **********/

func (r *Repo) Performance(ctx context.Context, w domain.DateWindow) ([]domain.ListingPerformance, error) {
	cursor, err := r.reviews.Aggregate(ctx, performancePipeline(w))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domain.ListingPerformance, 0)
	for cursor.Next(ctx) {
		var row performanceRow
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, domain.ListingPerformance{
			ListingName:    row.ListingName,
			AvgRating:      row.AvgRating,
			Total:          row.Total,
			ApprovedCount:  row.ApprovedCount,
			PublishedCount: row.PublishedCount,
		})
	}
	return out, cursor.Err()
}

func (r *Repo) Trends(ctx context.Context, q domain.TrendQuery) ([]domain.TrendPoint, error) {
	cursor, err := r.reviews.Aggregate(ctx, trendsPipeline(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domain.TrendPoint, 0)
	for cursor.Next(ctx) {
		var row trendRow
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, domain.TrendPoint{Day: row.Bucket, AvgRating: row.AvgRating, Count: row.Count})
	}
	return out, cursor.Err()
}

/********** listings **********/

func (r *Repo) ListListings(ctx context.Context) ([]domain.Listing, error) {
	cursor, err := r.listings.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "listingName", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domain.Listing, 0)
	for cursor.Next(ctx) {
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, mapListingDocument(doc))
	}
	return out, cursor.Err()
}

func (r *Repo) GetListingByName(ctx context.Context, name string) (domain.Listing, error) {
	var doc listingDocument
	err := r.listings.FindOne(ctx, bson.M{"listingName": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Listing{}, fmt.Errorf("listing %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return mapListingDocument(doc), nil
}

// UpsertListing matches by name. An empty incoming placeId keeps the stored one.
func (r *Repo) UpsertListing(ctx context.Context, l domain.Listing) error {
	if l.ListingName == "" {
		return fmt.Errorf("%w: listingName required", domain.ErrInvalid)
	}
	set := bson.M{
		"slug":        l.Slug,
		"address":     l.Address,
		"city":        l.City,
		"country":     l.Country,
		"bedrooms":    l.Bedrooms,
		"bathrooms":   l.Bathrooms,
		"sleeps":      l.Sleeps,
		"sqft":        l.Sqft,
		"nightlyFrom": l.NightlyFrom,
		"heroImage":   l.HeroImage,
		"gallery":     l.Gallery,
		"highlights":  l.Highlights,
		"description": l.Description,
	}
	if l.PlaceID != "" {
		set["placeId"] = l.PlaceID
	}
	_, err := r.listings.UpdateOne(ctx,
		bson.M{"listingName": l.ListingName},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *Repo) SetPlaceID(ctx context.Context, id, placeID string) (domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	var doc listingDocument
	err = r.listings.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"placeId": placeID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return mapListingDocument(doc), nil
}
