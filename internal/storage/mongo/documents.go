package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"flex_reviews/internal/domain"
)

type reviewDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	ExternalID   string             `bson:"externalId"`
	ListingName  string             `bson:"listingName"`
	Channel      string             `bson:"channel"`
	Type         string             `bson:"type"`
	Status       string             `bson:"status"`
	Rating       *float64           `bson:"rating"`
	Categories   []domain.Category  `bson:"categories"`
	PublicReview string             `bson:"publicReview"`
	GuestName    string             `bson:"guestName"`
	SubmittedAt  time.Time          `bson:"submittedAt"`
	Approved     bool               `bson:"approved"`
	ShowPublic   bool               `bson:"showPublic"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func mapReviewDocument(doc reviewDocument) domain.Review {
	cats := append([]domain.Category{}, doc.Categories...)
	return domain.Review{
		ID:           doc.ID.Hex(),
		ExternalID:   doc.ExternalID,
		ListingName:  doc.ListingName,
		Channel:      domain.Channel(doc.Channel),
		Type:         doc.Type,
		Status:       doc.Status,
		Rating:       doc.Rating,
		Categories:   cats,
		PublicReview: doc.PublicReview,
		GuestName:    doc.GuestName,
		SubmittedAt:  doc.SubmittedAt.UTC(),
		Approved:     doc.Approved,
		ShowPublic:   doc.ShowPublic,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
}

type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	ListingName string             `bson:"listingName"`
	Slug        string             `bson:"slug,omitempty"`
	PlaceID     string             `bson:"placeId,omitempty"`
	Address     string             `bson:"address,omitempty"`
	City        string             `bson:"city,omitempty"`
	Country     string             `bson:"country,omitempty"`
	Bedrooms    int                `bson:"bedrooms,omitempty"`
	Bathrooms   int                `bson:"bathrooms,omitempty"`
	Sleeps      int                `bson:"sleeps,omitempty"`
	Sqft        int                `bson:"sqft,omitempty"`
	NightlyFrom float64            `bson:"nightlyFrom,omitempty"`
	HeroImage   string             `bson:"heroImage,omitempty"`
	Gallery     []string           `bson:"gallery,omitempty"`
	Highlights  []string           `bson:"highlights,omitempty"`
	Description string             `bson:"description,omitempty"`
}

func mapListingDocument(doc listingDocument) domain.Listing {
	return domain.Listing{
		ID:          doc.ID.Hex(),
		ListingName: doc.ListingName,
		Slug:        doc.Slug,
		PlaceID:     doc.PlaceID,
		Address:     doc.Address,
		City:        doc.City,
		Country:     doc.Country,
		Bedrooms:    doc.Bedrooms,
		Bathrooms:   doc.Bathrooms,
		Sleeps:      doc.Sleeps,
		Sqft:        doc.Sqft,
		NightlyFrom: doc.NightlyFrom,
		HeroImage:   doc.HeroImage,
		Gallery:     doc.Gallery,
		Highlights:  doc.Highlights,
		Description: doc.Description,
	}
}

type performanceRow struct {
	ListingName    string   `bson:"_id"`
	AvgRating      *float64 `bson:"avgRating"`
	Total          int64    `bson:"total"`
	ApprovedCount  int64    `bson:"approvedCount"`
	PublishedCount int64    `bson:"publishedCount"`
}

type trendRow struct {
	Bucket    string   `bson:"_id"`
	AvgRating *float64 `bson:"avgRating"`
	Count     int64    `bson:"count"`
}
