package domain

type Listing struct {
	ID          string   `json:"id"`
	ListingName string   `json:"listingName"`
	Slug        string   `json:"slug"`
	PlaceID     string   `json:"placeId,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Country     string   `json:"country,omitempty"`
	Bedrooms    int      `json:"bedrooms,omitempty"`
	Bathrooms   int      `json:"bathrooms,omitempty"`
	Sleeps      int      `json:"sleeps,omitempty"`
	Sqft        int      `json:"sqft,omitempty"`
	NightlyFrom float64  `json:"nightlyFrom,omitempty"`
	HeroImage   string   `json:"heroImage,omitempty"`
	Gallery     []string `json:"gallery,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	Description string   `json:"description,omitempty"`
}

// PublicListing is a listing together with its publicly visible reviews.
type PublicListing struct {
	Listing Listing  `json:"listing"`
	Reviews []Review `json:"reviews"`
}
