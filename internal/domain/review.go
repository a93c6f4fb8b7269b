package domain

import "time"

// Channel is the booking platform a review is attributed to.
type Channel string

const (
	ChannelAirbnb  Channel = "Airbnb"
	ChannelBooking Channel = "Booking"
	ChannelGoogle  Channel = "Google"
	ChannelDirect  Channel = "Direct"
	ChannelUnknown Channel = "Unknown"
)

// Category is one sub-rating as sourced (0-10 scale). Rating is nil when the
// source entry had no usable number.
type Category struct {
	Category string   `json:"category" bson:"category"`
	Rating   *float64 `json:"rating" bson:"rating"`
}

type Review struct {
	ID           string     `json:"id"`
	ExternalID   string     `json:"externalId"`
	ListingName  string     `json:"listingName"`
	Channel      Channel    `json:"channel"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Rating       *float64   `json:"rating"` // 0..5, nil when unknown
	Categories   []Category `json:"categories"`
	PublicReview string     `json:"publicReview"`
	GuestName    string     `json:"guestName"`
	SubmittedAt  time.Time  `json:"submittedAt"`

	// moderation flags; written by the toggle operations only
	Approved   bool `json:"approved"`
	ShowPublic bool `json:"showPublic"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ModerationFlag names one of the two operator-controlled booleans.
type ModerationFlag string

const (
	FlagApproved   ModerationFlag = "approved"
	FlagShowPublic ModerationFlag = "showPublic"
)

func (r Review) Flag(f ModerationFlag) bool {
	if f == FlagShowPublic {
		return r.ShowPublic
	}
	return r.Approved
}
