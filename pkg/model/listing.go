package model

import "time"

type ListingImage struct {
	URL      string `json:"url" bson:"url"`
	Filename string `json:"filename,omitempty" bson:"filename,omitempty"`
}

type Listing struct {
	ID          string        `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string        `json:"title" bson:"title"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	Image       *ListingImage `json:"image,omitempty" bson:"image,omitempty"`
	Price       float64       `json:"price" bson:"price"`
	Capacity    int           `json:"capacity" bson:"capacity"`
	TotalRooms  int           `json:"total_rooms" bson:"total_rooms"`
	Location    string        `json:"location" bson:"location"`
	Country     string        `json:"country" bson:"country"`
	Coordinates []float64     `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Owner       string        `json:"owner,omitempty" bson:"owner,omitempty"`
	CreatedAt   time.Time     `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// EffectiveTotalRooms treats an unset room count as a single room.
func (l *Listing) EffectiveTotalRooms() int {
	if l.TotalRooms < 1 {
		return 1
	}
	return l.TotalRooms
}

// EffectiveCapacity treats an unset capacity as one guest per room.
func (l *Listing) EffectiveCapacity() int {
	if l.Capacity < 1 {
		return 1
	}
	return l.Capacity
}

// ListingView is a listing enriched for a given search or stay.
type ListingView struct {
	*Listing
	AdjustedPrice     float64    `json:"adjusted_price"`
	RoomsLeft         int        `json:"rooms_left"`
	Breakdown         *Breakdown `json:"breakdown,omitempty"`
	RoomsLeftForRange *int       `json:"rooms_left_for_range,omitempty"`
}

type ListingQuery struct {
	Where    string
	CheckIn  *time.Time
	CheckOut *time.Time
	Guests   int
	Limit    int
	Offset   int64
}
