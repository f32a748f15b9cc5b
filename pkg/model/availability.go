package model

type Availability struct {
	ListingID  string `json:"listing_id"`
	RoomsLeft  int    `json:"rooms_left"`
	TotalRooms int    `json:"total_rooms"`
}
