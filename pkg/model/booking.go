package model

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Booking is a reservation of RoomsBooked rooms of one listing over the
// half-open stay [CheckIn, CheckOut).
type Booking struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ListingID      string    `json:"listing_id" bson:"listing_id" validate:"required,mongodb"`
	UserID         string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	GuestEmail     string    `json:"guest_email,omitempty" bson:"guest_email,omitempty" validate:"omitempty,email"`
	CheckIn        time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut       time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
	RoomsBooked    int       `json:"rooms_booked" bson:"rooms_booked" validate:"required,min=1"`
	Guests         int       `json:"guests" bson:"guests" validate:"required,min=1"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	PaymentOrderID string    `json:"payment_order_id,omitempty" bson:"payment_order_id,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

func (b *Booking) IsTerminal() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCancelled
}

// Overlaps reports whether [aIn, aOut) and [bIn, bOut) share at least one
// instant. Back-to-back stays do not overlap.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// BookingRequest is the admission command. Dates are raw user input; the
// principal fields are filled from the session, never from the body.
type BookingRequest struct {
	ListingID  string `json:"-" validate:"required,mongodb"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Rooms      int    `json:"rooms" validate:"min=1"`
	Guests     int    `json:"guests" validate:"min=1"`
	UserID     string `json:"-"`
	GuestEmail string `json:"-" validate:"omitempty,email"`
}
