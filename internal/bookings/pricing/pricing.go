// Package pricing estimates the price of a stay.
package pricing

import (
	"math"
	"time"
	"wanderlust/pkg/model"
)

const (
	ServiceFeeRate  = 0.12
	CleaningFeeRate = 0.05
)

// Estimate prices a stay of guests people at listing over [checkIn, checkOut).
// Rooms are priced in groups of listing capacity and every stay is at least
// one night.
func Estimate(listing *model.Listing, checkIn, checkOut time.Time, guests int) model.Breakdown {
	nights := Nights(checkIn, checkOut)
	groups := Groups(guests, listing.EffectiveCapacity())

	perNight := listing.Price * float64(groups)
	subtotal := perNight * float64(nights)
	serviceFee := roundHalfUp(subtotal * ServiceFeeRate)
	cleaningFee := roundHalfUp(listing.Price * CleaningFeeRate)

	return model.Breakdown{
		Nights:      nights,
		Groups:      groups,
		PerNight:    perNight,
		Subtotal:    subtotal,
		ServiceFee:  serviceFee,
		CleaningFee: cleaningFee,
		Total:       subtotal + serviceFee + cleaningFee,
	}
}

// AdjustedPrice is the nightly price for guests people at listing.
func AdjustedPrice(listing *model.Listing, guests int) float64 {
	return listing.Price * float64(Groups(guests, listing.EffectiveCapacity()))
}

func Nights(checkIn, checkOut time.Time) int {
	days := checkOut.Sub(checkIn).Hours() / 24
	return max(1, int(roundHalfUp(days)))
}

func Groups(guests, capacity int) int {
	guests = max(1, guests)
	capacity = max(1, capacity)
	return (guests + capacity - 1) / capacity
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
