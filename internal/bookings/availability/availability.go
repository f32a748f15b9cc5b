// Package availability derives rooms left for a listing over a stay from the
// live reservation set. Nothing is cached; every call recomputes.
package availability

import (
	"context"
	"fmt"
	"time"
	"wanderlust/pkg/model"
)

// Policy selects which reservation statuses consume inventory.
type Policy struct {
	Name     string
	Statuses []string
}

var (
	// Inclusive counts held (pending) and confirmed reservations. Used for
	// admission and listing pages.
	Inclusive = Policy{Name: "inclusive", Statuses: []string{model.StatusPending, model.StatusConfirmed}}
	// ConfirmedOnly counts paid reservations only. Used by the public
	// availability query.
	ConfirmedOnly = Policy{Name: "confirmed_only", Statuses: []string{model.StatusConfirmed}}
)

type RoomCounter interface {
	SumRoomsBooked(ctx context.Context, listingID string, checkIn, checkOut time.Time, statuses []string) (int, error)
}

type Calculator struct {
	store RoomCounter
}

func NewCalculator(store RoomCounter) *Calculator {
	return &Calculator{store: store}
}

// RoomsLeft returns max(0, totalRooms - booked) for [checkIn, checkOut).
func (c *Calculator) RoomsLeft(ctx context.Context, listing *model.Listing, checkIn, checkOut time.Time, policy Policy) (int, error) {
	booked, err := c.store.SumRoomsBooked(ctx, listing.ID, checkIn, checkOut, policy.Statuses)
	if err != nil {
		return 0, fmt.Errorf("failed to sum booked rooms: %w", err)
	}
	return max(0, listing.EffectiveTotalRooms()-booked), nil
}
