package model

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
)

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestBooking_Validation(t *testing.T) {
	validate := validator.New()

	valid := func() *Booking {
		return &Booking{
			ListingID:   "507f1f77bcf86cd799439011",
			CheckIn:     day(10),
			CheckOut:    day(13),
			RoomsBooked: 1,
			Guests:      2,
			Status:      StatusPending,
		}
	}

	tests := []struct {
		name        string
		mutate      func(b *Booking)
		expectValid bool
	}{
		{"valid pending booking", func(b *Booking) {}, true},
		{"valid with guest email", func(b *Booking) { b.GuestEmail = "guest@example.com" }, true},
		{"bad listing id", func(b *Booking) { b.ListingID = "listing-1" }, false},
		{"missing listing id", func(b *Booking) { b.ListingID = "" }, false},
		{"check out equals check in", func(b *Booking) { b.CheckOut = b.CheckIn }, false},
		{"check out before check in", func(b *Booking) { b.CheckOut = day(9) }, false},
		{"zero rooms", func(b *Booking) { b.RoomsBooked = 0 }, false},
		{"zero guests", func(b *Booking) { b.Guests = 0 }, false},
		{"unknown status", func(b *Booking) { b.Status = "expired" }, false},
		{"bad email", func(b *Booking) { b.GuestEmail = "not-an-email" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(b)
			err := validate.Struct(b)
			if tt.expectValid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.expectValid && err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		aIn  time.Time
		aOut time.Time
		want bool
	}{
		{"identical", day(10), day(13), true},
		{"contained", day(11), day(12), true},
		{"covering", day(1), day(20), true},
		{"tail overlap", day(12), day(15), true},
		{"head overlap", day(8), day(11), true},
		{"ends at check in", day(7), day(10), false},
		{"starts at check out", day(13), day(15), false},
		{"disjoint", day(20), day(22), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aIn, tt.aOut, day(10), day(13)); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListing_Effective(t *testing.T) {
	l := &Listing{}
	if l.EffectiveTotalRooms() != 1 {
		t.Errorf("unset total rooms should count as 1, got %d", l.EffectiveTotalRooms())
	}
	if l.EffectiveCapacity() != 1 {
		t.Errorf("unset capacity should count as 1, got %d", l.EffectiveCapacity())
	}

	l = &Listing{TotalRooms: 10, Capacity: 4}
	if l.EffectiveTotalRooms() != 10 || l.EffectiveCapacity() != 4 {
		t.Errorf("explicit values should be kept, got %d/%d", l.EffectiveTotalRooms(), l.EffectiveCapacity())
	}
}

func TestBreakdown_MinorUnits(t *testing.T) {
	b := Breakdown{Total: 677}
	if got := b.MinorUnits(); got != 67700 {
		t.Errorf("MinorUnits() = %d, want 67700", got)
	}
}

func TestBooking_IsTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending:   false,
		StatusConfirmed: true,
		StatusCancelled: true,
	} {
		b := &Booking{Status: status}
		if b.IsTerminal() != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, b.IsTerminal(), want)
		}
	}
}
