package expiry

import (
	"context"
	"time"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/model"
)

type bookingCanceller interface {
	CancelExpired(ctx context.Context) ([]*model.Booking, error)
}

// Sweeper periodically cancels pending bookings whose payment window has
// passed, so abandoned checkouts stop holding rooms.
type Sweeper struct {
	bookings bookingCanceller
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(bookings bookingCanceller, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		interval: interval,
		log:      log,
	}
}

// Start blocks until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Expiry sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	cancelled, err := s.bookings.CancelExpired(ctx)
	if err != nil {
		s.log.Error("Failed to cancel expired bookings", "error", err)
		return
	}

	for _, b := range cancelled {
		s.log.Info("Booking expired",
			"id", b.ID,
			"listing_id", b.ListingID,
			"user_id", b.UserID,
		)
	}
}
