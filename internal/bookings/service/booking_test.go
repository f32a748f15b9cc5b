package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
	"wanderlust/internal/bookings/repository"
	"wanderlust/internal/bookings/validator"
	listingsrepo "wanderlust/internal/listings/repository"
	"wanderlust/internal/payments"
	"wanderlust/pkg/config"
	apperrors "wanderlust/pkg/errors"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goaID    = "507f1f77bcf86cd799439011"
	parisID  = "507f1f77bcf86cd799439012"
	resortID = "507f1f77bcf86cd799439013"
)

type captureNotifier struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func (n *captureNotifier) Notify(_ context.Context, event model.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *captureNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// fixedSleeper waits a constant short time between lock attempts.
type fixedSleeper struct{}

func (fixedSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Millisecond):
		return nil
	}
}

type failingGateway struct{}

func (failingGateway) CreateOrder(context.Context, int64, string, string) (*model.PaymentOrder, error) {
	return nil, errors.New("gateway down")
}

type fixture struct {
	svc      *bookingService
	bookings repository.BookingRepository
	locks    repository.BookingLockRepository
	notifier *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(logger.Config{Output: io.Discard, Service: "test"})
	cfg := &config.Config{
		Log:                 log,
		PendingBookingTTL:   30 * time.Minute,
		BookingLockTTL:      10 * time.Second,
		LockAcquireAttempts: 200,
		LockRetryDelay:      time.Millisecond,
		StoreRetryAttempts:  2,
		StoreRetryDelay:     time.Millisecond,
		PaymentCurrency:     "INR",
	}
	listings := listingsrepo.NewMemoryListingRepository(
		&model.Listing{ID: goaID, Title: "Beach hut", Location: "Goa", Country: "India", Price: 100, Capacity: 2, TotalRooms: 4},
		&model.Listing{ID: parisID, Title: "Loft", Location: "Paris", Country: "France", Price: 250, Capacity: 3, TotalRooms: 10},
		&model.Listing{ID: resortID, Title: "Resort", Location: "Bali", Country: "Indonesia", Price: 80, Capacity: 2, TotalRooms: 300},
	)
	bookings := repository.NewMemoryBookingRepository()
	locks := repository.NewMemoryBookingLockRepository()
	notifier := &captureNotifier{}

	svc := newBookingService(bookings, locks, listings, validator.NewBookingValidator(log), payments.NewDemoGateway("rzp_test"), notifier, cfg)
	svc.sleeper = fixedSleeper{}
	return &fixture{svc: svc, bookings: bookings, locks: locks, notifier: notifier}
}

func (f *fixture) seed(t *testing.T, listingID, in, out string, rooms int, status string) *model.Booking {
	t.Helper()
	checkIn, checkOut, err := validator.ParseStay(in, out)
	require.NoError(t, err)
	b := &model.Booking{
		ListingID: listingID, CheckIn: checkIn, CheckOut: checkOut,
		RoomsBooked: rooms, Guests: 1, Status: status,
	}
	require.NoError(t, f.bookings.Create(context.Background(), b))
	return b
}

func request(listingID, in, out string, rooms, guests int) *model.BookingRequest {
	return &model.BookingRequest{ListingID: listingID, CheckIn: in, CheckOut: out, Rooms: rooms, Guests: guests}
}

func TestCreate_AdmitsPendingBooking(t *testing.T) {
	f := newFixture(t)
	req := request(goaID, "2025-07-10", "2025-07-13", 0, 0)
	req.UserID = "user-1"
	req.GuestEmail = " Guest@Example.com"

	booking, err := f.svc.Create(context.Background(), req)

	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, model.StatusPending, booking.Status)
	assert.Equal(t, 1, booking.RoomsBooked)
	assert.Equal(t, 1, booking.Guests)
	assert.Equal(t, "user-1", booking.UserID)
	assert.Equal(t, "guest@example.com", booking.GuestEmail)

	f.svc.pending.Wait()
	assert.Equal(t, []string{model.EventBookingCreated}, f.notifier.types())

	// lock is released after admission
	_, err = f.locks.Create(context.Background(), &model.BookingLock{ID: "listing_lock_" + goaID, ExpiresAt: time.Now().Add(time.Minute)})
	assert.NoError(t, err)
}

func TestCreate_LargeRequestLimitedOnlyByRoomsLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, request(resortID, "2025-08-01", "2025-08-05", 150, 300))
	require.NoError(t, err)
	assert.Equal(t, 150, booking.RoomsBooked)
	assert.Equal(t, 300, booking.Guests)

	_, err = f.svc.Create(ctx, request(resortID, "2025-08-02", "2025-08-04", 151, 2))
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeInsufficientAvailability, appErr.Code)
	assert.Equal(t, 150, appErr.Details[apperrors.DetailRoomsLeft])

	f.svc.pending.Wait()
}

func TestCreate_InsufficientAvailabilityReportsRoomsLeft(t *testing.T) {
	f := newFixture(t)
	f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusConfirmed)
	f.seed(t, goaID, "2025-07-11", "2025-07-14", 1, model.StatusPending)
	f.seed(t, goaID, "2025-07-10", "2025-07-12", 3, model.StatusCancelled)

	_, err := f.svc.Create(context.Background(), request(goaID, "2025-07-11", "2025-07-12", 3, 2))

	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeInsufficientAvailability, appErr.Code)
	assert.Equal(t, 2, appErr.Details[apperrors.DetailRoomsLeft])

	f.svc.pending.Wait()
	assert.Empty(t, f.notifier.types())
}

func TestCreate_BackToBackStaysDoNotCollide(t *testing.T) {
	f := newFixture(t)
	f.seed(t, goaID, "2025-07-10", "2025-07-12", 4, model.StatusConfirmed)

	_, err := f.svc.Create(context.Background(), request(goaID, "2025-07-12", "2025-07-14", 4, 1))
	assert.NoError(t, err)
}

func TestCreate_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		req      *model.BookingRequest
		wantCode string
	}{
		{"unparseable date", request(goaID, "tomorrow", "2025-07-12", 1, 1), apperrors.CodeInvalidDateRange},
		{"check-out before check-in", request(goaID, "2025-07-12", "2025-07-10", 1, 1), apperrors.CodeInvalidDateRange},
		{"same day", request(goaID, "2025-07-12", "2025-07-12", 1, 1), apperrors.CodeInvalidDateRange},
		{"more rooms than the listing has", request(goaID, "2025-07-10", "2025-07-12", 101, 1), apperrors.CodeInsufficientAvailability},
		{"bad guest email", &model.BookingRequest{ListingID: goaID, CheckIn: "2025-07-10", CheckOut: "2025-07-12", GuestEmail: "not-an-email"}, apperrors.CodeValidation},
		{"unknown listing", request("507f1f77bcf86cd799439099", "2025-07-10", "2025-07-12", 1, 1), apperrors.CodeNotFound},
		{"malformed listing id", request("nope", "2025-07-10", "2025-07-12", 1, 1), apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.AsAppError(err).Code)
		})
	}
}

func TestCreate_LockHeldIsConflict(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.LockAcquireAttempts = 2
	_, err := f.locks.Create(context.Background(), &model.BookingLock{ID: "listing_lock_" + goaID, ExpiresAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), request(goaID, "2025-07-10", "2025-07-12", 1, 1))

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestCreate_ConcurrentRequestsNeverOverbook(t *testing.T) {
	f := newFixture(t)
	const workers = 12

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), request(goaID, "2025-07-10", "2025-07-13", 1, 1))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
				return
			}
			code := apperrors.AsAppError(err).Code
			if code == apperrors.CodeInsufficientAvailability || code == apperrors.CodeConflict {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, admitted+rejected)
	assert.LessOrEqual(t, admitted, 4)
	assert.GreaterOrEqual(t, admitted, 1)

	in, out, _ := validator.ParseStay("2025-07-10", "2025-07-13")
	booked, err := f.bookings.SumRoomsBooked(context.Background(), goaID, in, out, []string{model.StatusPending, model.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, admitted, booked)
}

func TestGetAvailability_CountsConfirmedOnly(t *testing.T) {
	f := newFixture(t)
	f.seed(t, parisID, "2025-07-10", "2025-07-15", 4, model.StatusConfirmed)
	f.seed(t, parisID, "2025-07-12", "2025-07-13", 3, model.StatusPending)

	avail, err := f.svc.GetAvailability(context.Background(), parisID, "2025-07-11", "2025-07-14")

	require.NoError(t, err)
	assert.Equal(t, 6, avail.RoomsLeft)
	assert.Equal(t, 10, avail.TotalRooms)
	assert.Equal(t, parisID, avail.ListingID)
}

func TestGetAvailability_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetAvailability(context.Background(), parisID, "2025-07-14", "2025-07-11")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidDateRange))

	_, err = f.svc.GetAvailability(context.Background(), "507f1f77bcf86cd799439099", "2025-07-11", "2025-07-14")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestConfirmPayment_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusPending)

	first, err := f.svc.ConfirmPayment(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, first.Status)

	second, err := f.svc.ConfirmPayment(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, second.Status)

	f.svc.pending.Wait()
	assert.Equal(t, []string{model.EventBookingConfirmed}, f.notifier.types())
}

func TestTransitions_Conflicts(t *testing.T) {
	f := newFixture(t)
	cancelled := f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusCancelled)
	confirmed := f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusConfirmed)

	_, err := f.svc.ConfirmPayment(context.Background(), cancelled.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = f.svc.Cancel(context.Background(), confirmed.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = f.svc.ConfirmPayment(context.Background(), "507f1f77bcf86cd799439099")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Cancel(context.Background(), "bad-id")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCancel_ReleasesRoomsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, goaID, "2025-07-10", "2025-07-12", 4, model.StatusPending)

	_, err := f.svc.Create(context.Background(), request(goaID, "2025-07-10", "2025-07-12", 1, 1))
	require.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientAvailability))

	got, err := f.svc.Cancel(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = f.svc.Cancel(context.Background(), b.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), request(goaID, "2025-07-10", "2025-07-12", 4, 1))
	assert.NoError(t, err)

	f.svc.pending.Wait()
	assert.ElementsMatch(t, []string{model.EventBookingCancelled, model.EventBookingCreated}, f.notifier.types())
}

func TestCancelExpired(t *testing.T) {
	f := newFixture(t)
	stale := f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusPending)
	paid := f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusConfirmed)
	f.svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	cancelled, err := f.svc.CancelExpired(context.Background())

	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, stale.ID, cancelled[0].ID)

	got, err := f.svc.GetByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	f.svc.pending.Wait()
	assert.Equal(t, []string{model.EventBookingCancelled}, f.notifier.types())
}

func TestCancelExpired_KeepsFreshBookings(t *testing.T) {
	f := newFixture(t)
	f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusPending)

	cancelled, err := f.svc.CancelExpired(context.Background())

	require.NoError(t, err)
	assert.Empty(t, cancelled)
}

func TestCheckout_PricesStay(t *testing.T) {
	f := newFixture(t)
	booking, err := f.svc.Create(context.Background(), request(goaID, "2025-07-10", "2025-07-13", 1, 3))
	require.NoError(t, err)

	checkout, err := f.svc.Checkout(context.Background(), booking.ID)

	require.NoError(t, err)
	assert.Equal(t, 3, checkout.Breakdown.Nights)
	assert.Equal(t, 677.0, checkout.Breakdown.Total)
	assert.Equal(t, int64(67700), checkout.Order.Amount)
	assert.Equal(t, "INR", checkout.Order.Currency)
	assert.Equal(t, "booking_"+booking.ID, checkout.Order.Receipt)
	assert.Equal(t, goaID, checkout.Listing.ID)
}

func TestCheckout_Errors(t *testing.T) {
	f := newFixture(t)
	confirmed := f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusConfirmed)
	pending := f.seed(t, goaID, "2025-07-10", "2025-07-12", 1, model.StatusPending)

	_, err := f.svc.Checkout(context.Background(), confirmed.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	f.svc.gateway = failingGateway{}
	_, err = f.svc.Checkout(context.Background(), pending.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		req := request(parisID, "2025-07-10", "2025-07-12", 1, 1)
		req.UserID = "user-1"
		_, err := f.svc.Create(context.Background(), req)
		require.NoError(t, err)
	}

	bookings, total, err := f.svc.ListByUser(context.Background(), "user-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, bookings, 2)

	_, _, err = f.svc.ListByUser(context.Background(), "", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}
