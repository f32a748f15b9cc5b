package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"wanderlust/internal/bookings/availability"
	bookingserrors "wanderlust/internal/bookings/errors"
	"wanderlust/internal/bookings/pricing"
	"wanderlust/internal/bookings/repository"
	"wanderlust/internal/bookings/validator"
	listingserrors "wanderlust/internal/listings/errors"
	"wanderlust/internal/notifications"
	"wanderlust/internal/payments"
	"wanderlust/pkg/config"
	mongotx "wanderlust/pkg/db/mongo"
	apperrors "wanderlust/pkg/errors"
	"wanderlust/pkg/metrics"
	"wanderlust/pkg/model"
	"wanderlust/pkg/retry"
	"wanderlust/pkg/sanitizer"
	"wanderlust/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const expiryBatchSize = 100

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	GetAvailability(ctx context.Context, listingID, checkIn, checkOut string) (*model.Availability, error)
	ConfirmPayment(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	Checkout(ctx context.Context, id string) (*model.Checkout, error)
	CancelExpired(ctx context.Context) ([]*model.Booking, error)
}

// ListingFinder is the read-only view of listings the admission path needs.
type ListingFinder interface {
	FindByID(ctx context.Context, id string) (*model.Listing, error)
}

type bookingService struct {
	repo       repository.BookingRepository
	lockRepo   repository.BookingLockRepository
	listings   ListingFinder
	calculator *availability.Calculator
	validator  *validator.BookingValidator
	gateway    payments.Gateway
	notifier   notifications.Notifier
	cfg        *config.Config
	sleeper    retry.Sleeper
	now        func() time.Time
	// notifications run detached from the request; tests wait on this
	pending sync.WaitGroup
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	listings ListingFinder,
	validator *validator.BookingValidator,
	gateway payments.Gateway,
	notifier notifications.Notifier,
	cfg *config.Config,
) BookingService {
	return newBookingService(repo, lockRepo, listings, validator, gateway, notifier, cfg)
}

func newBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	listings ListingFinder,
	validator *validator.BookingValidator,
	gateway payments.Gateway,
	notifier notifications.Notifier,
	cfg *config.Config,
) *bookingService {
	return &bookingService{
		repo:       repo,
		lockRepo:   lockRepo,
		listings:   listings,
		calculator: availability.NewCalculator(repo),
		validator:  validator,
		gateway:    gateway,
		notifier:   notifier,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create admits a booking request. The availability check and the insert run
// under the listing's advisory lock and inside one transaction that first
// bumps the listing's inventory guard, so two overlapping admissions can never
// both commit against the same snapshot.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	ctx, span := tracing.Start(ctx, "bookings.Create", attribute.String("listing_id", req.ListingID))
	booking, err := s.create(ctx, req)
	tracing.End(span, err)
	return booking, err
}

func (s *bookingService) create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	checkIn, checkOut, err := validator.ParseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		metrics.BookingsRejected.WithLabelValues(metrics.ReasonInvalid).Inc()
		return nil, apperrors.InvalidDateRange("Invalid dates")
	}
	req.Rooms = max(1, req.Rooms)
	req.Guests = max(1, req.Guests)
	req.GuestEmail = sanitizer.NormalizeEmail(req.GuestEmail)
	if err := s.validator.ValidateRequest(req); err != nil {
		metrics.BookingsRejected.WithLabelValues(metrics.ReasonInvalid).Inc()
		return nil, s.validationError(err)
	}

	listing, err := s.findListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ListingID:   listing.ID,
		UserID:      req.UserID,
		GuestEmail:  req.GuestEmail,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		RoomsBooked: req.Rooms,
		Guests:      req.Guests,
		Status:      model.StatusPending,
	}
	if err := s.validator.Validate(booking); err != nil {
		return nil, s.validationError(err)
	}

	lockID, err := s.acquireListingLock(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(context.WithoutCancel(ctx), lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.TouchInventoryGuard(txCtx, listing.ID); err != nil {
			return apperrors.Internal("Failed to reserve inventory", err)
		}
		left, err := s.calculator.RoomsLeft(txCtx, listing, checkIn, checkOut, availability.Inclusive)
		if err != nil {
			return apperrors.Internal("Failed to compute availability", err)
		}
		if booking.RoomsBooked > left {
			return apperrors.InsufficientAvailability(left)
		}
		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInsufficientAvailability) {
			metrics.BookingsRejected.WithLabelValues(metrics.ReasonInsufficient).Inc()
			s.cfg.Log.Ctx(ctx).Info("Booking rejected, not enough rooms",
				"listing_id", listing.ID,
				"rooms", booking.RoomsBooked,
				"check_in", checkIn,
				"check_out", checkOut,
			)
			return nil, err
		}
		s.cfg.Log.Ctx(ctx).Error("Failed to create booking", "listing_id", listing.ID, "error", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	metrics.BookingsAdmitted.Inc()
	s.cfg.Log.Ctx(ctx).Info("Booking created successfully",
		"id", booking.ID,
		"listing_id", booking.ListingID,
		"rooms", booking.RoomsBooked,
		"check_in", booking.CheckIn,
		"check_out", booking.CheckOut,
	)
	s.notify(ctx, model.EventBookingCreated, booking)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.findBooking(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("Sign in to see your bookings")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID)
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		s.cfg.Log.Error("Failed to count bookings", "user_id", userID, "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count bookings", errCount)
	}
	if errFind != nil {
		s.cfg.Log.Error("Failed to list bookings", "user_id", userID, "limit", limit, "offset", offset, "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", errFind)
	}
	return bookings, count, nil
}

// GetAvailability answers the public availability query. Only confirmed
// bookings count here, unlike admission and the listing pages.
func (s *bookingService) GetAvailability(ctx context.Context, listingID, checkIn, checkOut string) (*model.Availability, error) {
	in, out, err := validator.ParseStay(checkIn, checkOut)
	if err != nil {
		return nil, apperrors.InvalidDateRange("Invalid dates")
	}
	listing, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	left, err := retry.Do(ctx, s.readPolicy(), func(ctx context.Context) (int, error) {
		return s.calculator.RoomsLeft(ctx, listing, in, out, availability.ConfirmedOnly)
	})
	if err != nil {
		s.cfg.Log.Error("Failed to compute availability", "listing_id", listingID, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}

	return &model.Availability{
		ListingID:  listing.ID,
		RoomsLeft:  left,
		TotalRooms: listing.EffectiveTotalRooms(),
	}, nil
}

// ConfirmPayment moves a pending booking to confirmed. Confirming twice is a
// no-op and only the first call notifies the guest.
func (s *bookingService) ConfirmPayment(ctx context.Context, id string) (*model.Booking, error) {
	booking, changed, err := s.transition(ctx, id, model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(ctx, model.EventBookingConfirmed, booking)
	}
	return booking, nil
}

// Cancel releases a pending booking. Cancelling twice is a no-op; a
// confirmed booking cannot be cancelled here.
func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	booking, changed, err := s.transition(ctx, id, model.StatusPending, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(ctx, model.EventBookingCancelled, booking)
	}
	return booking, nil
}

// transition applies from -> to. When the booking is already in to it
// reports changed=false; any other state is a conflict.
func (s *bookingService) transition(ctx context.Context, id, from, to string) (*model.Booking, bool, error) {
	if id == "" {
		return nil, false, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.TransitionStatus(ctx, id, from, to)
	if err == nil {
		metrics.BookingTransitions.WithLabelValues(to).Inc()
		s.cfg.Log.Ctx(ctx).Info("Booking status changed", "id", id, "from", from, "to", to)
		return booking, true, nil
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return nil, false, apperrors.NotFoundWithID("Booking", id)
	}
	if !errors.Is(err, bookingserrors.ErrStatusMismatch) {
		s.cfg.Log.Ctx(ctx).Error("Failed to update booking status", "id", id, "to", to, "error", err)
		return nil, false, apperrors.Internal("Failed to update booking", err)
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.Status == to {
		return current, false, nil
	}
	return nil, false, apperrors.Conflict(fmt.Sprintf("Booking is %s and cannot become %s", current.Status, to))
}

// Checkout prices a pending booking and opens a payment order for it.
func (s *bookingService) Checkout(ctx context.Context, id string) (*model.Checkout, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.StatusPending {
		return nil, apperrors.Conflict(fmt.Sprintf("Booking is %s and cannot be paid", booking.Status))
	}
	listing, err := s.findListing(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}

	breakdown := pricing.Estimate(listing, booking.CheckIn, booking.CheckOut, booking.Guests)
	order, err := s.gateway.CreateOrder(ctx, breakdown.MinorUnits(), s.cfg.PaymentCurrency, payments.Receipt(booking.ID))
	if err != nil {
		s.cfg.Log.Ctx(ctx).Error("Failed to create payment order", "id", booking.ID, "amount", breakdown.MinorUnits(), "error", err)
		return nil, apperrors.Unavailable("Payment gateway")
	}

	if order.ID != "" {
		if err := s.repo.SetPaymentOrder(ctx, booking.ID, order.ID); err != nil {
			if errors.Is(err, bookingserrors.ErrStatusMismatch) {
				return nil, apperrors.Conflict("Booking is no longer pending")
			}
			s.cfg.Log.Ctx(ctx).Error("Failed to store payment order", "id", booking.ID, "order_id", order.ID, "error", err)
			return nil, apperrors.Internal("Failed to store payment order", err)
		}
		booking.PaymentOrderID = order.ID
	}

	return &model.Checkout{
		Booking:   booking,
		Listing:   listing,
		Breakdown: breakdown,
		Order:     order,
	}, nil
}

// CancelExpired cancels pending bookings older than PendingBookingTTL. A
// booking confirmed concurrently is skipped by the conditional update.
func (s *bookingService) CancelExpired(ctx context.Context) ([]*model.Booking, error) {
	cutoff := s.now().Add(-s.cfg.PendingBookingTTL)
	stale, err := retry.Do(ctx, s.readPolicy(), func(ctx context.Context) ([]*model.Booking, error) {
		return s.repo.FindExpiredPending(ctx, cutoff, expiryBatchSize)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}

	var cancelled []*model.Booking
	for _, b := range stale {
		booking, err := s.repo.TransitionStatus(ctx, b.ID, model.StatusPending, model.StatusCancelled)
		if err != nil {
			if !errors.Is(err, bookingserrors.ErrStatusMismatch) {
				s.cfg.Log.Warn("Failed to expire booking", "id", b.ID, "error", err)
			}
			continue
		}
		metrics.BookingTransitions.WithLabelValues(model.StatusCancelled).Inc()
		s.notify(ctx, model.EventBookingCancelled, booking)
		cancelled = append(cancelled, booking)
	}
	return cancelled, nil
}

// --- Helpers ---

func (s *bookingService) readPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: s.cfg.StoreRetryAttempts,
		BaseDelay:   s.cfg.StoreRetryDelay,
		Retryable:   mongotx.IsTransient,
		Sleeper:     s.sleeper,
	}
}

func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	return retry.Do(ctx, s.readPolicy(), func(ctx context.Context) (*model.Booking, error) {
		return s.repo.FindByID(ctx, id)
	})
}

func (s *bookingService) findListing(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := retry.Do(ctx, s.readPolicy(), func(ctx context.Context) (*model.Listing, error) {
		return s.listings.FindByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) || errors.Is(err, listingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Listing", id)
		}
		s.cfg.Log.Error("Failed to load listing", "listing_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve listing", err)
	}
	return listing, nil
}

func (s *bookingService) validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", verrs.Details())
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}

// acquireListingLock takes the listing's advisory lock, retrying while
// another admission holds it.
func (s *bookingService) acquireListingLock(ctx context.Context, listingID string) (string, error) {
	lockID := "listing_lock_" + listingID

	policy := retry.Policy{
		MaxAttempts: s.cfg.LockAcquireAttempts,
		BaseDelay:   s.cfg.LockRetryDelay,
		Retryable: func(err error) bool {
			if errors.Is(err, bookingserrors.ErrLockHeld) {
				metrics.LockContention.Inc()
				return true
			}
			return false
		},
		Sleeper: s.sleeper,
	}
	_, err := retry.Do(ctx, policy, func(ctx context.Context) (*model.BookingLock, error) {
		return s.lockRepo.Create(ctx, &model.BookingLock{
			ID:        lockID,
			ExpiresAt: s.now().Add(s.cfg.BookingLockTTL),
		})
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			metrics.BookingsRejected.WithLabelValues(metrics.ReasonLockHeld).Inc()
			return "", apperrors.Conflict("This listing is being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}
	return lockID, nil
}

// notify publishes eventType in the background. Failures are logged only.
func (s *bookingService) notify(ctx context.Context, eventType string, booking *model.Booking) {
	event := model.NewBookingEvent(eventType, booking)
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.cfg.Log.Ctx(ctx).Warn("Failed to send booking notification",
				"id", event.BookingID,
				"type", eventType,
				"error", err,
			)
		}
	}()
}
