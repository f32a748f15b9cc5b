package service

import (
	"context"
	"errors"
	"sync"
	"time"
	"wanderlust/internal/bookings/availability"
	"wanderlust/internal/bookings/pricing"
	listingserrors "wanderlust/internal/listings/errors"
	"wanderlust/internal/listings/repository"
	"wanderlust/pkg/config"
	apperrors "wanderlust/pkg/errors"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/model"
	"wanderlust/pkg/sanitizer"
)

type ListingService interface {
	Search(ctx context.Context, query model.ListingQuery) ([]*model.ListingView, int64, error)
	Show(ctx context.Context, id string, checkIn, checkOut *time.Time, guests int) (*model.ListingView, error)
}

type listingService struct {
	repo       repository.ListingRepository
	calculator *availability.Calculator
	log        *logger.Logger
}

func NewListingService(repo repository.ListingRepository, calculator *availability.Calculator, log *logger.Logger) ListingService {
	return &listingService{
		repo:       repo,
		calculator: calculator,
		log:        log,
	}
}

// Search lists listings matching query.Where. Prices are adjusted for the
// party size and rooms left are computed only when a full stay is given.
func (s *listingService) Search(ctx context.Context, query model.ListingQuery) ([]*model.ListingView, int64, error) {
	limit := config.NormalizePaginationLimit(query.Limit)
	offset := config.NormalizeOffset(query.Offset)
	query.Where = sanitizer.NormalizeSearchTerm(query.Where)

	var count int64
	var listings []*model.Listing
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, query.Where)
	}()

	go func() {
		defer wg.Done()
		listings, errFind = s.repo.Search(ctx, query.Where, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		s.log.Error("Failed to count listings", "where", query.Where, "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count listings", errCount)
	}
	if errFind != nil {
		s.log.Error("Failed to search listings", "where", query.Where, "error", errFind)
		return nil, 0, apperrors.Internal("Failed to search listings", errFind)
	}

	views := make([]*model.ListingView, 0, len(listings))
	for _, l := range listings {
		view := &model.ListingView{
			Listing:       l,
			AdjustedPrice: l.Price,
			RoomsLeft:     l.EffectiveTotalRooms(),
		}
		if query.Guests > 0 {
			view.AdjustedPrice = pricing.AdjustedPrice(l, query.Guests)
		}
		if query.CheckIn != nil && query.CheckOut != nil {
			left, err := s.calculator.RoomsLeft(ctx, l, *query.CheckIn, *query.CheckOut, availability.Inclusive)
			if err != nil {
				s.log.Error("Failed to compute rooms left", "listing_id", l.ID, "error", err)
				return nil, 0, apperrors.Internal("Failed to compute availability", err)
			}
			view.RoomsLeft = left
		}
		views = append(views, view)
	}

	return views, count, nil
}

func (s *listingService) Show(ctx context.Context, id string, checkIn, checkOut *time.Time, guests int) (*model.ListingView, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) || errors.Is(err, listingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Listing", id)
		}
		s.log.Error("Failed to load listing", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve listing", err)
	}

	view := &model.ListingView{
		Listing:       listing,
		AdjustedPrice: listing.Price,
		RoomsLeft:     listing.EffectiveTotalRooms(),
	}
	if guests > 0 {
		view.AdjustedPrice = pricing.AdjustedPrice(listing, guests)
	}
	if checkIn == nil || checkOut == nil || guests <= 0 {
		return view, nil
	}

	breakdown := pricing.Estimate(listing, *checkIn, *checkOut, guests)
	left, err := s.calculator.RoomsLeft(ctx, listing, *checkIn, *checkOut, availability.Inclusive)
	if err != nil {
		s.log.Error("Failed to compute rooms left", "listing_id", listing.ID, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	view.Breakdown = &breakdown
	view.RoomsLeftForRange = &left
	view.RoomsLeft = left
	return view, nil
}
