package repository

import (
	"context"
	"sort"
	"sync"
	"time"
	bookingserrors "wanderlust/internal/bookings/errors"
	mongotx "wanderlust/pkg/db/mongo"
	"wanderlust/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
	guards   map[string]int64
	tx       mongotx.TransactionManager
	now      func() time.Time
}

// NewMemoryBookingRepository returns a process-local store used when
// STORE_DRIVER=memory and in tests. Transactions are serialised.
func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings: map[string]*model.Booking{},
		guards:   map[string]int64{},
		tx:       mongotx.NewLocalTransactionManager(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == "" {
		booking.ID = primitive.NewObjectID().Hex()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = r.now().Truncate(time.Millisecond)
	}
	booking.UpdatedAt = booking.CreatedAt
	stored := *booking
	r.bookings[booking.ID] = &stored
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, bookingserrors.ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memoryBookingRepository) FindByUser(_ context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filter(func(b *model.Booking) bool { return b.UserID == userID })
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	end := min(int(offset)+limit, len(matched))
	return matched[offset:end], nil
}

func (r *memoryBookingRepository) CountByUser(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.filter(func(b *model.Booking) bool { return b.UserID == userID }))), nil
}

func (r *memoryBookingRepository) SumRoomsBooked(_ context.Context, listingID string, checkIn, checkOut time.Time, statuses []string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counted := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		counted[s] = true
	}

	sum := 0
	for _, b := range r.bookings {
		if b.ListingID != listingID || !counted[b.Status] {
			continue
		}
		if model.Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
			sum += b.RoomsBooked
		}
	}
	return sum, nil
}

func (r *memoryBookingRepository) TransitionStatus(_ context.Context, id, from, to string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, bookingserrors.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, bookingserrors.ErrStatusMismatch
	}
	b.Status = to
	b.UpdatedAt = r.now().Truncate(time.Millisecond)
	clone := *b
	return &clone, nil
}

func (r *memoryBookingRepository) SetPaymentOrder(_ context.Context, id, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != model.StatusPending {
		return bookingserrors.ErrStatusMismatch
	}
	b.PaymentOrderID = orderID
	b.UpdatedAt = r.now().Truncate(time.Millisecond)
	return nil
}

func (r *memoryBookingRepository) FindExpiredPending(_ context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filter(func(b *model.Booking) bool {
		return b.Status == model.StatusPending && b.CreatedAt.Before(createdBefore)
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryBookingRepository) TouchInventoryGuard(_ context.Context, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.guards[listingID]++
	return nil
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.tx.ExecuteTransaction(ctx, fn)
}

// filter returns clones; callers hold r.mu.
func (r *memoryBookingRepository) filter(keep func(b *model.Booking) bool) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.bookings {
		if keep(b) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out
}

type memoryBookingLockRepository struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

func NewMemoryBookingLockRepository() BookingLockRepository {
	return &memoryBookingLockRepository{locks: map[string]time.Time{}}
}

func (r *memoryBookingLockRepository) Create(_ context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if expiresAt, held := r.locks[lock.ID]; held && expiresAt.After(now) {
		return nil, bookingserrors.ErrLockHeld
	}
	lock.CreatedAt = now
	r.locks[lock.ID] = lock.ExpiresAt
	return lock, nil
}

func (r *memoryBookingLockRepository) Delete(_ context.Context, lockID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.locks, lockID)
	return nil
}
