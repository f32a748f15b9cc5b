package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	bookingserrors "wanderlust/internal/bookings/errors"
	"wanderlust/pkg/config"
	mongotx "wanderlust/pkg/db/mongo"
	"wanderlust/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName      = "Bookings"
	GuardCollectionName = "Inventory_guards"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	// SumRoomsBooked totals rooms of bookings of listingID in one of statuses
	// whose stay overlaps [checkIn, checkOut).
	SumRoomsBooked(ctx context.Context, listingID string, checkIn, checkOut time.Time, statuses []string) (int, error)
	// TransitionStatus moves a booking from one status to another only if it
	// is currently in from. Returns ErrStatusMismatch otherwise.
	TransitionStatus(ctx context.Context, id, from, to string) (*model.Booking, error)
	SetPaymentOrder(ctx context.Context, id, orderID string) error
	FindExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error)
	// TouchInventoryGuard writes the listing's guard document so concurrent
	// admissions for the same listing conflict inside transactions.
	TouchInventoryGuard(ctx context.Context, listingID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	guards     *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		guards:     db.Collection(GuardCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without detaching it from its session.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	booking.UpdatedAt = booking.CreatedAt
	doc, err := newBookingDocument(booking)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// newBookingDocument encodes booking with an ObjectID _id and writes the hex
// back to booking.ID. A transaction re-run finds the ID already set and
// reuses it, so the document is always keyed by an ObjectID.
func newBookingDocument(booking *model.Booking) (bson.D, error) {
	oid := primitive.NewObjectID()
	if booking.ID != "" {
		parsed, err := primitive.ObjectIDFromHex(booking.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
		}
		oid = parsed
	}

	fields := *booking
	fields.ID = ""
	raw, err := bson.Marshal(&fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode booking: %w", err)
	}
	var body bson.D
	if err := bson.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to encode booking: %w", err)
	}

	booking.ID = oid.Hex()
	return append(bson.D{{Key: "_id", Value: oid}}, body...), nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) SumRoomsBooked(ctx context.Context, listingID string, checkIn, checkOut time.Time, statuses []string) (int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildOverlapFilter(listingID, checkIn, checkOut, statuses)}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			// documents written before rooms_booked existed count as one room
			"rooms": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$rooms_booked", 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate booked rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Rooms int `bson:"rooms"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode booked rooms: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Rooms, nil
}

func buildOverlapFilter(listingID string, checkIn, checkOut time.Time, statuses []string) bson.M {
	return bson.M{
		"listing_id": listingID,
		"status":     bson.M{"$in": statuses},
		"check_in":   bson.M{"$lt": checkOut},
		"check_out":  bson.M{"$gt": checkIn},
	}
}

func (r *mongoBookingRepository) TransitionStatus(ctx context.Context, id, from, to string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": from}
	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrStatusMismatch
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) SetPaymentOrder(ctx context.Context, id, orderID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "status": model.StatusPending},
		bson.M{"$set": bson.M{
			"payment_order_id": orderID,
			"updated_at":       time.Now().UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to store payment order: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrStatusMismatch
	}
	return nil
}

func (r *mongoBookingRepository) FindExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.StatusPending,
		"created_at": bson.M{"$lt": createdBefore},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode expired bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) TouchInventoryGuard(ctx context.Context, listingID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.guards.UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{
			"$inc": bson.M{"version": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to touch inventory guard: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
