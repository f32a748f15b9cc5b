package notifications

import (
	"context"
	"fmt"
	"wanderlust/pkg/kafka"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/model"
)

// Notifier delivers booking lifecycle events to the guest. Callers treat a
// failure as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, event model.BookingEvent) error
}

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaNotifier hands events to the notifier service over Kafka, keyed by
// booking so the events of one booking stay ordered.
type KafkaNotifier struct {
	producer publisher
	source   string
}

func NewKafkaNotifier(producer publisher, source string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, source: source}
}

func (n *KafkaNotifier) Notify(ctx context.Context, event model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(n.source).
		WithCorrelationID(logger.RequestID(ctx)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", event.Type, err)
	}
	if err := n.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// LogNotifier only logs; used when Kafka is disabled.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, event model.BookingEvent) error {
	n.log.Info("Booking notification",
		"type", event.Type,
		"booking_id", event.BookingID,
		"listing_id", event.ListingID,
		"status", event.Status,
		"has_email", event.GuestEmail != "",
	)
	return nil
}
