package kafka_middleware

import (
	"context"
	"time"
	"wanderlust/pkg/kafka"
	"wanderlust/pkg/metrics"
)

const (
	directionPublish = "publish"
	directionConsume = "consume"
)

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		return observe(directionPublish, msg.Topic, func() error { return next(ctx, msg) })
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		return observe(directionConsume, msg.Topic, func() error { return next(ctx, msg) })
	}
}

func observe(direction, topic string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.KafkaDuration.WithLabelValues(direction, topic).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.KafkaMessages.WithLabelValues(direction, topic, outcome).Inc()
	return err
}
