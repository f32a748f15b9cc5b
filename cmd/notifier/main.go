package main

import (
	"context"
	"errors"
	"wanderlust/internal/notifications"
	"wanderlust/pkg/app"
	"wanderlust/pkg/config"
	"wanderlust/pkg/kafka"
	kafka_config "wanderlust/pkg/kafka/config"
	kafka_middleware "wanderlust/pkg/kafka/middleware"
	"wanderlust/pkg/tracing"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	shutdownTracing, err := tracing.Init(ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise tracing", "error", err)
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	cfg.Log.Info("Kafka configuration loaded", kafkaCfg.LogFields()...)

	if cfg.SMTPHost == "" {
		cfg.Log.Fatal("SMTP_HOST is required for the notifier")
	}
	mailer := notifications.NewSMTPMailer(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	})

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.NotifierGroupID,
		cfg.BookingEventsDLQTopic,
		notifications.EmailHandler(mailer, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	serverApp := app.NewApplication(cfg)
	serverApp.AddWorker("booking-events-consumer", func(ctx context.Context) {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Kafka consumer stopped", "error", err)
		}
	})
	serverApp.OnShutdown(func(context.Context) error {
		return consumer.Close()
	})
	serverApp.OnShutdown(shutdownTracing)

	cfg.Log.Info("Starting Notifier service", "topic", cfg.BookingEventsTopic, "group_id", cfg.NotifierGroupID)
	serverApp.SetApp()
	serverApp.Run()
}
