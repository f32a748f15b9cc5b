package main

import (
	"context"
	"net/http"
	"wanderlust/internal/bookings/availability"
	"wanderlust/internal/bookings/expiry"
	bookinghandler "wanderlust/internal/bookings/handler"
	bookingrepo "wanderlust/internal/bookings/repository"
	bookingservice "wanderlust/internal/bookings/service"
	"wanderlust/internal/bookings/validator"
	listinghandler "wanderlust/internal/listings/handler"
	listingrepo "wanderlust/internal/listings/repository"
	listingservice "wanderlust/internal/listings/service"
	"wanderlust/internal/notifications"
	"wanderlust/internal/payments"
	"wanderlust/pkg/app"
	"wanderlust/pkg/config"
	"wanderlust/pkg/kafka"
	kafka_config "wanderlust/pkg/kafka/config"
	kafka_middleware "wanderlust/pkg/kafka/middleware"
	"wanderlust/pkg/middleware"
	"wanderlust/pkg/tracing"
)

const ServiceName = "bookings"

type stores struct {
	listings listingrepo.ListingRepository
	bookings bookingrepo.BookingRepository
	locks    bookingrepo.BookingLockRepository
}

func main() {
	cfg := config.Load(ServiceName)

	shutdownTracing, err := tracing.Init(ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise tracing", "error", err)
	}

	cfg.SetRedis()
	st := initStores(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(shutdownTracing)

	notifier := initNotifier(cfg, serverApp)
	bookingService := bookingservice.NewBookingService(
		st.bookings,
		st.locks,
		st.listings,
		validator.NewBookingValidator(cfg.Log),
		payments.NewGateway(cfg),
		notifier,
		cfg,
	)
	listingService := listingservice.NewListingService(st.listings, availability.NewCalculator(st.bookings), cfg.Log)

	var callbackGuard func(next http.Handler) http.Handler
	if cfg.PaymentWebhookSecret != "" {
		callbackGuard = middleware.PaymentSignatureVerification(cfg.PaymentWebhookSecret, cfg.Log)
		cfg.Log.Info("Payment callback signature verification enabled")
	} else {
		cfg.Log.Warn("No payment webhook secret, callbacks accepted only from booking owners")
	}

	sweeper := expiry.NewSweeper(bookingService, cfg.ExpirySweepInterval, cfg.Log)
	serverApp.AddWorker("booking-expiry", sweeper.Start)

	cfg.Log.Info("Starting Bookings service")
	serverApp.SetApp(
		listinghandler.NewListingHandler(listingService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log, callbackGuard),
	)
	serverApp.Run()
}

func initStores(cfg *config.Config) stores {
	if cfg.UsesMongo() {
		cfg.SetMongo()
		cfg.Log.Info("Using MongoDB stores", "database", cfg.MongoDatabaseName)
		return stores{
			listings: listingrepo.NewMongoListingRepository(cfg),
			bookings: bookingrepo.NewMongoBookingRepository(cfg),
			locks:    bookingrepo.NewBookingLockRepository(cfg),
		}
	}

	listings := listingrepo.NewMemoryListingRepository()
	if cfg.ListingsSeedFile != "" {
		seed, err := listingrepo.LoadSeedFile(cfg.ListingsSeedFile)
		if err != nil {
			cfg.Log.Fatal("Failed to load listings seed", "error", err, "path", cfg.ListingsSeedFile)
		}
		for _, l := range seed {
			listings.Put(l)
		}
		cfg.Log.Info("Seeded in-memory listings", "count", len(seed))
	}
	cfg.Log.Warn("Using in-memory stores; data is lost on restart")
	return stores{
		listings: listings,
		bookings: bookingrepo.NewMemoryBookingRepository(),
		locks:    bookingrepo.NewMemoryBookingLockRepository(),
	}
}

func initNotifier(cfg *config.Config, serverApp *app.Application) notifications.Notifier {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking notifications are only logged")
		return notifications.NewLogNotifier(cfg.Log)
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	cfg.Log.Info("Kafka configuration loaded", kafkaCfg.LogFields()...)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	serverApp.OnShutdown(func(context.Context) error {
		return producer.Close()
	})

	return notifications.NewKafkaNotifier(producer, ServiceName)
}
