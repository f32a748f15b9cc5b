package config

import "time"

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "wanderlust"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultStoreDriver       = StoreMongo

	DefaultRedisDB = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPendingBookingTTL   = 15 * time.Minute
	DefaultExpirySweepInterval = 1 * time.Minute
	DefaultBookingLockTTL      = 10 * time.Second
	DefaultLockAcquireAttempts = 5
	DefaultLockRetryDelay      = 50 * time.Millisecond
	DefaultStoreRetryAttempts  = 3
	DefaultStoreRetryDelay     = 100 * time.Millisecond

	DefaultRazorpayBaseURL       = "https://api.razorpay.com"
	DefaultPaymentCurrency       = "INR"
	DefaultPaymentRequestTimeout = 10 * time.Second

	DefaultKafkaEnabled          = false
	DefaultBookingEventsTopic    = "booking-events"
	DefaultBookingEventsDLQTopic = "booking-events-dlq"
	DefaultNotifierGroupID       = "booking-notifier"

	DefaultSMTPPort = 587

	DefaultPaginationLimit = 100
	DefaultPageSize        = 10
)
