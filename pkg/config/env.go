package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvStoreDriver       = "STORE_DRIVER"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvPendingBookingTTL   = "PENDING_BOOKING_TTL"
	EnvExpirySweepInterval = "EXPIRY_SWEEP_INTERVAL"
	EnvBookingLockTTL      = "BOOKING_LOCK_TTL"
	EnvLockAcquireAttempts = "LOCK_ACQUIRE_ATTEMPTS"
	EnvLockRetryDelay      = "LOCK_RETRY_DELAY"
	EnvStoreRetryAttempts  = "STORE_RETRY_ATTEMPTS"
	EnvStoreRetryDelay     = "STORE_RETRY_DELAY"

	EnvRazorpayKeyID         = "RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "RAZORPAY_KEY_SECRET"
	EnvRazorpayBaseURL       = "RAZORPAY_BASE_URL"
	EnvPaymentWebhookSecret  = "PAYMENT_WEBHOOK_SECRET"
	EnvPaymentCurrency       = "PAYMENT_CURRENCY"
	EnvPaymentRequestTimeout = "PAYMENT_REQUEST_TIMEOUT"

	EnvJWTSecret = "JWT_SECRET"

	EnvKafkaEnabled          = "KAFKA_ENABLED"
	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"
	EnvNotifierGroupID       = "NOTIFIER_GROUP_ID"

	EnvSMTPHost = "SMTP_HOST"
	EnvSMTPPort = "SMTP_PORT"
	EnvSMTPUser = "SMTP_USER"
	EnvSMTPPass = "SMTP_PASS"
	EnvSMTPFrom = "SMTP_FROM"

	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

	EnvListingsSeedFile = "LISTINGS_SEED_FILE"
)
