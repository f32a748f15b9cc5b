package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
	"wanderlust/pkg/client"
	"wanderlust/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	StoreDriver       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	PendingBookingTTL   time.Duration
	ExpirySweepInterval time.Duration
	BookingLockTTL      time.Duration
	LockAcquireAttempts int
	LockRetryDelay      time.Duration
	StoreRetryAttempts  int
	StoreRetryDelay     time.Duration

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayBaseURL       string
	PaymentWebhookSecret  string
	PaymentCurrency       string
	PaymentRequestTimeout time.Duration

	JWTSecret string

	KafkaEnabled          bool
	BookingEventsTopic    string
	BookingEventsDLQTopic string
	NotifierGroupID       string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	OTLPEndpoint string

	ListingsSeedFile string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads .env (when present) and the environment, validates the result
// and exits the process on invalid configuration.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		StoreDriver:       getEnvStr(EnvStoreDriver, DefaultStoreDriver),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		PendingBookingTTL:   getEnvDuration(EnvPendingBookingTTL, DefaultPendingBookingTTL),
		ExpirySweepInterval: getEnvDuration(EnvExpirySweepInterval, DefaultExpirySweepInterval),
		BookingLockTTL:      getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		LockAcquireAttempts: getEnvNum(EnvLockAcquireAttempts, DefaultLockAcquireAttempts),
		LockRetryDelay:      getEnvDuration(EnvLockRetryDelay, DefaultLockRetryDelay),
		StoreRetryAttempts:  getEnvNum(EnvStoreRetryAttempts, DefaultStoreRetryAttempts),
		StoreRetryDelay:     getEnvDuration(EnvStoreRetryDelay, DefaultStoreRetryDelay),

		RazorpayKeyID:         getEnvStr(EnvRazorpayKeyID, ""),
		RazorpayKeySecret:     getEnvStr(EnvRazorpayKeySecret, ""),
		RazorpayBaseURL:       getEnvStr(EnvRazorpayBaseURL, DefaultRazorpayBaseURL),
		PaymentWebhookSecret:  getEnvStr(EnvPaymentWebhookSecret, ""),
		PaymentCurrency:       getEnvStr(EnvPaymentCurrency, DefaultPaymentCurrency),
		PaymentRequestTimeout: getEnvDuration(EnvPaymentRequestTimeout, DefaultPaymentRequestTimeout),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		KafkaEnabled:          getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDLQTopic: getEnvStr(EnvBookingEventsDLQTopic, DefaultBookingEventsDLQTopic),
		NotifierGroupID:       getEnvStr(EnvNotifierGroupID, DefaultNotifierGroupID),

		SMTPHost: getEnvStr(EnvSMTPHost, ""),
		SMTPPort: getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUser: getEnvStr(EnvSMTPUser, ""),
		SMTPPass: getEnvStr(EnvSMTPPass, ""),
		SMTPFrom: getEnvStr(EnvSMTPFrom, ""),

		OTLPEndpoint: getEnvStr(EnvOTLPEndpoint, ""),

		ListingsSeedFile: getEnvStr(EnvListingsSeedFile, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis is a no-op when REDIS_ADDR is empty.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) UsesMongo() bool {
	return cfg.StoreDriver == StoreMongo
}

func (cfg *Config) PaymentsLive() bool {
	return cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != ""
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case StoreMemory:
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be %q or %q, got: %q", StoreMongo, StoreMemory, cfg.StoreDriver))
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"PendingBookingTTL", cfg.PendingBookingTTL},
		{"ExpirySweepInterval", cfg.ExpirySweepInterval},
		{"BookingLockTTL", cfg.BookingLockTTL},
		{"LockRetryDelay", cfg.LockRetryDelay},
		{"StoreRetryDelay", cfg.StoreRetryDelay},
		{"PaymentRequestTimeout", cfg.PaymentRequestTimeout},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.LockAcquireAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("LockAcquireAttempts must be positive, got: %d", cfg.LockAcquireAttempts))
	}
	if cfg.StoreRetryAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("StoreRetryAttempts must be positive, got: %d", cfg.StoreRetryAttempts))
	}

	if (cfg.RazorpayKeyID == "") != (cfg.RazorpayKeySecret == "") {
		errors = append(errors, "RazorpayKeyID and RazorpayKeySecret must be set together")
	}
	if cfg.PaymentsLive() && cfg.PaymentWebhookSecret == "" {
		errors = append(errors, "PaymentWebhookSecret is required when Razorpay keys are set")
	}
	if len(cfg.PaymentCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("PaymentCurrency must be a 3-letter ISO code, got: %q", cfg.PaymentCurrency))
	}

	if cfg.KafkaEnabled && cfg.BookingEventsTopic == "" {
		errors = append(errors, "BookingEventsTopic cannot be empty when Kafka is enabled")
	}
	if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_enabled", cfg.RedisAddr != "",
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"pending_booking_ttl", cfg.PendingBookingTTL,
		"expiry_sweep_interval", cfg.ExpirySweepInterval,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"lock_acquire_attempts", cfg.LockAcquireAttempts,
		"store_retry_attempts", cfg.StoreRetryAttempts,
		"payments_live", cfg.PaymentsLive(),
		"payment_currency", cfg.PaymentCurrency,
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"jwt_secret_set", cfg.JWTSecret != "",
		"kafka_enabled", cfg.KafkaEnabled,
		"booking_events_topic", cfg.BookingEventsTopic,
		"smtp_host", cfg.SMTPHost,
		"tracing_enabled", cfg.OTLPEndpoint != "",
		"listings_seed_file", cfg.ListingsSeedFile,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
