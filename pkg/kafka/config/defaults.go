package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all replicas
	DefaultProducerCompression  = "snappy"

	DefaultConsumerStartOffset     = -2 // oldest, so a fresh notifier group sees the backlog
	DefaultConsumerMaxWait         = 500 * time.Millisecond
	DefaultConsumerCommitInterval  = 0 // synchronous commits
	DefaultConsumerSessionTimeout  = 10 * time.Second
	DefaultConsumerMaxRetries      = 3
	DefaultConsumerRetryBackoff    = 500 * time.Millisecond
	DefaultConsumerFetchErrorDelay = 1 * time.Second
)
