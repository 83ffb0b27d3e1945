// Package config reads service configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strings"
	"time"

	"didreg/internal/domain"
)

// Server captures everything the registrar process needs at startup.
type Server struct {
	Addr string

	// Network generated identifiers are issued on.
	Network string

	// UpstreamEndpoint is the ledger-facing endpoint a production registrar
	// would submit to. The registrar itself never calls it; it is logged at
	// startup so operators can see what a deployment points at.
	UpstreamEndpoint string

	// JobTTL is the expiry window for unfinished jobs; SweepInterval is how
	// often the background sweep looks for them.
	JobTTL        time.Duration
	SweepInterval time.Duration

	// VerifySignatures enables Ed25519 checking of signing responses.
	VerifySignatures bool

	// RedisURL switches the job table to Redis when set.
	RedisURL string

	// PostgresDSN switches document persistence to Postgres when set.
	PostgresDSN string

	// KafkaBrokers/KafkaTopic enable the Kafka audit sink when set.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables, applying
// development defaults for anything unset.
func FromEnv() Server {
	cfg := Server{
		Addr:             getenv("DIDREG_ADDR", ":9080"),
		Network:          getenv("DIDREG_NETWORK", domain.NetworkTestnet),
		UpstreamEndpoint: os.Getenv("DIDREG_UPSTREAM_ENDPOINT"),
		JobTTL:           getduration("DIDREG_JOB_TTL", 5*time.Minute),
		SweepInterval:    getduration("DIDREG_SWEEP_INTERVAL", 30*time.Second),
		VerifySignatures: os.Getenv("DIDREG_VERIFY_SIGNATURES") == "true",
		RedisURL:         os.Getenv("DIDREG_REDIS_URL"),
		PostgresDSN:      os.Getenv("DIDREG_POSTGRES_DSN"),
		KafkaTopic:       getenv("DIDREG_KAFKA_TOPIC", "didreg.audit"),
	}
	if brokers := os.Getenv("DIDREG_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
