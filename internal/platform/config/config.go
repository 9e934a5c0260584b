// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// them.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures everything the process needs at startup.
type Server struct {
	Addr string

	// PostgresDSN selects the durable profile store. Empty means the
	// in-memory stores are used (development and tests).
	PostgresDSN string

	// RedisURL selects the session record store. Empty means in-memory.
	RedisURL string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// DurableTTL and EphemeralTTL are the validity windows for the two
	// session tiers.
	DurableTTL   time.Duration
	EphemeralTTL time.Duration

	// KafkaBrokers selects the audit event sink. Empty means events are
	// kept in memory only.
	KafkaBrokers []string
	AuditTopic   string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("IMOVAN_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("IMOVAN_POSTGRES_DSN"),
		RedisURL:        os.Getenv("IMOVAN_REDIS_URL"),
		JWTSigningKey:   envOr("IMOVAN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       envOr("IMOVAN_JWT_ISSUER", "imovan"),
		JWTAudience:     envOr("IMOVAN_JWT_AUDIENCE", "imovan-app"),
		DurableTTL:      durationOr("IMOVAN_SESSION_DURABLE_TTL", 7*24*time.Hour),
		EphemeralTTL:    durationOr("IMOVAN_SESSION_EPHEMERAL_TTL", 15*time.Minute),
		AuditTopic:      envOr("IMOVAN_AUDIT_TOPIC", "imovan.audit"),
		ShutdownTimeout: durationOr("IMOVAN_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if brokers := os.Getenv("IMOVAN_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
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
