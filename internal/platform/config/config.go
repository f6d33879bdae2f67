package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable the server needs. It is built once in main and
// passed to components at construction; no package holds global state.
type Config struct {
	Addr        string
	Environment string

	DatabaseURL string
	Redis       RedisConfig
	SMTP        SMTPConfig
	Kafka       KafkaConfig

	JWTSigningKey   string
	SessionTTL      time.Duration
	CodeTTL         time.Duration
	ResetTokenTTL   time.Duration
	ArtifactDir     string
	RetentionMaxAge time.Duration
	OutboxInterval  time.Duration
	SweepInterval   time.Duration
}

// RedisConfig tunes the pending-registration code store connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMTPConfig tunes the mail transport adapter.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	UseTLS      bool
	SendTimeout time.Duration
}

// KafkaConfig tunes the audit outbox publisher. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("TRADEGATE_ADDR", ":8080"),
		Environment: envOr("TRADEGATE_ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		SMTP: SMTPConfig{
			Host:        envOr("SMTP_HOST", "localhost"),
			Port:        envIntOr("SMTP_PORT", 587),
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			From:        envOr("SMTP_FROM", "no-reply@tradegate.local"),
			UseTLS:      os.Getenv("SMTP_USE_TLS") == "true",
			SendTimeout: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: envOr("AUDIT_TOPIC", "tradegate.audit"),
		},
		JWTSigningKey:   os.Getenv("JWT_SIGNING_KEY"),
		SessionTTL:      envDurationOr("SESSION_TTL", 24*time.Hour),
		CodeTTL:         envDurationOr("VERIFICATION_CODE_TTL", 10*time.Minute),
		ResetTokenTTL:   envDurationOr("RESET_TOKEN_TTL", time.Hour),
		ArtifactDir:     envOr("ARTIFACT_DIR", "./artifacts"),
		RetentionMaxAge: envDurationOr("DOCUMENT_RETENTION_MAX_AGE", 90*24*time.Hour),
		OutboxInterval:  envDurationOr("OUTBOX_INTERVAL", 15*time.Second),
		SweepInterval:   envDurationOr("SWEEP_INTERVAL", 24*time.Hour),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	if cfg.JWTSigningKey == "" {
		// Development fallback; production must override.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
