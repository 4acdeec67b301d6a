package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. MaxDetachingDuration is fixed
// at startup and never mutated afterwards.
type Server struct {
	Addr                 string
	MaxDetachingDuration time.Duration
	JWTSigningKey        string
	PostgresURL          string
	Redis                RedisConfig
	Kafka                KafkaConfig
}

// RedisConfig tunes the optional Redis-backed delegation store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig tunes the optional Kafka event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// DefaultMaxDetachingDuration bounds per-context detaching durations when the
// environment does not override it.
const DefaultMaxDetachingDuration = 7 * 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TOKENCTX_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	maxDetaching := DefaultMaxDetachingDuration
	if raw := os.Getenv("TOKENCTX_MAX_DETACHING_DURATION"); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
			maxDetaching = time.Duration(secs) * time.Second
		}
	}

	jwtSigningKey := os.Getenv("TOKENCTX_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("TOKENCTX_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("TOKENCTX_KAFKA_TOPIC")
	if topic == "" {
		topic = "tokenctx.events"
	}

	return Server{
		Addr:                 addr,
		MaxDetachingDuration: maxDetaching,
		JWTSigningKey:        jwtSigningKey,
		PostgresURL:          os.Getenv("TOKENCTX_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("TOKENCTX_REDIS_URL"),
			PoolSize:     envInt("TOKENCTX_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TOKENCTX_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("TOKENCTX_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TOKENCTX_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TOKENCTX_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
