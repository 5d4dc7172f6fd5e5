// Package config centralises configuration parsing for the API service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress        string
	PostgresURL        string
	KafkaBrokers       []string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	JWTSecret          string
	JWTIssuer          string
	JWTTTL             time.Duration

	// Limit overrides for the business rules engine.
	MaxWorkoutsPerUser     int
	MaxExercisesPerWorkout int
	MaxSetsPerExercise     int
}

// Load reads environment variables into Config, applying sensible defaults
// for local dev. An empty POSTGRES_URL selects the in-memory store.
func Load() Config {
	cfg := Config{
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getIntEnv("OUTBOX_BATCH_SIZE", 25),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:          getEnv("JWT_ISSUER", "fitnote.identity"),
		JWTTTL:             getDurationEnv("JWT_TTL", time.Hour),

		MaxWorkoutsPerUser:     getIntEnv("MAX_WORKOUTS_PER_USER", 1000),
		MaxExercisesPerWorkout: getIntEnv("MAX_EXERCISES_PER_WORKOUT", 50),
		MaxSetsPerExercise:     getIntEnv("MAX_SETS_PER_EXERCISE", 100),
	}

	brokers := getEnv("KAFKA_BROKERS", "kafka:9092")
	cfg.KafkaBrokers = splitAndTrim(brokers)
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
