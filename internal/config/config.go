// Package config centralizes environment-based configuration.
// A .env file is loaded by the binaries via godotenv before Load is called.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the backend.
type Config struct {
	// HTTP
	Port           string
	AllowedOrigins []string

	// Postgres
	DatabaseURL string

	// Redis (atomic counter store)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Auth
	JWTSecret string

	// Like engine
	SyncWorkers       int
	SyncQueueSize     int
	ReconcileInterval time.Duration
	ReconcileSample   int

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment, applying defaults
// suitable for local development.
func Load() *Config {
	return &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		AllowedOrigins: []string{getEnvOrDefault("CORS_ORIGIN", "http://localhost:3000")},

		DatabaseURL: buildDatabaseURL(),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		SyncWorkers:       getEnvInt("LIKE_SYNC_WORKERS", 2),
		SyncQueueSize:     getEnvInt("LIKE_SYNC_QUEUE_SIZE", 1024),
		ReconcileInterval: getEnvDuration("LIKE_RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileSample:   getEnvInt("LIKE_RECONCILE_SAMPLE", 100),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", "photofeed.log"),
	}
}

func buildDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	// Fallback to individual components
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := os.Getenv("DB_PASSWORD")
	dbname := getEnvOrDefault("DB_NAME", "photofeed")
	sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
