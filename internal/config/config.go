package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	HTTPPort    int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Auth        AuthConfig
	Notehub     NotehubConfig
	Telemetry   TelemetryConfig
	CORS        CORSConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and routing settings
type RabbitMQConfig struct {
	URL                  string
	EventsExchange       string
	AcceptedRoutingKey   string
	DeadLetterRoutingKey string
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// NotehubConfig holds outbound Notehub API settings
type NotehubConfig struct {
	APIURL         string
	ProductUID     string
	RequestTimeout time.Duration
}

// TelemetryConfig holds ingestion and last-known cache settings
type TelemetryConfig struct {
	CacheCapacity int
	CacheTTL      time.Duration
	StoreTimeout  time.Duration
}

// CORSConfig holds allowed origins for the browser frontend
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "fleetradar-backend"),
		HTTPPort:    getEnvAsInt("HTTP_PORT", 8080),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                  getEnv("RABBITMQ_URL", ""),
			EventsExchange:       getEnv("RABBITMQ_EVENTS_EXCHANGE", "fleetradar.tracking.events.exchange"),
			AcceptedRoutingKey:   getEnv("RABBITMQ_ACCEPTED_ROUTING_KEY", "position.accepted"),
			DeadLetterRoutingKey: getEnv("RABBITMQ_DEADLETTER_ROUTING_KEY", "position.deadletter"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   time.Duration(getEnvAsInt("JWT_TTL_MINUTES", 1440)) * time.Minute,
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		Notehub: NotehubConfig{
			APIURL:         getEnv("NOTEHUB_API_URL", "https://api.notefile.net"),
			ProductUID:     getEnv("NOTEHUB_PRODUCT_UID", ""),
			RequestTimeout: time.Duration(getEnvAsInt("NOTEHUB_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Telemetry: TelemetryConfig{
			CacheCapacity: getEnvAsInt("TELEMETRY_CACHE_CAPACITY", 10000),
			CacheTTL:      time.Duration(getEnvAsInt("TELEMETRY_CACHE_TTL_MINUTES", 1440)) * time.Minute,
			StoreTimeout:  time.Duration(getEnvAsInt("TELEMETRY_STORE_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:8000")},
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
