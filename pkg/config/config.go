package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	CORSAllowedOrigins []string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string

	RedisURL     string
	RoleCacheTTL time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	InvitationTTL         time.Duration
	ReaperIntervalMinutes int
	RateLimitPerMinute    int
	OTLPEndpoint          string
	TracingSampleRatio    float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	reaperInterval, err := strconv.Atoi(getEnv("REAPER_INTERVAL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid REAPER_INTERVAL_MINUTES: %w", err)
	}

	invitationTTLHours, err := strconv.Atoi(getEnv("INVITATION_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVITATION_TTL_HOURS: %w", err)
	}

	tokenTTLHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS: %w", err)
	}

	roleCacheTTLSeconds, err := strconv.Atoi(getEnv("ROLE_CACHE_TTL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROLE_CACHE_TTL_SECONDS: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	sampleRatio, err := strconv.ParseFloat(getEnv("TRACING_SAMPLE_RATIO", "0.1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TRACING_SAMPLE_RATIO: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),

		DatabaseHost:     getEnv("DB_HOST", "localhost"),
		DatabasePort:     dbPort,
		DatabaseUser:     getEnv("DB_USER", "staffdesk"),
		DatabasePassword: getEnv("DB_PASSWORD", "dev"),
		DatabaseName:     getEnv("DB_NAME", "staffdesk"),
		DatabaseSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		RoleCacheTTL: time.Duration(roleCacheTTLSeconds) * time.Second,

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  time.Duration(tokenTTLHours) * time.Hour,

		InvitationTTL:         time.Duration(invitationTTLHours) * time.Hour,
		ReaperIntervalMinutes: reaperInterval,
		RateLimitPerMinute:    rateLimit,
		OTLPEndpoint:          getEnv("OTLP_ENDPOINT", ""),
		TracingSampleRatio:    sampleRatio,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
