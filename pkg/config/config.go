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
	Environment string
	ServerPort  int
	LogLevel    string

	DatabaseURL string // empty enables the in-memory dev store
	RedisURL    string

	JWTSecret     string
	TokenLifetime time.Duration

	// Guest access engine thresholds. Passed explicitly into the issuer
	// and monitor so they stay testable with different values.
	MaxDurationMinutes      int
	MinDurationMinutes      int
	AccessCodeLength        int
	CodeGenerationAttempts  int
	SweepInterval           time.Duration
	OverstayThresholdMinute int // 0 = use each credential's own duration

	SMSEnabled    bool
	SMSGatewayURL string
	SMSAPIKey     string
	SMSSender     string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}

	maxDuration, err := intEnv("GUEST_MAX_DURATION_MINUTES", 720)
	if err != nil {
		return nil, err
	}

	minDuration, err := intEnv("GUEST_MIN_DURATION_MINUTES", 1)
	if err != nil {
		return nil, err
	}

	codeLength, err := intEnv("ACCESS_CODE_LENGTH", 6)
	if err != nil {
		return nil, err
	}

	codeAttempts, err := intEnv("ACCESS_CODE_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}

	sweepSeconds, err := intEnv("SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	overstayMinutes, err := intEnv("OVERSTAY_THRESHOLD_MINUTES", 0)
	if err != nil {
		return nil, err
	}

	tokenHours, err := intEnv("TOKEN_LIFETIME_HOURS", 72)
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenLifetime: time.Duration(tokenHours) * time.Hour,

		MaxDurationMinutes:      maxDuration,
		MinDurationMinutes:      minDuration,
		AccessCodeLength:        codeLength,
		CodeGenerationAttempts:  codeAttempts,
		SweepInterval:           time.Duration(sweepSeconds) * time.Second,
		OverstayThresholdMinute: overstayMinutes,

		SMSEnabled:    boolEnv("SMS_ENABLED", false),
		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", "https://api.mobizon.kz/service/message/sendsmsmessage"),
		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSSender:     getEnv("SMS_SENDER", "LocalHood"),

		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

// OverstayThreshold returns the fixed overstay threshold, or zero when each
// credential's own duration should be used.
func (c *Config) OverstayThreshold() time.Duration {
	return time.Duration(c.OverstayThresholdMinute) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, defaultValue bool) bool {
	raw := strings.ToLower(os.Getenv(key))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
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
