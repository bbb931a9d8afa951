package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the console.
type Config struct {
	BackendURL      string
	StreamPath      string
	ControlPort     string
	AllowedOrigins  []string
	LogLevel        string
	RefreshInterval time.Duration
	AlertTTL        time.Duration
	RequestTimeout  time.Duration
	HealthTimeout   time.Duration
	ProcessTimeout  time.Duration

	// Probe targets, pipeline order.
	IntakeURL       string
	IntelligenceURL string
	DecisionURL     string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:8000"),
		StreamPath:      getEnv("STREAM_PATH", "/ws"),
		ControlPort:     getEnv("CONTROL_PORT", "8090"),
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		IntakeURL:       getEnv("INTAKE_URL", "http://localhost:8001"),
		IntelligenceURL: getEnv("INTELLIGENCE_URL", "http://localhost:8002"),
		DecisionURL:     getEnv("DECISION_URL", "http://localhost:8003"),
	}

	var err error
	if config.RefreshInterval, err = getSeconds("REFRESH_INTERVAL", 30); err != nil {
		return nil, err
	}
	if config.AlertTTL, err = getSeconds("ALERT_TTL", 5); err != nil {
		return nil, err
	}
	if config.RequestTimeout, err = getSeconds("REQUEST_TIMEOUT", 10); err != nil {
		return nil, err
	}
	if config.HealthTimeout, err = getSeconds("HEALTH_TIMEOUT", 5); err != nil {
		return nil, err
	}
	if config.ProcessTimeout, err = getSeconds("PROCESS_TIMEOUT", 10); err != nil {
		return nil, err
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getSeconds parses an environment variable holding whole seconds.
func getSeconds(key string, defaultValue int) (time.Duration, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

// getEnv gets an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
