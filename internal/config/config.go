package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string

	// Backend the shell runs against (fragments + REST API).
	EHRBaseURL  string
	HTTPTimeout time.Duration

	// CSRF token sourced from page metadata; empty disables the header.
	CSRFHeader string
	CSRFToken  string

	// Session state store.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Editing-session tuning.
	SuggestDebounce    time.Duration
	PatientSuggestMax  int
	ProviderSuggestMax int

	// Stub backend (cmd/stubserver).
	StubPort string

	// Prometheus scrape endpoint; empty disables it.
	MetricsPort string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EHRBaseURL:         getEnv("EHR_BASE_URL", "http://localhost:8080"),
		HTTPTimeout:        getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		CSRFHeader:         getEnv("CSRF_HEADER", "X-CSRF-TOKEN"),
		CSRFToken:          getEnv("CSRF_TOKEN", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SuggestDebounce:    getEnvAsDuration("SUGGEST_DEBOUNCE", 200*time.Millisecond),
		PatientSuggestMax:  getEnvAsInt("PATIENT_SUGGEST_MAX", 6),
		ProviderSuggestMax: getEnvAsInt("PROVIDER_SUGGEST_MAX", 12),
		StubPort:           getEnv("STUB_PORT", "8080"),
		MetricsPort:        getEnv("METRICS_PORT", "9090"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
