package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Analysis backend (opaque HTTP collaborator)
	BackendBaseURL      string
	BackendAPIToken     string
	BackendTimeout      time.Duration
	BackendRetryMax     int
	BackendRetryBackoff time.Duration

	// Auth
	EnableAuth    bool
	AuthJWTSecret string
	DevAuthToken  string

	// Simulation polling
	SimulationPollInterval time.Duration
	SimulationPollTimeout  time.Duration

	// Storage
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string

	// Rate limiting, requests per second per client IP. Zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		BackendBaseURL:      strings.TrimRight(getEnv("BACKEND_API_URL", "http://localhost:8000"), "/"),
		BackendAPIToken:     getEnv("BACKEND_API_TOKEN", ""),
		BackendTimeout:      getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
		BackendRetryMax:     getEnvAsInt("BACKEND_RETRY_MAX_ATTEMPTS", 2),
		BackendRetryBackoff: getEnvAsDuration("BACKEND_RETRY_BASE_DELAY", 250*time.Millisecond),

		EnableAuth:    getEnvAsBool("ENABLE_AUTH", false),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		DevAuthToken:  getEnv("DEV_AUTH_TOKEN", ""),

		SimulationPollInterval: getEnvAsDuration("SIMULATION_POLL_INTERVAL", 2*time.Second),
		SimulationPollTimeout:  getEnvAsDuration("SIMULATION_POLL_TIMEOUT", 10*time.Minute),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),

		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// BearerToken resolves the token attached to proxied backend requests.
// The explicit backend token wins; outside production the dev token is an
// accepted fallback so local stacks work without a real identity provider.
func (c *Config) BearerToken() string {
	if c.BackendAPIToken != "" {
		return c.BackendAPIToken
	}
	if c.Env != "production" || !c.EnableAuth {
		return c.DevAuthToken
	}
	return ""
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
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

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
