package config

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Port        string
	Environment string

	// Remote collaborators
	AuthURL     string // GoTrue-style auth service base URL
	AuthAnonKey string // anon API key sent with password-grant requests
	AuthJWKSURL string // Constructed from AuthURL + /auth/v1/.well-known/jwks.json
	APIURL      string // directory + knowledge base service base URL

	// Connection listing
	ConnectionProvider string
	ConnectionLimit    int

	// Durable client state
	StatePath  string // session state file (four string keys)
	LedgerPath string // bbolt knowledge base ledger

	// Optional YAML override for knowledge base indexing parameters
	IndexingParamsPath string

	// Timing
	SyncTimeout         time.Duration // bound on the sync-trigger acknowledgment
	SessionPollInterval time.Duration // fallback when the state watcher cannot start

	CORSOrigins string
	Debug       bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	authURL := getEnv("AUTH_URL", "https://sb.stack-ai.com")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		AuthURL:     authURL,
		AuthAnonKey: getEnv("AUTH_ANON_KEY", ""),
		AuthJWKSURL: authURL + "/auth/v1/.well-known/jwks.json",
		APIURL:      getEnv("API_URL", "https://api.stack-ai.com"),

		ConnectionProvider: getEnv("CONNECTION_PROVIDER", "gdrive"),
		ConnectionLimit:    getEnvInt("CONNECTION_LIMIT", 10),

		StatePath:  getEnv("STATE_PATH", "driveindex-session.json"),
		LedgerPath: getEnv("LEDGER_PATH", "driveindex-ledger.db"),

		IndexingParamsPath: getEnv("INDEXING_PARAMS_PATH", ""),

		SyncTimeout:         getEnvDuration("SYNC_TIMEOUT", 30*time.Second),
		SessionPollInterval: getEnvDuration("SESSION_POLL_INTERVAL", time.Second),

		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		// Debug defaults to true outside production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Validate checks that the configuration is usable before wiring services.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.AuthURL, validation.Required),
		validation.Field(&c.APIURL, validation.Required),
		validation.Field(&c.ConnectionProvider, validation.Required),
		validation.Field(&c.ConnectionLimit, validation.Min(1)),
		validation.Field(&c.StatePath, validation.Required),
		validation.Field(&c.SyncTimeout, validation.Min(time.Second)),
		validation.Field(&c.SessionPollInterval, validation.Min(100*time.Millisecond)),
	)
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
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
