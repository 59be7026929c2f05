package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage types
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageNone     = "none"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken    string
	GitHubAPIURL   string
	RequestTimeout time.Duration

	// Analysis
	AnalyzeTimeout      time.Duration
	MaxRepos            int
	LanguageConcurrency int
	CacheTTL            time.Duration
	EstimateFromSize    bool

	// Storage
	StorageType string // "sqlite", "postgres" or "none"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
}

// Load loads the configuration from environment variables. Malformed numeric
// and duration values fall back to their defaults.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitHubToken:         getEnv("GITHUB_TOKEN", ""),
		GitHubAPIURL:        getEnv("GITHUB_API_URL", ""),
		RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		AnalyzeTimeout:      getEnvDuration("ANALYZE_TIMEOUT", 20*time.Second),
		MaxRepos:            getEnvInt("MAX_REPOS", 100),
		LanguageConcurrency: getEnvInt("LANGUAGE_CONCURRENCY", 8),
		CacheTTL:            getEnvDuration("CACHE_TTL", 5*time.Minute),
		EstimateFromSize:    getEnvBool("ESTIMATE_FROM_SIZE", false),
		StorageType:         strings.ToLower(getEnv("STORAGE_TYPE", StorageSQLite)),
		SQLitePath:          getEnv("SQLITE_PATH", "./analyzer.db"),
		PostgresURL:         getEnv("POSTGRES_URL", ""),
		APIPort:             getEnv("API_PORT", "8080"),
		APIHost:             getEnv("API_HOST", "localhost"),
		APIEndpoint:         getEnv("API_ENDPOINT", "http://localhost:8080"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

// Validate validates the configuration. A missing GitHub token is valid; it
// only lowers the upstream rate limit.
func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageSQLite, StoragePostgres, StorageNone:
	default:
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite', 'postgres' or 'none'"}
	}
	if c.StorageType == StoragePostgres && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.StorageType == StorageSQLite && c.SQLitePath == "" {
		return &ConfigError{Field: "SQLITE_PATH", Message: "SQLite path is required when STORAGE_TYPE is 'sqlite'"}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &ConfigError{Field: "LOG_FORMAT", Message: "must be 'text' or 'json'"}
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger described by the configuration
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
