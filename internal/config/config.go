// Package config provides configuration management for the vault console.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Vault     VaultConfig
	IAM       IAMConfig
	Export    ExportConfig
	List      ListConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// VaultConfig holds vault service configuration
type VaultConfig struct {
	BaseURL string
	Token   string
	APIKey  string
	Timeout time.Duration
	RPS     int // Outbound requests per second to the vault
}

// IAMConfig holds IAM service configuration
type IAMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ExportConfig holds export job polling configuration
type ExportConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration
	TrackerTTL   time.Duration
}

// ListConfig holds list view defaults
type ListConfig struct {
	PageSize int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration for the moderation audit log
type PostgresConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL returns the migrate-style connection URL
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds ClickHouse configuration for export events
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds list cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Vault: VaultConfig{
			BaseURL: withTrailingSlash(getEnv("VAULT_URL", "")),
			Token:   getEnv("VAULT_TOKEN", ""),
			APIKey:  getEnv("VAULT_API_KEY", getEnv("VAULT_TOKEN", "")),
			Timeout: getEnvAsDuration("VAULT_TIMEOUT", 30*time.Second),
			RPS:     getEnvAsInt("VAULT_RPS", 20),
		},
		IAM: IAMConfig{
			BaseURL: strings.TrimRight(getEnv("IAM_URL", ""), "/"),
			APIKey:  getEnv("IAM_KEY", ""),
			Timeout: getEnvAsDuration("IAM_TIMEOUT", 30*time.Second),
		},
		Export: ExportConfig{
			PollInterval: getEnvAsDuration("EXPORT_POLL_INTERVAL", 3*time.Second),
			MaxAttempts:  getEnvAsInt("EXPORT_MAX_ATTEMPTS", 200),
			Timeout:      getEnvAsDuration("EXPORT_TIMEOUT", 10*time.Minute),
			TrackerTTL:   getEnvAsDuration("EXPORT_TRACKER_TTL", time.Hour),
		},
		List: ListConfig{
			PageSize: getEnvAsInt("LIST_PAGE_SIZE", 15),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Enabled:        getEnvAsBool("AUDIT_ENABLED", false),
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "vault_console"),
				User:           getEnv("POSTGRES_USER", "console"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 10),
			},
			ClickHouse: ClickHouseConfig{
				Enabled:  getEnvAsBool("EXPORT_EVENTS_ENABLED", false),
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "vault_console"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Enabled:        getEnvAsBool("REDIS_ENABLED", true),
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 20*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsInt("RATE_LIMIT_RPS", 50),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate checks the settings every binary needs to reach the vault
func (c *Config) Validate() error {
	if c.Vault.BaseURL == "" {
		return fmt.Errorf("VAULT_URL is required")
	}
	if c.Export.PollInterval <= 0 {
		return fmt.Errorf("EXPORT_POLL_INTERVAL must be positive")
	}
	if c.List.PageSize <= 0 {
		return fmt.Errorf("LIST_PAGE_SIZE must be positive")
	}
	return nil
}

// withTrailingSlash normalizes base URLs so paths can be appended directly
func withTrailingSlash(url string) string {
	if url == "" || strings.HasSuffix(url, "/") {
		return url
	}
	return url + "/"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
