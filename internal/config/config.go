// Package config provides configuration management for the NFT inventory
// service. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nft-inventory/internal/apperr"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Blockfrost BlockfrostConfig
	Cache      CacheConfig
	Sync       SyncConfig
	RateLimit  RateLimitConfig
	Auth       AuthConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration for the ownership event log
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// BlockfrostConfig holds the ledger indexer configuration. ProjectID is the
// per-deployment API credential and is required.
type BlockfrostConfig struct {
	BaseURL   string
	ProjectID string
	Timeout   time.Duration
}

// CacheConfig holds inventory response cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// SyncConfig holds reconciliation configuration
type SyncConfig struct {
	MetadataConcurrency int // Bound on concurrent per-unit metadata fetches
	ActiveSetCap        int // Maximum size of a user's active asset list
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int           // Ambient per-user API limit
	Burst             int           // Token bucket burst size
	ClaimMaxPerWindow int           // Legacy claim endpoint: actions per window
	ClaimWindow       time.Duration // Legacy claim endpoint: rolling window
}

// AuthConfig holds the static bearer token table, formatted
// "token1:uid1,token2:uid2".
type AuthConfig struct {
	Tokens string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from the .env file and environment variables.
func Load() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "nft_inventory"),
				User:           getEnv("POSTGRES_USER", "inventory"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "nft_inventory"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Blockfrost: BlockfrostConfig{
			BaseURL:   getEnv("BLOCKFROST_BASE_URL", "https://cardano-mainnet.blockfrost.io/api/v0"),
			ProjectID: getEnv("BLOCKFROST_PROJECT_ID", ""),
			Timeout:   getEnvAsDuration("BLOCKFROST_TIMEOUT", 15*time.Second),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 30*time.Second),
		},
		Sync: SyncConfig{
			MetadataConcurrency: getEnvAsInt("SYNC_METADATA_CONCURRENCY", 8),
			ActiveSetCap:        getEnvAsInt("SYNC_ACTIVE_SET_CAP", 30),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
			ClaimMaxPerWindow: getEnvAsInt("CLAIM_MAX_PER_WINDOW", 5),
			ClaimWindow:       getEnvAsDuration("CLAIM_WINDOW", time.Hour),
		},
		Auth: AuthConfig{
			Tokens: getEnv("AUTH_TOKENS", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present. The Blockfrost
// project id is the only hard requirement: without it every sync request
// would fail.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Blockfrost.ProjectID) == "" {
		return apperr.Configuration("BLOCKFROST_PROJECT_ID")
	}
	return nil
}

// PostgresURL builds the migration-style connection URL.
func (c *PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
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
