// Package config handles application configuration loading from environment
// variables and the vocabulary sources file. It provides a centralized
// Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	LogLevel string // "debug", "info", "warn", "error"

	// RateLimit caps requests per client and minute on the routes that
	// query vocabulary sources. Zero disables the limit.
	RateLimit int

	// Outbound SPARQL
	SPARQLTimeout time.Duration
	MaxRetries    int
	RetrySleep    time.Duration

	// Vocabulary content
	SourcesFile        string
	FilesDir           string
	CacheDir           string
	CacheTTL           time.Duration
	DefaultLanguage    string
	SupportedLanguages []string
	LocalURLs          bool
	AboutFile          string

	// PostgreSQL connection (catalog archive). Disabled when DBHost is empty.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible response cache). Disabled when ValkeyHost is empty.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ResponseTTL    time.Duration

	// S3-compatible bucket mirrored into FilesDir at startup.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string

	// Sources parsed from SourcesFile.
	Sources *SourcesFile
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. A .env file in the working directory
// (or ENV_FILE) is loaded first; variables already set win. Returns an
// error if critical values are missing in production mode.
func Load() (*Config, error) {
	envFile := envOrDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("cannot read env file", "path", envFile, "error", err)
	}

	cfg := &Config{
		Host:     envOrDefault("APP_HOST", "0.0.0.0"),
		Port:     envOrDefault("APP_PORT", "8080"),
		Env:      envOrDefault("APP_ENV", "development"),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),

		SourcesFile:     os.Getenv("VOCAB_SOURCES_FILE"),
		FilesDir:        envOrDefault("VOCAB_FILES_DIR", "vocab_files"),
		CacheDir:        envOrDefault("VOCAB_CACHE_DIR", "cache"),
		DefaultLanguage: envOrDefault("DEFAULT_LANGUAGE", "en"),
		AboutFile:       os.Getenv("ABOUT_FILE"),

		DBHost:     os.Getenv("POSTGRES_HOST"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "vocabserve"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "vocabserve"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Prefix:    os.Getenv("S3_PREFIX"),
	}

	var errs []error
	cfg.SPARQLTimeout = envSeconds("SPARQL_TIMEOUT", 60, &errs)
	cfg.MaxRetries = envInt("MAX_RETRIES", 2, &errs)
	cfg.RetrySleep = envSeconds("RETRY_SLEEP_SECONDS", 10, &errs)
	cfg.CacheTTL = time.Duration(envInt("VOCAB_CACHE_HOURS", 168, &errs)) * time.Hour
	cfg.ResponseTTL = envSeconds("RESPONSE_CACHE_SECONDS", 300, &errs)
	cfg.RateLimit = envInt("RATE_LIMIT_PER_MINUTE", 120, &errs)
	cfg.LocalURLs = envBool("LOCAL_URLS", true, &errs)
	cfg.SupportedLanguages = splitList(os.Getenv("SUPPORTED_LANGUAGES"))
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if _, err := language.Parse(cfg.DefaultLanguage); err != nil {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE %q: %w", cfg.DefaultLanguage, err)
	}
	for _, l := range cfg.SupportedLanguages {
		if _, err := language.Parse(l); err != nil {
			return nil, fmt.Errorf("SUPPORTED_LANGUAGES %q: %w", l, err)
		}
	}

	if cfg.SourcesFile != "" {
		sources, err := LoadSources(cfg.SourcesFile)
		if err != nil {
			return nil, err
		}
		cfg.Sources = sources
	} else {
		cfg.Sources = &SourcesFile{}
	}

	if cfg.Env == "production" {
		if cfg.HasDatabase() && cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.SourcesFile == "" {
			return nil, fmt.Errorf("VOCAB_SOURCES_FILE must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasDatabase reports whether the catalog archive is configured.
func (c *Config) HasDatabase() bool { return c.DBHost != "" }

// HasValkey reports whether the response cache is configured.
func (c *Config) HasValkey() bool { return c.ValkeyHost != "" }

// HasS3 reports whether vocabulary files are mirrored from a bucket.
func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3Bucket != "" && c.S3AccessKey != ""
}

// SlogLevel maps LogLevel onto a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a non-negative integer, got %q", key, v))
		return fallback
	}
	return n
}

func envSeconds(key string, fallback int, errs *[]error) time.Duration {
	return time.Duration(envInt(key, fallback, errs)) * time.Second
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
