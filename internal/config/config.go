package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	// GoogleProjectID pins the issuer and audience of accepted ID tokens.
	GoogleProjectID string `yaml:"googleProjectID"`
	// GoogleJWKSURL overrides the default key endpoint, mainly for tests.
	GoogleJWKSURL string `yaml:"googleJwksURL"`

	BooksAPIBaseURL   string `yaml:"booksApiBaseURL"`
	BooksAPIKey       string `yaml:"booksApiKey"`
	LibraryAPIBaseURL string `yaml:"libraryApiBaseURL"`

	CacheTTL                 string `yaml:"cacheTTL"`
	ReviewRateLimitPerMinute int    `yaml:"reviewRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml) and applies env
// overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("GOOGLE_PROJECT_ID"); v != "" {
		cfg.GoogleProjectID = strings.TrimSpace(v)
	}
	if v := os.Getenv("GOOGLE_JWKS_URL"); v != "" {
		cfg.GoogleJWKSURL = v
	}
	if v := os.Getenv("BOOKS_API_BASE_URL"); v != "" {
		cfg.BooksAPIBaseURL = v
	}
	if v := os.Getenv("BOOKS_API_KEY"); v != "" {
		cfg.BooksAPIKey = v
	}
	if v := os.Getenv("LIBRARY_API_BASE_URL"); v != "" {
		cfg.LibraryAPIBaseURL = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		cfg.CacheTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("REVIEW_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.ReviewRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.GoogleProjectID) == "" {
		return errors.New("config: googleProjectID is required (set in config.yaml or GOOGLE_PROJECT_ID)")
	}
	if cfg.ReviewRateLimitPerMinute < 0 {
		return errors.New("config: reviewRateLimitPerMinute must be >= 0")
	}
	if cfg.CacheTTL != "" {
		if _, err := time.ParseDuration(cfg.CacheTTL); err != nil {
			return fmt.Errorf("config: invalid cacheTTL duration: %w", err)
		}
	}
	return nil
}

// ParseCacheTTL parses the optional result cache TTL string. Zero means the
// caller's default.
func ParseCacheTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
