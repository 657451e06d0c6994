package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process configuration.
type Config struct {
	Server   ServerConfig
	GitHub   GitHubConfig
	Database DatabaseConfig
	Log      LogConfig
	Review   ReviewConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type GitHubConfig struct {
	Token         string
	WebhookSecret string
	// RateLimit is the number of API requests per second, 0 disables limiting.
	RateLimit float64
}

// DatabaseConfig selects the violation store. An empty DSN keeps
// everything in memory.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

type ReviewConfig struct {
	Workers      int
	FetchTimeout time.Duration
	CheckTimeout time.Duration
	// RunTimeout bounds a webhook-triggered review, which outlives its request.
	RunTimeout time.Duration
	// StyleFile is the repository file holding enablement overrides.
	StyleFile string
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		GitHub: GitHubConfig{
			Token:         getEnv("GITHUB_TOKEN", ""),
			WebhookSecret: getEnv("GITHUB_WEBHOOK_SECRET", ""),
			RateLimit:     getEnvAsFloat("GITHUB_RATE_LIMIT", 10),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			DSN:    getEnv("DB_DSN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Review: ReviewConfig{
			Workers:      getEnvAsInt("REVIEW_WORKERS", 8),
			FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
			CheckTimeout: getEnvAsDuration("CHECK_TIMEOUT", 30*time.Second),
			RunTimeout:   getEnvAsDuration("REVIEW_TIMEOUT", 10*time.Minute),
			StyleFile:    getEnv("CONFIG_FILE", ".hound.yml"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Server.Port)
	}
	if c.Database.DSN != "" {
		switch c.Database.Driver {
		case "postgres", "sqlite3":
		default:
			return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
		}
	}
	if c.Review.Workers < 1 {
		return fmt.Errorf("review workers must be positive, got %d", c.Review.Workers)
	}
	if c.Review.FetchTimeout <= 0 || c.Review.CheckTimeout <= 0 || c.Review.RunTimeout <= 0 {
		return fmt.Errorf("review timeouts must be positive")
	}
	if c.GitHub.RateLimit < 0 {
		return fmt.Errorf("github rate limit must not be negative")
	}
	if strings.TrimSpace(c.Review.StyleFile) == "" {
		return fmt.Errorf("style config file name is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
