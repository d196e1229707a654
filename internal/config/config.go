package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port     string
	Debug    bool
	APIToken string

	// Slack configuration
	SlackBotToken string
	SlackAPIURL   string

	// Generation service configuration
	GenerationBackend   string // "devxp" or "anthropic"
	GenerationAPIURL    string
	GenerationAPIKey    string
	GenerationSource    string
	AnthropicAPIKey     string
	AnthropicModel      string
	GenerationMaxTokens int
	GenerationTimeout   time.Duration
	GenerationRetries   int

	// Database configuration
	DBDriver    string // "postgres" or "sqlite"
	DatabaseURL string

	// Run configuration
	PostInterval      time.Duration
	RunTimeout        time.Duration
	HistoryStaleAfter time.Duration

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	ReportSchedule    string // "daily" or "weekly"
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

const (
	BackendDevXP     = "devxp"
	BackendAnthropic = "anthropic"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Debug:    getBoolEnv("DEBUG", false),
		APIToken: getEnv("API_TOKEN", ""),

		SlackBotToken: getEnv("SLACK_BOT_TOKEN", ""),
		SlackAPIURL:   getEnv("SLACK_API_URL", "https://slack.com/api/"),

		GenerationBackend:   strings.ToLower(getEnv("GENERATION_BACKEND", BackendDevXP)),
		GenerationAPIURL:    getEnv("AI_API", ""),
		GenerationAPIKey:    getEnv("DEVXP_API_KEY", ""),
		GenerationSource:    getEnv("GENERATION_SOURCE", "converse_demo_app"),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:      getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		GenerationMaxTokens: getIntEnv("GENERATION_MAX_TOKENS", 2000),
		GenerationTimeout:   getDurationEnv("GENERATION_TIMEOUT", 2*time.Minute),
		GenerationRetries:   getIntEnv("GENERATION_RETRIES", 2),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL: getEnv("DATABASE_URL", databaseURLFromParts()),

		PostInterval:      getDurationEnv("POST_INTERVAL", time.Second),
		RunTimeout:        getDurationEnv("RUN_TIMEOUT", 30*time.Minute),
		HistoryStaleAfter: getDurationEnv("HISTORY_STALE_AFTER", 24*time.Hour),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "transcripts"),

		ReportSchedule:    getEnv("REPORT_SCHEDULE", "weekly"),
		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}

	switch c.GenerationBackend {
	case BackendDevXP:
		if c.GenerationAPIURL == "" {
			return fmt.Errorf("AI_API is required when GENERATION_BACKEND is 'devxp'")
		}
	case BackendAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when GENERATION_BACKEND is 'anthropic'")
		}
	default:
		return fmt.Errorf("GENERATION_BACKEND must be 'devxp' or 'anthropic'")
	}

	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return fmt.Errorf("DB_DRIVER must be 'postgres' or 'sqlite'")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.PostInterval < 0 {
		return fmt.Errorf("POST_INTERVAL must not be negative")
	}

	// the sweeper must never see a run that is still allowed to finish
	if c.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive")
	}
	if c.HistoryStaleAfter <= c.RunTimeout {
		return fmt.Errorf("HISTORY_STALE_AFTER must be longer than RUN_TIMEOUT")
	}

	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// NotificationsEnabled reports whether usage reports have somewhere to go
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// databaseURLFromParts builds a postgres DSN from the DB_* variables
func databaseURLFromParts() string {
	host := getEnv("DB_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		host,
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "postgres"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_SSLMODE", "disable"),
	)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
