package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Trends TrendsConfig

	// Database configuration
	DatabaseEnabled  bool
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// LLM configuration
	LLM LLMConfig

	// Server configuration
	Server ServerConfig

	// ExportDir receives the matrix and verdict CSV files, empty disables export
	ExportDir string
}

// TrendsConfig holds the acquisition and analysis parameters
type TrendsConfig struct {
	BaseURL        string
	Keywords       []string
	WindowStart    string
	WindowEnd      string
	Geo            string
	Language       string
	TZOffset       int
	RequestTimeout time.Duration

	MaxAttempts     int
	SuccessCooldown time.Duration
	FailureCooldown time.Duration

	SmoothingWindow int
	DropPartial     bool

	// Pairs is "a|b|title;a|b|title". Empty means the built-in study pairs.
	Pairs string
}

// LLMConfig holds LLM service configuration
type LLMConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Model    string
}

// ServerConfig holds the HTTP API and schedule settings used by serve mode
type ServerConfig struct {
	Port     int
	Schedule string // daily run time, HH:MM UTC
}

// DefaultKeywords is the body-image and denim keyword set
var DefaultKeywords = []string{
	"baggy jeans",
	"skinny jeans",
	"low rise jeans",
	"body positivity",
	"ozempic",
	"pilates aesthetic",
	"calorie deficit",
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Trends: TrendsConfig{
			BaseURL:        getEnvOrDefault("TRENDS_BASE_URL", "https://trends.google.com"),
			Keywords:       getEnvList("TRENDS_KEYWORDS", DefaultKeywords),
			WindowStart:    getEnvOrDefault("TRENDS_WINDOW_START", "2019-01-01"),
			WindowEnd:      getEnvOrDefault("TRENDS_WINDOW_END", "2025-12-31"),
			Geo:            getEnvOrDefault("TRENDS_GEO", "US"),
			Language:       getEnvOrDefault("TRENDS_LANGUAGE", "es-MX"),
			TZOffset:       getEnvInt("TRENDS_TZ", 360),
			RequestTimeout: getEnvDuration("TRENDS_REQUEST_TIMEOUT", 30*time.Second),

			MaxAttempts:     getEnvInt("TRENDS_MAX_ATTEMPTS", 2),
			SuccessCooldown: getEnvDuration("TRENDS_SUCCESS_COOLDOWN", 10*time.Second),
			FailureCooldown: getEnvDuration("TRENDS_FAILURE_COOLDOWN", 60*time.Second),

			SmoothingWindow: getEnvInt("TRENDS_SMOOTHING_WINDOW", 12),
			DropPartial:     getEnvOrDefault("TRENDS_DROP_PARTIAL", "false") == "true",
			Pairs:           os.Getenv("TRENDS_PAIRS"),
		},

		// Database configuration
		DatabaseEnabled:  getEnvOrDefault("DB_ENABLED", "false") == "true",
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "trend_signals"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "trends"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", ""),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", ""),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		// LLM configuration
		LLM: LLMConfig{
			Enabled:  getEnvOrDefault("LLM_ENABLED", "false") == "true",
			Endpoint: getEnvOrDefault("LLM_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:   getEnvOrDefault("LLM_API_KEY", ""),
			Model:    getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		},

		Server: ServerConfig{
			Port:     getEnvInt("SERVER_PORT", 8080),
			Schedule: getEnvOrDefault("SERVER_SCHEDULE", "03:00"),
		},

		ExportDir: getEnvOrDefault("EXPORT_DIR", "."),
	}
}

// PairSpec is a parsed entry of TrendsConfig.Pairs
type PairSpec struct {
	A, B, Title string
}

// ParsePairs parses the "a|b|title;..." pair list. The title is optional.
func ParsePairs(raw string) ([]PairSpec, error) {
	var pairs []PairSpec
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid pair %q: want a|b or a|b|title", entry)
		}
		p := PairSpec{A: strings.TrimSpace(parts[0]), B: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			p.Title = strings.TrimSpace(parts[2])
		}
		if p.A == "" || p.B == "" {
			return nil, fmt.Errorf("invalid pair %q: empty keyword", entry)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// getEnvList splits a comma separated variable, falling back to defaultValue
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		out := make([]string, len(defaultValue))
		copy(out, defaultValue)
		return out
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvDuration gets environment variable as time.Duration or returns default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
