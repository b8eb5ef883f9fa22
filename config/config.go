package config

import (
	"os"
	"strconv"
)

// Config holds all application-level configuration
type Config struct {
	// Storage
	SQLitePath  string
	DatabaseURL string // optional Postgres DSN; SQLite is used when empty

	// Browser
	Headless       bool
	NavTimeoutMs   int // per-navigation timeout
	EvalTimeoutMs  int // per-evaluation timeout
	RateLimitDelay int // milliseconds between requests
	MaxRetries     int

	// Target sites
	SensorTowerURL    string // marketing site, used to resolve relative links
	SensorTowerAppURL string // overview pages + internal API
	AppStoreURL       string
	AppStoreSearchURL string
	Country           string
	Locale            string
}

// Load reads configuration from environment variables or falls back to defaults
func Load() *Config {
	return &Config{
		SQLitePath:        getEnv("SQLITE_PATH", "history.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		Headless:          getEnvBool("HEADLESS", true),
		NavTimeoutMs:      getEnvInt("NAV_TIMEOUT_MS", 60000),
		EvalTimeoutMs:     getEnvInt("EVAL_TIMEOUT_MS", 15000),
		RateLimitDelay:    getEnvInt("RATE_LIMIT_DELAY_MS", 2000),
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		SensorTowerURL:    getEnv("SENSORTOWER_URL", "https://sensortower.com"),
		SensorTowerAppURL: getEnv("SENSORTOWER_APP_URL", "https://app.sensortower.com"),
		AppStoreURL:       getEnv("APP_STORE_URL", "https://apps.apple.com"),
		AppStoreSearchURL: getEnv("APP_STORE_SEARCH_URL", "https://apps.apple.com/us/iphone/search"),
		Country:           getEnv("COUNTRY", "US"),
		Locale:            getEnv("LOCALE", "us"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
