package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Pipeline PipelineConfig
	Provider ProviderConfig
	Business BusinessConfig
}

// DatabaseConfig holds database-related configuration.
// When DSN is empty the SQLite path is used instead.
type DatabaseConfig struct {
	DSN             string
	SQLitePath      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// PipelineConfig holds analysis pipeline tuning knobs
type PipelineConfig struct {
	MinCallInterval     time.Duration
	ProviderMaxAttempts int
	BatchMaxAttempts    int
	RateLimitCooldown   time.Duration
	FailureCooldown     time.Duration
	PollInitialDelay    time.Duration
	PollMaxDelay        time.Duration
	PollTimeout         time.Duration
	GroupThreshold      float64
	CatalogThreshold    float64
}

// ProviderConfig holds OCR/vision provider configuration.
// Providers is the ordered fallback list, e.g. "docintel,visionchat".
type ProviderConfig struct {
	Providers       []string
	VisionBaseURL   string
	VisionAPIKey    string
	VisionModel     string
	DocIntelBaseURL string
	DocIntelAPIKey  string
	HTTPTimeout     time.Duration
}

// BusinessConfig holds business defaults read by the pipeline, not computed by it.
type BusinessConfig struct {
	DefaultCurrency string
	DefaultVATRate  float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "./data"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Pipeline: PipelineConfig{
			MinCallInterval:     getEnvAsDuration("RATE_MIN_INTERVAL", 2*time.Second),
			ProviderMaxAttempts: getEnvAsInt("PROVIDER_MAX_ATTEMPTS", 5),
			BatchMaxAttempts:    getEnvAsInt("BATCH_MAX_ATTEMPTS", 2),
			RateLimitCooldown:   getEnvAsDuration("RATE_LIMIT_COOLDOWN", 10*time.Second),
			FailureCooldown:     getEnvAsDuration("FAILURE_COOLDOWN", 2*time.Second),
			PollInitialDelay:    getEnvAsDuration("POLL_INITIAL_DELAY", 2*time.Second),
			PollMaxDelay:        getEnvAsDuration("POLL_MAX_DELAY", 10*time.Second),
			PollTimeout:         getEnvAsDuration("POLL_TIMEOUT", 5*time.Minute),
			GroupThreshold:      getEnvAsFloat64("GROUP_THRESHOLD", 0.7),
			CatalogThreshold:    getEnvAsFloat64("CATALOG_THRESHOLD", 0.6),
		},
		Provider: ProviderConfig{
			Providers:       splitList(getEnv("PROVIDERS", "docintel,visionchat")),
			VisionBaseURL:   getEnv("VISION_BASE_URL", "https://api.openai.com/v1"),
			VisionAPIKey:    getEnv("VISION_API_KEY", ""),
			VisionModel:     getEnv("VISION_MODEL", "gpt-4o-mini"),
			DocIntelBaseURL: getEnv("DOCINTEL_BASE_URL", ""),
			DocIntelAPIKey:  getEnv("DOCINTEL_API_KEY", ""),
			HTTPTimeout:     getEnvAsDuration("PROVIDER_HTTP_TIMEOUT", 60*time.Second),
		},
		Business: BusinessConfig{
			DefaultCurrency: getEnv("DEFAULT_CURRENCY", "EUR"),
			DefaultVATRate:  getEnvAsFloat64("DEFAULT_VAT_RATE", 21.0),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if len(c.Provider.Providers) == 0 {
		return NewAppError("CONFIG_ERROR", "PROVIDERS must list at least one provider", ErrInvalidInput)
	}
	if c.Pipeline.ProviderMaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "PROVIDER_MAX_ATTEMPTS must be >= 1", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
