package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Sources   SourcesConfig
	Valuation ValuationConfig
	Cache     CacheConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host        string
	Port        int
	Environment string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SourcesConfig holds listing-source configuration
type SourcesConfig struct {
	PrimaryBaseURL       string
	FetchTimeoutSeconds  int
	SufficiencyThreshold int
	MinDelayMs           int
	JitterMs             int
	PageSize             int
	MinPageFill          int
	PageDelayMs          int
	BrowserEnabled       bool
	SecondaryURLs        string
}

// ValuationConfig holds valuation engine configuration
type ValuationConfig struct {
	Preset             string
	MinPlausiblePrice  int
	MaxPlausiblePrice  int
	MinCleanSample     int
	MinCachedSample    int
	DealerDiscountPct  float64
	RoundingUnit       int
	SuspiciousMedian   int
	SuspiciousSample   int
	MaxIQRRatio        float64
	MaxSpreadRatio     float64
	StrategyConfigPath string
}

// CacheConfig holds cache layer configuration
type CacheConfig struct {
	MemoryMaxEntries int
	MemoryTTLMinutes int
	DurableTTLHours  int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "vehicle_valuation"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Sources: SourcesConfig{
			PrimaryBaseURL:       getEnv("PRIMARY_SOURCE_URL", "https://marketplace.example.com/api"),
			FetchTimeoutSeconds:  getEnvAsInt("SOURCE_FETCH_TIMEOUT_SECONDS", 20),
			SufficiencyThreshold: getEnvAsInt("SOURCE_SUFFICIENCY_THRESHOLD", 12),
			MinDelayMs:           getEnvAsInt("SOURCE_MIN_DELAY_MS", 1500),
			JitterMs:             getEnvAsInt("SOURCE_JITTER_MS", 1000),
			PageSize:             getEnvAsInt("SOURCE_PAGE_SIZE", 50),
			MinPageFill:          getEnvAsInt("SOURCE_MIN_PAGE_FILL", 10),
			PageDelayMs:          getEnvAsInt("SOURCE_PAGE_DELAY_MS", 800),
			BrowserEnabled:       getEnvAsBool("SOURCE_BROWSER_ENABLED", false),
			SecondaryURLs:        getEnv("SECONDARY_SOURCE_URLS", ""),
		},
		Valuation: ValuationConfig{
			Preset:             getEnv("VALUATION_PRESET", "full"),
			MinPlausiblePrice:  getEnvAsInt("VALUATION_MIN_PRICE", 200),
			MaxPlausiblePrice:  getEnvAsInt("VALUATION_MAX_PRICE", 500000),
			MinCleanSample:     getEnvAsInt("VALUATION_MIN_CLEAN_SAMPLE", 3),
			MinCachedSample:    getEnvAsInt("VALUATION_MIN_CACHED_SAMPLE", 5),
			DealerDiscountPct:  getEnvAsFloat("VALUATION_DEALER_DISCOUNT", 0.12),
			RoundingUnit:       getEnvAsInt("VALUATION_ROUNDING_UNIT", 50),
			SuspiciousMedian:   getEnvAsInt("VALUATION_SUSPICIOUS_MEDIAN", 3000),
			SuspiciousSample:   getEnvAsInt("VALUATION_SUSPICIOUS_SAMPLE", 8),
			MaxIQRRatio:        getEnvAsFloat("VALUATION_MAX_IQR_RATIO", 1.2),
			MaxSpreadRatio:     getEnvAsFloat("VALUATION_MAX_SPREAD_RATIO", 12),
			StrategyConfigPath: getEnv("STRATEGY_CONFIG_PATH", ""),
		},
		Cache: CacheConfig{
			MemoryMaxEntries: getEnvAsInt("CACHE_MEMORY_MAX_ENTRIES", 512),
			MemoryTTLMinutes: getEnvAsInt("CACHE_MEMORY_TTL_MINUTES", 15),
			DurableTTLHours:  getEnvAsInt("CACHE_DURABLE_TTL_HOURS", 24),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "vehicle-valuation"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
