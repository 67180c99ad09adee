package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ozon     OzonConfig
	Sync     SyncConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type BrowserConfig struct {
	Headless   bool
	NavTimeout time.Duration
	StatePath  string
	ProfileDir string
	UserAgent  string
	Locale     string
	DebugDir   string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OzonConfig struct {
	BaseURL        string
	ClientID       string
	APIKey         string
	WarehouseID    int64
	ItemsPerMinute int
}

type SyncConfig struct {
	SupplierBaseURL string
	PaceMin         time.Duration
	PaceMax         time.Duration
	MaxAge          time.Duration
	BatchSize       int
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads configuration from the environment, first loading a local .env
// file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Browser: BrowserConfig{
			Headless:   getBoolOrDefault("BROWSER_HEADLESS", true),
			NavTimeout: getDurationOrDefault("BROWSER_TIMEOUT", 120*time.Second),
			StatePath:  getEnvOrDefault("BROWSER_STATE_PATH", ""),
			ProfileDir: getEnvOrDefault("BROWSER_PROFILE_DIR", ""),
			UserAgent: getEnvOrDefault("BROWSER_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Safari/537.36"),
			Locale:   getEnvOrDefault("BROWSER_LOCALE", "ru-RU"),
			DebugDir: getEnvOrDefault("BROWSER_DEBUG_DIR", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "partsync"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Ozon: OzonConfig{
			BaseURL:        getEnvOrDefault("OZON_BASE_URL", "https://api-seller.ozon.ru"),
			ClientID:       getEnvOrDefault("OZON_CLIENT_ID", ""),
			APIKey:         getEnvOrDefault("OZON_API_KEY", ""),
			WarehouseID:    getInt64OrDefault("OZON_WAREHOUSE_ID", 0),
			ItemsPerMinute: getIntOrDefault("OZON_ITEMS_PER_MINUTE", 600),
		},
		Sync: SyncConfig{
			SupplierBaseURL: getEnvOrDefault("SUPPLIER_BASE_URL", "https://b2b.autorus.ru"),
			PaceMin:         getDurationOrDefault("SUPPLIER_PACE_MIN", 2*time.Second),
			PaceMax:         getDurationOrDefault("SUPPLIER_PACE_MAX", 6*time.Second),
			MaxAge:          getDurationOrDefault("SYNC_MAX_AGE", 12*time.Hour),
			BatchSize:       getIntOrDefault("SYNC_BATCH_SIZE", 500),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
			File:   getEnvOrDefault("LOG_FILE", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Browser.StatePath == "" && c.Browser.ProfileDir == "" {
		return fmt.Errorf("either BROWSER_STATE_PATH or BROWSER_PROFILE_DIR must be set")
	}
	if c.Sync.PaceMin > c.Sync.PaceMax {
		return fmt.Errorf("SUPPLIER_PACE_MIN cannot be greater than SUPPLIER_PACE_MAX")
	}
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be at least 1")
	}
	return nil
}

// ValidateOzon is checked separately: the resolve and serve commands work
// without marketplace credentials.
func (c *Config) ValidateOzon() error {
	if c.Ozon.ClientID == "" || c.Ozon.APIKey == "" {
		return fmt.Errorf("OZON_CLIENT_ID and OZON_API_KEY must be set")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
