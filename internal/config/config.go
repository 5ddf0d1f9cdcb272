package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env         string
	Port        string
	JWTSecret   string
	PairingHash string // bcrypt hash of the device pairing code
	LogLevel    string
	SessionIdle time.Duration
	Database    DatabaseConfig
	Odoo        OdooConfig
	Scanner     ScannerSettings
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Path     string // sqlite file
	Alter    bool
}

// OdooConfig holds the catalog sync settings
type OdooConfig struct {
	URL          string
	Database     string
	Username     string
	Password     string
	SyncInterval int // in minutes
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	scanner, err := LoadScannerSettings(os.Getenv("SCANNER_SETTINGS_FILE"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "3001"),
		JWTSecret:   jwtSecret,
		PairingHash: os.Getenv("DEVICE_PAIRING_HASH"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		SessionIdle: time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 120)) * time.Minute,
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "eckscan"),
			Path:     getEnv("SQLITE_PATH", "eckscan.db"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Odoo: OdooConfig{
			URL:          os.Getenv("ODOO_URL"),
			Database:     os.Getenv("ODOO_DB"),
			Username:     os.Getenv("ODOO_USER"),
			Password:     os.Getenv("ODOO_PASSWORD"),
			SyncInterval: getEnvInt("ODOO_SYNC_INTERVAL", 15),
		},
		Scanner: *scanner,
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
