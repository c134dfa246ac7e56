package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Environment string

	// FIX acceptor
	FIX FIXConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Admin API
	Admin AdminConfig

	// Dashboard websocket
	Dashboard DashboardConfig
}

// FIXConfig controls the FIX 4.2 acceptor (C3).
type FIXConfig struct {
	ListenAddr     string
	SenderCompID   string // BrokerID presented in every outbound message
	HeartBtInt     int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the Postgres connection string pgxpool expects.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	Enabled  bool
}

// Addr renders the host:port form go-redis expects.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type AdminConfig struct {
	JWTSecret        string
	ListenAddr       string
	OperatorUser     string
	OperatorPassword string
}

type DashboardConfig struct {
	ListenAddr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		FIX: FIXConfig{
			ListenAddr:   getEnv("FIX_LISTEN_ADDR", ":5001"),
			SenderCompID: getEnv("FIX_SENDER_COMP_ID", "BROKER"),
			HeartBtInt:   getEnvAsInt("FIX_HEARTBEAT_INTERVAL", 30),
		},

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "fixcore"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Admin: AdminConfig{
			JWTSecret:        getEnv("ADMIN_JWT_SECRET", ""),
			ListenAddr:       getEnv("ADMIN_LISTEN_ADDR", ":8080"),
			OperatorUser:     getEnv("ADMIN_OPERATOR_USER", "operator"),
			OperatorPassword: getEnv("ADMIN_OPERATOR_PASSWORD", ""),
		},

		Dashboard: DashboardConfig{
			ListenAddr: getEnv("DASHBOARD_LISTEN_ADDR", ":8081"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.FIX.SenderCompID == "" {
		return fmt.Errorf("FIX_SENDER_COMP_ID is required")
	}
	if c.Environment == "production" {
		if c.Admin.JWTSecret == "" {
			return fmt.Errorf("ADMIN_JWT_SECRET is required in production")
		}
	} else if c.Admin.JWTSecret == "" {
		log.Println("WARNING: ADMIN_JWT_SECRET not set - using an insecure development default")
		c.Admin.JWTSecret = "development-only-secret"
	}
	if c.Environment == "production" && c.Admin.OperatorPassword == "" {
		return fmt.Errorf("ADMIN_OPERATOR_PASSWORD is required in production")
	} else if c.Admin.OperatorPassword == "" {
		log.Println("WARNING: ADMIN_OPERATOR_PASSWORD not set - using an insecure development default")
		c.Admin.OperatorPassword = "development-only-password"
	}
	return nil
}

// Helper functions
func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultVal
	}
	return value
}
