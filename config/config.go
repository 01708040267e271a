package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	Port              string
	DatabaseURL       string
	JWTSecret         string
	JWTExpiration     time.Duration
	LogLevel          string
	LogPretty         bool
	WorkflowRolesFile string
}

// Load reads a .env file when present and then the process environment.
func Load(files ...string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load(files...)

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
		JWTExpiration:     24 * time.Hour,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		WorkflowRolesFile: os.Getenv("WORKFLOW_ROLES_FILE"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = postgresURLFromParts()
	}

	if v := os.Getenv("JWT_EXPIRATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("JWT_EXPIRATION: %w", err)
		}
		cfg.JWTExpiration = d
	}

	if v := os.Getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("LOG_PRETTY: %w", err)
		}
		cfg.LogPretty = pretty
	}

	return cfg, nil
}

// postgresURLFromParts builds a database url from the DB_* variables.
func postgresURLFromParts() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "publisher"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
