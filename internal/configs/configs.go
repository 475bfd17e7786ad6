/*
Package configs is responsible for loading and parsing the application's configuration settings.

It reads operating system environment variables (optionally seeded from a .env file) for both
binaries: the chat client (backend URL, identity data directory, log file, HTTP timeout) and the
reference relay server (port, CORS allowed origins, database DSN).
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Settings
	Environment string
	LogFile     string

	// Client Settings
	BackendURL  string
	DataDir     string
	HTTPTimeout time.Duration

	// Relay Settings
	Port           int
	AllowedOrigins []string
	DatabaseDSN    string
}

// IsDevelopment reports whether the application runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// A .env file in the working directory, when present, seeds variables that are not already set.
// It provides default values for each configuration item and performs necessary type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load(".env")

	cfg := &AppConfig{}

	// --- General Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.LogFile = os.Getenv("LOG_FILE")

	// --- Client Settings ---
	cfg.BackendURL = strings.TrimRight(os.Getenv("BACKEND_URL"), "/")
	if cfg.BackendURL == "" {
		cfg.BackendURL = "http://localhost:8080"
	}
	u, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_URL environment variable: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("BACKEND_URL must use http or https, got %q", u.Scheme)
	}

	cfg.DataDir = os.Getenv("DATA_DIR")

	timeoutStr := os.Getenv("HTTP_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "10s"
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT environment variable: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.HTTPTimeout = timeout

	// --- Relay Settings ---
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	originsStr := os.Getenv("ALLOWED_ORIGINS")
	cfg.AllowedOrigins = []string{}
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	// Empty DSN selects the in-memory relay store.
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	return cfg, nil
}
