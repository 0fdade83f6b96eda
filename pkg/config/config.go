// Package config loads service settings from the environment, with an
// optional .env file for development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Solver  SolverConfig
	Store   StoreConfig
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	AllowOrigins string
	AllowHeaders string
}

// SessionConfig tunes editing sessions.
type SessionConfig struct {
	DebounceInterval time.Duration
}

// SolverConfig selects the analysis backend. An empty URL keeps solves
// in process; a URL delegates to an external service speaking the same
// JSON contract.
type SolverConfig struct {
	URL     string
	Timeout time.Duration
}

// StoreConfig locates the project database.
type StoreConfig struct {
	Path string
}

// Load reads configuration from the environment, applying a .env file
// first when one exists in the working directory.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file, using process environment")
	}

	return &Config{
		Server: ServerConfig{
			Addr:         getEnv("GUSSET_ADDR", ":8080"),
			ReadTimeout:  getDuration("GUSSET_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("GUSSET_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("GUSSET_IDLE_TIMEOUT", 120*time.Second),
			AllowOrigins: getEnv("GUSSET_CORS_ORIGINS", "*"),
			AllowHeaders: getEnv("GUSSET_CORS_HEADERS", "Origin, Content-Type, Accept"),
		},
		Session: SessionConfig{
			DebounceInterval: getDuration("GUSSET_DEBOUNCE", 150*time.Millisecond),
		},
		Solver: SolverConfig{
			URL:     getEnv("GUSSET_SOLVER_URL", ""),
			Timeout: getDuration("GUSSET_SOLVER_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Path: getEnv("GUSSET_STORE_PATH", "gusset.db"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration variable. A bare number means seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if !strings.ContainsAny(value, "smh") {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
