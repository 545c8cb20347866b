// Package config reads CLI configuration from the environment, with an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds CLI configuration
type Config struct {
	CredentialsPath string
	Shots           int
	QubitBudget     int
	MaxIter         int
	PollInterval    time.Duration
	MaxWait         time.Duration
	LogLevel        string
	Pretty          bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		CredentialsPath: getEnv("QIRIN_CREDENTIALS", ""),
		Shots:           getEnvAsInt("QIRIN_SHOTS", 1024),
		QubitBudget:     getEnvAsInt("QIRIN_QUBIT_BUDGET", 0),
		MaxIter:         getEnvAsInt("QIRIN_MAXITER", 0),
		PollInterval:    getEnvAsDuration("QIRIN_POLL_INTERVAL", time.Second),
		MaxWait:         getEnvAsDuration("QIRIN_MAX_WAIT", 0),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Pretty:          getEnvAsBool("LOG_PRETTY", false),
	}
	return cfg, nil
}

// Helper functions
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
