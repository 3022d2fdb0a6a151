// Package config loads server and extractor settings from INVOICE_EXTRACTOR_*
// environment variables. CLI flags override whatever is loaded here.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	LLM    LLMConfig
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	Debug          bool
}

// StoreConfig holds the job store settings. An empty path disables the store.
type StoreConfig struct {
	Path string
}

// LLMConfig holds the fallback extractor settings. An empty API key disables
// the fallback.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

// Load reads configuration from environment variables. The LLM keys also
// accept the unprefixed LLM_* names so an already-exported key is picked up.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           getEnv("INVOICE_EXTRACTOR_ADDR", ":8080"),
			RequestTimeout: getEnvAsDuration("INVOICE_EXTRACTOR_REQUEST_TIMEOUT", 60*time.Second),
			MaxUploadBytes: int64(getEnvAsInt("INVOICE_EXTRACTOR_MAX_UPLOAD_MB", 32)) << 20,
			Debug:          getEnvAsBool("INVOICE_EXTRACTOR_DEBUG", false),
		},
		Store: StoreConfig{
			Path: getEnv("INVOICE_EXTRACTOR_STORE", ""),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("INVOICE_EXTRACTOR_LLM_API_KEY", getEnv("LLM_API_KEY", "")),
			BaseURL:     getEnv("INVOICE_EXTRACTOR_LLM_BASE_URL", getEnv("LLM_BASE_URL", "")),
			Model:       getEnv("INVOICE_EXTRACTOR_LLM_MODEL", getEnv("LLM_MODEL", "")),
			VisionModel: getEnv("INVOICE_EXTRACTOR_LLM_VISION_MODEL", getEnv("LLM_VISION_MODEL", "")),
			Timeout:     getEnvAsDuration("INVOICE_EXTRACTOR_LLM_TIMEOUT", 120*time.Second),
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
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
