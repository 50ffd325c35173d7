package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Helper to get a string env with default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// Helper to get int env with default
func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	val, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		log.Printf("Warning: Invalid int for config %s=%q, using default %d", key, valueStr, fallback)
		return fallback
	}
	return val
}

// Helper to get int64 env with default
func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	val, err := strconv.ParseInt(strings.TrimSpace(valueStr), 10, 64)
	if err != nil {
		log.Printf("Warning: Invalid int64 for config %s=%q, using default %d", key, valueStr, fallback)
		return fallback
	}
	return val
}
