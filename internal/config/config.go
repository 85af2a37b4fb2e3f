package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Redis
	RedisURL string

	// Generation
	OpenRouterModel     string
	GenerateTimeoutSecs int

	// Rate limiting
	AuthRateLimitPerMin int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		Env:                 getEnvOrDefault("ENV", "development"),
		RedisURL:            mustGetEnv("REDIS_URL"),
		OpenRouterModel:     getEnvOrDefault("OPENROUTER_MODEL", "openai/gpt-5.1"),
		GenerateTimeoutSecs: getEnvAsIntOrDefault("GENERATE_TIMEOUT_SECONDS", 90),
		AuthRateLimitPerMin: getEnvAsIntOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 10),
		FrontendURL:         getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
