package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is loaded once at startup and passed explicitly into the services;
// nothing reads the environment after Load returns.
type Config struct {
	HTTPPort    string
	DatabaseURL string
	LogLevel    string
	JWTSecret   string

	// Server-side provider defaults, used when the client sends no key of
	// its own.
	DefaultProvider string
	DefaultModel    string
	GeminiAPIKey    string
	GroqAPIKey      string
	OllamaHost      string
	OllamaAPIKey    string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", "calmcoach.db"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "gemini"),
		DefaultModel:    getEnv("DEFAULT_MODEL", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", ""),
		OllamaAPIKey:    getEnv("OLLAMA_API_KEY", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

// ProviderAPIKeys maps provider names to the server-held default keys.
func (c *Config) ProviderAPIKeys() map[string]string {
	return map[string]string{
		"gemini":       c.GeminiAPIKey,
		"groq":         c.GroqAPIKey,
		"ollama-cloud": c.OllamaAPIKey,
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
