package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all engine and mock-server configuration.
type Config struct {
	APIBaseURL  string
	APIToken    string
	LogLevel    string
	LogFormat   string
	GinMode     string
	ServerPort  string
	HTTPTimeout time.Duration
	// AnswerSyncRetries is the number of additional attempts per background
	// answer-sync call. Zero means a single attempt with silent failure.
	AnswerSyncRetries int
	// ExpirySubmitRetries bounds the total attempts of an expiry-triggered
	// submission before it goes terminal.
	ExpirySubmitRetries int
	QuizLanguage        string
	// AllowedOrigins controls CORS on the mock server.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		APIBaseURL:          getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		APIToken:            getEnv("API_TOKEN", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		HTTPTimeout:         time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		AnswerSyncRetries:   getEnvInt("ANSWER_SYNC_RETRIES", 0),
		ExpirySubmitRetries: getEnvInt("EXPIRY_SUBMIT_RETRIES", 3),
		QuizLanguage:        getEnv("QUIZ_LANGUAGE", "en"),
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
