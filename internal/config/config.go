package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Webhook relay
	WebhookUser    string
	WebhookTimeout time.Duration
	ReplyBackend   string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Database (optional)
	DatabaseURL         string
	MigrationsDir       string
	TranscriptRetention time.Duration

	// Redis (optional)
	RedisURL string

	// Sessions (optional; chat stays anonymous without a secret)
	JWTSecret  string
	SessionTTL time.Duration

	// Rate limiting
	ChatRateLimit  int
	ChatRateWindow time.Duration

	// Frontend
	FrontendURL string
}

const (
	BackendWebhook = "webhook"
	BackendGemini  = "gemini"
)

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		WebhookUser:          getEnvOrDefault("WEBHOOK_USER", "Rayudu Bharani"),
		WebhookTimeout:       getEnvAsDurationOrDefault("WEBHOOK_TIMEOUT", 60*time.Second),
		ReplyBackend:         getEnvOrDefault("REPLY_BACKEND", BackendWebhook),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		MigrationsDir:        getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		TranscriptRetention:  getEnvAsDurationOrDefault("TRANSCRIPT_RETENTION", 30*24*time.Hour),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:            getEnvOrDefault("JWT_SECRET", ""),
		SessionTTL:           getEnvAsDurationOrDefault("SESSION_TTL", 24*time.Hour),
		ChatRateLimit:        getEnvAsIntOrDefault("CHAT_RATE_LIMIT", 30),
		ChatRateWindow:       getEnvAsDurationOrDefault("CHAT_RATE_WINDOW", time.Minute),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.ReplyBackend == BackendGemini {
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	}

	return cfg
}

// WebhookURL reads the webhook address from the environment. It is called on
// every relay so a rotated test/production webhook takes effect without a restart.
func WebhookURL() string {
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		return url
	}
	return os.Getenv("N8N_URI")
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionsEnabled reports whether session tokens can be issued.
func (c *Config) SessionsEnabled() bool {
	return c.JWTSecret != ""
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

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
