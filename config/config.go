package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	PORT        string
	DB_URL      string
	JWT_SECRET  string
	CORS_ORIGIN string
	APP_ENV     string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string

	// Submission pricing. The fee is in minor units (cents).
	SUBMISSION_CAP          int
	SUBMISSION_FEE_CENTS    int64
	SUBMISSION_FEE_CURRENCY string
	SUBMISSION_FEE_SOURCE   string

	REDIS_ADDR        string
	REDIS_PASSWORD    string
	REDIS_DB          int
	SUBMIT_RATE_LIMIT int

	RABBITMQ_URL string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")
	APP_ENV = getEnv("APP_ENV", "local")

	STRIPE_SECRET_KEY = getEnv("STRIPE_SECRET_KEY", "")
	STRIPE_WEBHOOK_SECRET = getEnv("STRIPE_WEBHOOK_SECRET", "")

	SUBMISSION_CAP = getEnvInt("SUBMISSION_CAP", 6)
	SUBMISSION_FEE_CENTS = int64(getEnvInt("SUBMISSION_FEE_CENTS", 200))
	SUBMISSION_FEE_CURRENCY = strings.ToLower(getEnv("SUBMISSION_FEE_CURRENCY", "usd"))
	SUBMISSION_FEE_SOURCE = parseFeeSource(getEnv("SUBMISSION_FEE_SOURCE", "flat"))

	REDIS_ADDR = getEnv("REDIS_ADDR", "")
	REDIS_PASSWORD = getEnv("REDIS_PASSWORD", "")
	REDIS_DB = getEnvInt("REDIS_DB", 0)
	SUBMIT_RATE_LIMIT = getEnvInt("SUBMIT_RATE_LIMIT", 10)

	RABBITMQ_URL = getEnv("RABBITMQ_URL", "")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt falls back on missing, malformed or negative values.
func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		log.Printf("Invalid value for %s (%q), using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func parseFeeSource(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "call":
		return "call"
	default:
		return "flat"
	}
}
