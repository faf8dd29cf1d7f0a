package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	CORSAllowOrigin    []string
	CloudStore         string
	LocalStoreDir      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleRefreshToken string
	OCRLanguage        string
	OCRMaxWidth        int
	DatabaseURL        string
	RedisURL           string
	OCRRatePerMinute   int
	UploadMaxBytes     int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience. Existing env wins.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	store := normalizeStoreType(getEnv("CLOUD_STORE", "local"))

	if store == "drive" && os.Getenv("GOOGLE_REFRESH_TOKEN") == "" {
		log.Printf("GOOGLE_REFRESH_TOKEN is required for CLOUD_STORE=drive")
	}
	if env == "production" && os.Getenv("DATABASE_URL") == "" {
		log.Printf("DATABASE_URL is recommended in production; filing journal falls back to memory")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		CloudStore:         store,
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		OCRLanguage:        getEnv("OCR_LANGUAGE", "eng"),
		OCRMaxWidth:        getEnvInt("OCR_MAX_WIDTH", 2480),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		OCRRatePerMinute:   getEnvInt("RATE_LIMIT_OCR_PER_MINUTE", 30),
		UploadMaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "drive", "gdrive", "google":
		return "drive"
	case "memory", "mem":
		return "memory"
	default:
		return "local"
	}
}
