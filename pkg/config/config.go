package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	AppEnv      string
	BaseURL     string

	SlugLen         int
	RateLimitMax    int
	RateLimitWindow time.Duration
	RedirectCache   int // seconds, Cache-Control max-age for permanent redirects

	APIToken           string
	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	AllowedEmails      []string
	FrontendURL        string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		SlugLen:            getEnvInt("SLUG_LEN", 6),
		RateLimitMax:       getEnvInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow:    time.Duration(getEnvInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
		RedirectCache:      getEnvInt("REDIRECT_CACHE", 3600),
		APIToken:           getEnv("API_TOKEN", ""),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		AllowedEmails:      getEnvList("ALLOWED_EMAILS"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8080/admin"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
