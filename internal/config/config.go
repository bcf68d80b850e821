package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config keeps runtime settings for the planner service.
type Config struct {
	DatabaseURL        string
	Port               string
	DefaultUserEmail   string
	DefaultUserID      string
	AutoSeed           bool
	SeedCategoriesFile string
	LogLevel           string
	CORSOrigins        []string
	JWTSecret          string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	GeminiTimeout      time.Duration
	ChatContextLimit   int
}

var defaults = map[string]any{
	"DATABASE_URL":           "today_planner.db",
	"PORT":                   "4000",
	"DEFAULT_USER_EMAIL":     "demo@notton.ai",
	"DEFAULT_USER_ID":        "",
	"AUTO_SEED":              false,
	"SEED_CATEGORIES_FILE":   "",
	"LOG_LEVEL":              "info",
	"CORS_ORIGINS":           "*",
	"AUTH_JWT_SECRET":        "",
	"GEMINI_API_KEY":         "",
	"GEMINI_MODEL":           "gemini-2.5-flash",
	"GEMINI_BASE_URL":        "https://generativelanguage.googleapis.com/v1beta",
	"GEMINI_TIMEOUT_SECONDS": 60,
	"CHAT_CONTEXT_LIMIT":     100,
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first; real env vars win.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := Config{
		DatabaseURL:        strings.TrimSpace(v.GetString("DATABASE_URL")),
		Port:               strings.TrimSpace(v.GetString("PORT")),
		DefaultUserEmail:   strings.TrimSpace(v.GetString("DEFAULT_USER_EMAIL")),
		DefaultUserID:      strings.TrimSpace(v.GetString("DEFAULT_USER_ID")),
		AutoSeed:           v.GetBool("AUTO_SEED"),
		SeedCategoriesFile: strings.TrimSpace(v.GetString("SEED_CATEGORIES_FILE")),
		LogLevel:           strings.TrimSpace(v.GetString("LOG_LEVEL")),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		JWTSecret:          v.GetString("AUTH_JWT_SECRET"),
		GeminiAPIKey:       strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		GeminiModel:        strings.TrimSpace(v.GetString("GEMINI_MODEL")),
		GeminiBaseURL:      strings.TrimSpace(v.GetString("GEMINI_BASE_URL")),
		GeminiTimeout:      time.Duration(v.GetInt("GEMINI_TIMEOUT_SECONDS")) * time.Second,
		ChatContextLimit:   v.GetInt("CHAT_CONTEXT_LIMIT"),
	}

	if cfg.Port == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.DefaultUserEmail == "" {
		return cfg, errors.New("DEFAULT_USER_EMAIL must not be empty")
	}
	if cfg.GeminiTimeout <= 0 {
		return cfg, fmt.Errorf("GEMINI_TIMEOUT_SECONDS must be positive")
	}
	if cfg.ChatContextLimit <= 0 {
		return cfg, fmt.Errorf("CHAT_CONTEXT_LIMIT must be positive")
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
