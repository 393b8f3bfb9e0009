package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	TokenTTL           time.Duration
	ItemsFeedURL       string
	PassiveTickEvery   time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	StartupSeedItems   bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("CLICKRUSH_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr: addr,
		// Empty DATABASE_URL runs the API on the in-memory store.
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:          envDefault("CLICKRUSH_JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:           envDurationDefault("CLICKRUSH_TOKEN_TTL", 24*time.Hour),
		ItemsFeedURL:       strings.TrimSpace(os.Getenv("CLICKRUSH_ITEMS_FEED_URL")),
		PassiveTickEvery:   envDurationDefault("CLICKRUSH_PASSIVE_TICK_EVERY", 30*time.Second),
		RateLimitPerMinute: envIntDefault("CLICKRUSH_RATE_LIMIT_PER_MINUTE", 600),
		CORSAllowedOrigins: envListDefault("CLICKRUSH_CORS_ALLOWED_ORIGINS", []string{"*"}),
		StartupSeedItems:   envBoolDefault("CLICKRUSH_STARTUP_SEED_ITEMS", false),
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("CRUSH_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envListDefault(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
