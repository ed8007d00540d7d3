package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnv            = "development"
	defaultPort           = "8080"
	defaultDBDriver       = "sqlite"
	defaultDBPath         = "./dev.db"
	defaultTariffCache    = "memory"
	defaultTariffCacheTTL = 5 * time.Minute
	defaultFrontendURL    = "http://localhost:5173"

	defaultAPIRateLimit         = 200
	defaultTariffWriteRateLimit = 50
	defaultRateLimitWindow      = 15 * time.Minute
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env            string
	Port           string
	DBDriver       string
	DBPath         string
	DatabaseURL    string
	JWTSecret      string
	LogMode        string
	TariffCache    string
	TariffCacheTTL time.Duration
	RedisAddr      string
	FrontendURL    string
	SeedOnStart    bool

	// Per-client request budgets over RateLimitWindow. Zero disables a limiter.
	APIRateLimit         int
	TariffWriteRateLimit int
	RateLimitWindow      time.Duration
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: a missing .env is fine, production injects real env vars.
	// godotenv.Load never overrides variables that are already set.
	_ = godotenv.Load(".env")

	cfg := Config{
		Env:            env("APP_ENV", defaultEnv),
		Port:           env("PORT", defaultPort),
		DBDriver:       strings.ToLower(env("DB_DRIVER", defaultDBDriver)),
		DBPath:         env("DB_PATH", defaultDBPath),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		LogMode:        os.Getenv("LOG_MODE"),
		TariffCache:    strings.ToLower(env("TARIFF_CACHE", defaultTariffCache)),
		TariffCacheTTL: envDuration("TARIFF_CACHE_TTL", defaultTariffCacheTTL),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		FrontendURL:    env("FRONTEND_URL", defaultFrontendURL),
		SeedOnStart:    envBool("SEED_ON_START", false),

		APIRateLimit:         envInt("RATE_LIMIT_API", defaultAPIRateLimit),
		TariffWriteRateLimit: envInt("RATE_LIMIT_TARIFF_WRITES", defaultTariffWriteRateLimit),
		RateLimitWindow:      envDuration("RATE_LIMIT_WINDOW", defaultRateLimitWindow),
	}

	if cfg.LogMode == "" {
		cfg.LogMode = cfg.Env
	}

	if cfg.JWTSecret == "" {
		log.Print("warning: JWT_SECRET is not set")
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		log.Print("warning: DB_DRIVER=postgres but DATABASE_URL is not set")
	}
	if cfg.TariffCache == "redis" && cfg.RedisAddr == "" {
		log.Print("warning: TARIFF_CACHE=redis but REDIS_ADDR is not set")
	}

	return cfg
}

// IsDev reports whether the process runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	switch c.DBDriver {
	case "postgres", "postgresql", "pgx":
		return c.DatabaseURL
	}
	return c.DBPath
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("warning: %s=%q is not a valid count, using %d", k, v, def)
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("warning: %s=%q is not a valid duration, using %s", k, v, def)
		return def
	}
	return d
}
