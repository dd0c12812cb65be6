package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	MigrationsAuto     bool

	CatalogCacheTTL     time.Duration
	CatalogDefaultPage  int
	CatalogDefaultLimit int
	CatalogMaxLimit     int
	OfferLabel          string

	ShoppingListTTL      time.Duration
	ShoppingListLockTTL  time.Duration
	ShoppingListLockWait time.Duration
	IdempotencyTTL       time.Duration

	ImageProxyAllowedDomains []string
	ImageProxyTimeout        time.Duration
	ImageProxyCacheMaxAge    time.Duration
	ImageProxyMaxBytes       int64

	RateLimitDriver string
	RateLimitWindow time.Duration
	RateLimitMax    int

	SecurityHeaders       bool
	SecurityHSTS          bool
	SecurityHSTSMaxAge    int
	SecurityHSTSSubdomain bool
	BodyLimitBytes        int64
}

// Rate limit drivers.
const (
	RateLimitSliding = "sliding"
	RateLimitStore   = "store"
)

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrationsAuto:     parseBool(k.String("MIGRATIONS_AUTO")),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogDefaultPage:  parseInt(k.String("CATALOG_DEFAULT_PAGE"), 1),
		CatalogDefaultLimit: parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     parseInt(k.String("CATALOG_MAX_LIMIT"), 100),
		OfferLabel:          valueOrDefault(k.String("OFFER_LABEL"), "Oferta Especial"),

		ShoppingListTTL:      parseDuration(k.String("SHOPPING_LIST_TTL"), "720h"),
		ShoppingListLockTTL:  parseDuration(k.String("SHOPPING_LIST_LOCK_TTL"), "5s"),
		ShoppingListLockWait: parseDuration(k.String("SHOPPING_LIST_LOCK_WAIT"), "2s"),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		ImageProxyAllowedDomains: splitAndTrim(valueOrDefault(k.String("IMAGE_PROXY_ALLOWED_DOMAINS"), "supabase.co,postimages.org,postimg.cc")),
		ImageProxyTimeout:        parseDuration(k.String("IMAGE_PROXY_TIMEOUT"), "10s"),
		ImageProxyCacheMaxAge:    parseDuration(k.String("IMAGE_PROXY_CACHE_MAX_AGE"), "24h"),
		ImageProxyMaxBytes:       int64(parseInt(k.String("IMAGE_PROXY_MAX_BYTES"), 10<<20)),

		RateLimitDriver: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_DRIVER"), RateLimitSliding)),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 120),

		SecurityHeaders:       parseBoolDefault(k.String("SECURITY_HEADERS_ENABLE"), true),
		SecurityHSTS:          parseBool(k.String("SECURITY_HSTS_ENABLE")),
		SecurityHSTSMaxAge:    parseInt(k.String("SECURITY_HSTS_MAX_AGE"), 31536000),
		SecurityHSTSSubdomain: parseBool(k.String("SECURITY_HSTS_INCLUDE_SUBDOMAINS")),
		BodyLimitBytes:        int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.RateLimitDriver != RateLimitSliding && cfg.RateLimitDriver != RateLimitStore {
		return nil, fmt.Errorf("RATE_LIMIT_DRIVER must be %q or %q", RateLimitSliding, RateLimitStore)
	}
	if cfg.CatalogDefaultLimit > cfg.CatalogMaxLimit {
		cfg.CatalogDefaultLimit = cfg.CatalogMaxLimit
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
