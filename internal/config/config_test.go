package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                "postgres://localhost:5432/catalogo?sslmode=disable",
		"REDIS_URL":                   "redis://localhost:6379/0",
		"PORT":                        "",
		"CATALOG_CACHE_TTL":           "",
		"CATALOG_DEFAULT_LIMIT":       "",
		"CATALOG_MAX_LIMIT":           "",
		"IMAGE_PROXY_ALLOWED_DOMAINS": "",
		"RATE_LIMIT_DRIVER":           "",
		"SECURITY_HEADERS_ENABLE":     "",
		"MIGRATIONS_AUTO":             "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, 20, cfg.CatalogDefaultLimit)
	require.Equal(t, 100, cfg.CatalogMaxLimit)
	require.Equal(t, []string{"supabase.co", "postimages.org", "postimg.cc"}, cfg.ImageProxyAllowedDomains)
	require.Equal(t, RateLimitSliding, cfg.RateLimitDriver)
	require.True(t, cfg.SecurityHeaders)
	require.False(t, cfg.MigrationsAuto)
	require.Equal(t, "Oferta Especial", cfg.OfferLabel)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ":9090"
	env["CATALOG_CACHE_TTL"] = "90s"
	env["CATALOG_DEFAULT_LIMIT"] = "50"
	env["CATALOG_MAX_LIMIT"] = "30"
	env["IMAGE_PROXY_ALLOWED_DOMAINS"] = "cdn.example.com, images.example.org"
	env["RATE_LIMIT_DRIVER"] = "STORE"
	env["SECURITY_HEADERS_ENABLE"] = "false"
	env["MIGRATIONS_AUTO"] = "true"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 90*time.Second, cfg.CatalogCacheTTL)
	require.Equal(t, 30, cfg.CatalogDefaultLimit)
	require.Equal(t, []string{"cdn.example.com", "images.example.org"}, cfg.ImageProxyAllowedDomains)
	require.Equal(t, RateLimitStore, cfg.RateLimitDriver)
	require.False(t, cfg.SecurityHeaders)
	require.True(t, cfg.MigrationsAuto)
}

func TestLoadRequiresConnections(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.EqualError(t, err, "DATABASE_URL is required")

	env = baseEnv()
	env["REDIS_URL"] = ""
	_, err = LoadForTests(env)
	require.EqualError(t, err, "REDIS_URL is required")
}

func TestLoadRejectsUnknownRateLimitDriver(t *testing.T) {
	env := baseEnv()
	env["RATE_LIMIT_DRIVER"] = "token-bucket"
	_, err := LoadForTests(env)
	require.Error(t, err)
}
