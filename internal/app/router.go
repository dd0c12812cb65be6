package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/noah-isme/catalogo-api/internal/catalog"
	"github.com/noah-isme/catalogo-api/internal/health"
	"github.com/noah-isme/catalogo-api/internal/obs"
	"github.com/noah-isme/catalogo-api/internal/ratelimit"
	"github.com/noah-isme/catalogo-api/internal/security"
	"github.com/noah-isme/catalogo-api/internal/shoppinglist"
)

// ImageProxyPath is where the image proxy is mounted.
const ImageProxyPath = "/api/v1/image-proxy"

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Catalog    *catalog.Handler
	Lists      *shoppinglist.Handler
	ImageProxy http.Handler
	Health     health.Handler
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Handlers    Handlers
	Logger      zerolog.Logger
	Limiter     ratelimit.Limiter
	RateWindow  time.Duration
	RateMax     int
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
	Metrics     http.Handler
	Pprof       http.Handler
	CORSOrigins []string
	Security    security.Headers
	BodyLimit   int64
}

// NewRouter assembles the middleware chain and mounts every endpoint.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	secHeaders := cfg.Security
	secHeaders.CrossOriginPaths = append(secHeaders.CrossOriginPaths, ImageProxyPath)
	r.Use(secHeaders.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.BodyLimit{Max: cfg.BodyLimit}.Middleware)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.Pprof != nil {
		r.Mount("/debug/pprof", cfg.Pprof)
	}
	r.Get("/health/live", cfg.Handlers.Health.Live)
	r.Get("/health/ready", cfg.Handlers.Health.Ready)

	limit := ratelimit.Handler{
		Limiter: cfg.Limiter,
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return "ip:" + ratelimit.ClientIP(r) },
			Window: cfg.RateWindow,
			Max:    cfg.RateMax,
		},
		OnError: func(err error) {
			cfg.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		if cfg.Handlers.Catalog != nil {
			cfg.Handlers.Catalog.Routes(v)
		}
		if cfg.Handlers.Lists != nil {
			cfg.Handlers.Lists.Routes(v)
		}
		if cfg.Handlers.ImageProxy != nil {
			v.Method(http.MethodGet, "/image-proxy", cfg.Handlers.ImageProxy)
		}
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
