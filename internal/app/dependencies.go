package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/catalogo-api/internal/catalog"
	"github.com/noah-isme/catalogo-api/internal/common"
	"github.com/noah-isme/catalogo-api/internal/config"
	"github.com/noah-isme/catalogo-api/internal/db"
	"github.com/noah-isme/catalogo-api/internal/health"
	"github.com/noah-isme/catalogo-api/internal/imageproxy"
	"github.com/noah-isme/catalogo-api/internal/lock"
	"github.com/noah-isme/catalogo-api/internal/obs"
	"github.com/noah-isme/catalogo-api/internal/ratelimit"
	"github.com/noah-isme/catalogo-api/internal/repo"
	"github.com/noah-isme/catalogo-api/internal/shoppinglist"
)

// Dependencies holds the connections shared by every module.
type Dependencies struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Validator *validator.Validate
}

// ConnectOptions tune how Connect instruments the clients.
type ConnectOptions struct {
	ApplicationName string
	RedisMetrics    bool
}

// Connect opens and pings PostgreSQL and Redis. Migrations run first when
// cfg.MigrationsAuto is set.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ConnectOptions) (*Dependencies, error) {
	if cfg.MigrationsAuto {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	if opts.ApplicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.RedisMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Dependencies{DB: pool, Redis: client, Validator: validator.New()}, nil
}

// Close releases the connections.
func (d *Dependencies) Close() error {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		return d.Redis.Close()
	}
	return nil
}

// PingDB implements health.Checker over the shared connections.
func (d *Dependencies) PingDB(ctx context.Context, timeout time.Duration) error {
	if d.DB == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.DB.Ping(ctx)
}

// PingRedis implements health.Checker.
func (d *Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return ratelimit.NewRedisStore(rdb, "catalogo:ratelimit")
}

// NewLimiter picks the limiter implementation named by cfg.RateLimitDriver.
func NewLimiter(cfg *config.Config, rdb *redis.Client) (ratelimit.Limiter, error) {
	switch cfg.RateLimitDriver {
	case config.RateLimitStore:
		store, err := NewLimiterStore(rdb)
		if err != nil {
			return nil, fmt.Errorf("limiter store: %w", err)
		}
		return ratelimit.StoreLimiter{Store: store}, nil
	default:
		return ratelimit.SlidingWindow{Client: rdb, Prefix: "catalogo:rl"}, nil
	}
}

// NewHandlers builds the HTTP handlers for the catalog, shopping lists, image
// proxy and health endpoints.
func NewHandlers(cfg *config.Config, deps *Dependencies, logger zerolog.Logger) (Handlers, error) {
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      repo.NewCatalog(deps.DB),
		Plans:        repo.NewPlans(deps.DB),
		Cache:        catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		OfferLabel:   cfg.OfferLabel,
		Logger:       logger.With().Str("module", "catalog").Logger(),
		DefaultPage:  cfg.CatalogDefaultPage,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		return Handlers{}, fmt.Errorf("initialise catalog service: %w", err)
	}

	store, err := shoppinglist.NewStore(shoppinglist.StoreConfig{
		Persister: shoppinglist.RedisPersister{R: deps.Redis, TTL: cfg.ShoppingListTTL, Logger: logger},
		Locker:    lock.Locker{R: deps.Redis, MaxWait: cfg.ShoppingListLockWait},
		LockTTL:   cfg.ShoppingListLockTTL,
		Logger:    logger.With().Str("module", "shoppinglist").Logger(),
	})
	if err != nil {
		return Handlers{}, fmt.Errorf("initialise shopping list store: %w", err)
	}

	return Handlers{
		Catalog: catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		Lists: &shoppinglist.Handler{
			Store:     store,
			Quoter:    catalogService,
			Validator: deps.Validator,
			Idem:      common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL},
		},
		ImageProxy: imageproxy.NewHandler(imageproxy.Config{
			Client:         imageproxy.NewUpstreamClient(cfg.ImageProxyTimeout, logger),
			AllowedDomains: cfg.ImageProxyAllowedDomains,
			MaxBytes:       cfg.ImageProxyMaxBytes,
			CacheMaxAge:    cfg.ImageProxyCacheMaxAge,
			Logger:         logger.With().Str("module", "imageproxy").Logger(),
		}),
		Health: health.Handler{Checker: deps},
	}, nil
}
