package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/catalogo-api/internal/catalog"
	"github.com/noah-isme/catalogo-api/internal/config"
	"github.com/noah-isme/catalogo-api/internal/db"
	"github.com/noah-isme/catalogo-api/internal/obs"
	"github.com/noah-isme/catalogo-api/internal/repo"
)

func main() {
	logger := obs.NewLogger("console", "info")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	ds, err := loadDataset()
	if err != nil {
		logger.Fatal().Err(err).Msg("load seed data")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return seed(ctx, tx, ds, logger)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}

	purgeCache(ctx, cfg, logger)
	logger.Info().Msg("seeding completed")
}

func seed(ctx context.Context, tx pgx.Tx, ds dataset, logger zerolog.Logger) error {
	lineIDs := map[string]int64{}
	for _, l := range ds.Lines {
		id, err := upsertSlug(ctx, tx, `INSERT INTO product_lines (name, slug) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name RETURNING id`, l.Name, l.Slug)
		if err != nil {
			return fmt.Errorf("line %s: %w", l.Slug, err)
		}
		lineIDs[l.Slug] = id
	}
	logger.Info().Int("count", len(lineIDs)).Msg("lines seeded")

	categoryIDs := map[string]int64{}
	for _, c := range ds.Categories {
		id, err := upsertSlug(ctx, tx, `INSERT INTO categories (name, slug, line_id) VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, line_id = EXCLUDED.line_id RETURNING id`, c.Name, c.Slug, lineIDs[c.Line])
		if err != nil {
			return fmt.Errorf("category %s: %w", c.Slug, err)
		}
		categoryIDs[c.Slug] = id
	}

	brandIDs := map[string]int64{}
	for _, b := range ds.Brands {
		id, err := upsertSlug(ctx, tx, `INSERT INTO brands (name, slug) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name RETURNING id`, b.Name, b.Slug)
		if err != nil {
			return fmt.Errorf("brand %s: %w", b.Slug, err)
		}
		brandIDs[b.Slug] = id
	}
	logger.Info().Int("categories", len(categoryIDs)).Int("brands", len(brandIDs)).Msg("taxonomy seeded")

	planIDs := map[string]int64{}
	for _, p := range ds.Plans {
		id, err := ensureID(ctx, tx, `SELECT id FROM financing_plans WHERE name = $1`, p.Name,
			`INSERT INTO financing_plans (name, installments, surcharge_percent, surcharge_fixed, min_amount, max_amount, min_down_payment_percent)
			 VALUES ($1, $2, $3, 0, $4, $5, $6) RETURNING id`,
			p.Name, p.Installments, numeric(p.Surcharge), optional(p.MinAmount), optional(p.MaxAmount), optional(p.DownPercent))
		if err != nil {
			return fmt.Errorf("plan %s: %w", p.Name, err)
		}
		planIDs[p.Name] = id
	}
	for slug, names := range ds.CategoryPlans {
		for _, name := range names {
			if err := link(ctx, tx, "category_plans", "category_id", categoryIDs[slug], planIDs[name]); err != nil {
				return fmt.Errorf("category plan %s/%s: %w", slug, name, err)
			}
		}
	}
	logger.Info().Int("count", len(planIDs)).Msg("plans seeded")

	now := time.Now().UTC()
	productIDs := map[string]int64{}
	productPrices := map[string]decimal.Decimal{}
	for _, p := range ds.Products {
		var promotionID *int64
		if p.Promotion != "" {
			id, err := ensureID(ctx, tx, `SELECT id FROM promotions WHERE name = $1`, p.Promotion,
				`INSERT INTO promotions (name, discount_percent, starts_at, ends_at) VALUES ($1, 15, $2, $3) RETURNING id`,
				p.Promotion, now.Add(-24*time.Hour), now.Add(7*24*time.Hour))
			if err != nil {
				return fmt.Errorf("promotion %s: %w", p.Promotion, err)
			}
			promotionID = &id
		}
		var offerStart, offerEnd *time.Time
		if p.OfferPrice != "" {
			start, end := now.Add(-time.Hour), now.Add(time.Duration(p.OfferDays)*24*time.Hour)
			offerStart, offerEnd = &start, &end
		}
		price := decimal.RequireFromString(p.Price)
		id, err := ensureID(ctx, tx, `SELECT id FROM products WHERE title = $1`, p.Title,
			`INSERT INTO products (title, category_id, brand_id, price, stock, featured, offer_price, offer_starts_at, offer_ends_at,
				promotion_id, use_all_plans, use_category_plans, use_special_plans)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
			p.Title, categoryIDs[p.Category], brandIDs[p.Brand], repo.Numeric(price), p.Stock, p.Featured,
			optional(p.OfferPrice), offerStart, offerEnd, promotionID, p.AllPlans, p.CategoryPlan, len(p.Special) > 0)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.Title, err)
		}
		productIDs[p.Title] = id
		productPrices[p.Title] = price
		for _, name := range p.Special {
			if err := link(ctx, tx, "product_plans", "product_id", id, planIDs[name]); err != nil {
				return fmt.Errorf("special plan %s: %w", name, err)
			}
		}
		for _, name := range p.Defaults {
			if err := link(ctx, tx, "product_default_plans", "product_id", id, planIDs[name]); err != nil {
				return fmt.Errorf("default plan %s: %w", name, err)
			}
		}
	}
	logger.Info().Int("count", len(productIDs)).Msg("products seeded")

	for _, c := range ds.Combos {
		original := decimal.Zero
		for _, title := range c.Products {
			original = original.Add(productPrices[title])
		}
		discount := decimal.RequireFromString(c.Discount)
		comboPrice := original.Mul(decimal.NewFromInt(100).Sub(discount)).Div(decimal.NewFromInt(100)).Round(2)
		id, err := ensureID(ctx, tx, `SELECT id FROM combos WHERE name = $1`, c.Name,
			`INSERT INTO combos (name, starts_at, ends_at, discount_percent, combo_price, original_price)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			c.Name, now.Add(-time.Hour), now.Add(time.Duration(c.Days)*24*time.Hour), repo.Numeric(discount), repo.Numeric(comboPrice), repo.Numeric(original))
		if err != nil {
			return fmt.Errorf("combo %s: %w", c.Name, err)
		}
		for _, title := range c.Products {
			_, err := tx.Exec(ctx, `INSERT INTO combo_products (combo_id, product_id, quantity, unit_price)
				SELECT $1, $2, 1, $3 WHERE NOT EXISTS (SELECT 1 FROM combo_products WHERE combo_id = $1 AND product_id = $2)`,
				id, productIDs[title], repo.Numeric(productPrices[title]))
			if err != nil {
				return fmt.Errorf("combo product %s: %w", title, err)
			}
		}
		for _, name := range c.Plans {
			if err := link(ctx, tx, "combo_plans", "combo_id", id, planIDs[name]); err != nil {
				return fmt.Errorf("combo plan %s: %w", name, err)
			}
		}
	}
	logger.Info().Int("count", len(ds.Combos)).Msg("combos seeded")
	return nil
}

func upsertSlug(ctx context.Context, tx pgx.Tx, sql string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, sql, args...).Scan(&id)
	return id, err
}

// ensureID returns the id found by lookup or inserts a new row.
func ensureID(ctx context.Context, tx pgx.Tx, lookup string, key any, insert string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, lookup, key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	err = tx.QueryRow(ctx, insert, args...).Scan(&id)
	return id, err
}

func link(ctx context.Context, tx pgx.Tx, table, ownerColumn string, ownerID, planID int64) error {
	sql := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, plan_id) SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM %[1]s WHERE %[2]s = $1 AND plan_id = $2)`, table, ownerColumn)
	_, err := tx.Exec(ctx, sql, ownerID, planID)
	return err
}

func numeric(raw string) any {
	if raw == "" {
		return repo.Numeric(decimal.Zero)
	}
	return repo.Numeric(decimal.RequireFromString(raw))
}

func optional(raw string) any {
	if raw == "" {
		return repo.OptionalNumeric(nil)
	}
	d := decimal.RequireFromString(raw)
	return repo.OptionalNumeric(&d)
}

func purgeCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("parse redis url, cache not purged")
		return
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	deleted, err := catalog.NewCache(client, cfg.CatalogCacheTTL).Purge(ctx, "catalog:*")
	if err != nil {
		logger.Warn().Err(err).Msg("purge catalog cache")
		return
	}
	logger.Info().Int64("keys", deleted).Msg("catalog cache purged")
	if os.Getenv("SEED_PURGE_LISTS") == "true" {
		n, err := catalog.NewCache(client, 0).Purge(ctx, "lists:*")
		if err != nil {
			logger.Warn().Err(err).Msg("purge shopping lists")
			return
		}
		logger.Info().Int64("keys", n).Msg("shopping lists purged")
	}
}
