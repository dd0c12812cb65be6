package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/catalogo-api/internal/pricing"
)

// Line is a product line grouping categories.
type Line struct {
	ID   int64
	Name string
	Slug string
}

// Category is a catalog category.
type Category struct {
	ID     int64
	LineID pgtype.Int8
	Name   string
	Slug   string
}

// Brand is a product brand.
type Brand struct {
	ID      int64
	Name    string
	Slug    string
	LogoURL pgtype.Text
}

// ProductFilter narrows CountProducts and ListProducts.
type ProductFilter struct {
	Query    string
	Category string
	Brand    string
	Featured *bool
	InStock  *bool
	Sort     string
	Limit    int32
	Offset   int32
}

// ProductRow is a product joined with its category, brand and running promotion.
type ProductRow struct {
	ID               int64
	Title            string
	Description      pgtype.Text
	CategoryID       pgtype.Int8
	CategorySlug     pgtype.Text
	CategoryName     pgtype.Text
	BrandID          pgtype.Int8
	BrandName        pgtype.Text
	Price            pgtype.Numeric
	Stock            int32
	Featured         bool
	Images           []string
	OfferPrice       pgtype.Numeric
	OfferPercent     pgtype.Numeric
	OfferStartsAt    pgtype.Timestamptz
	OfferEndsAt      pgtype.Timestamptz
	PromotionName    pgtype.Text
	PromotionPercent pgtype.Numeric
	PromotionPrice   pgtype.Numeric
	UseAllPlans      bool
	UseCategoryPlans bool
	UseSpecialPlans  bool
}

// PricingItem maps the row onto the price resolver input.
func (r ProductRow) PricingItem() pricing.Item {
	item := pricing.Item{BasePrice: DecimalOrZero(r.Price)}
	if r.OfferPrice.Valid {
		item.Offer = &pricing.Offer{Price: DecimalOrZero(r.OfferPrice), Percent: DecimalOrZero(r.OfferPercent)}
	}
	if r.PromotionName.Valid {
		item.Promotion = &pricing.Promotion{
			Name:    r.PromotionName.String,
			Price:   DecimalOrZero(r.PromotionPrice),
			Percent: DecimalOrZero(r.PromotionPercent),
		}
	}
	return item
}

// OfferWindow returns the validity window of the individual offer.
func (r ProductRow) OfferWindow() pricing.Window {
	return pricing.Window{StartsAt: timePtr(r.OfferStartsAt), EndsAt: timePtr(r.OfferEndsAt)}
}

// ComboRow is a stored combo.
type ComboRow struct {
	ID              int64
	Name            string
	Description     pgtype.Text
	StartsAt        pgtype.Timestamptz
	EndsAt          pgtype.Timestamptz
	DiscountPercent pgtype.Numeric
	ComboPrice      pgtype.Numeric
	OriginalPrice   pgtype.Numeric
	Images          []string
	Active          bool
}

// Pricing maps the row onto the combo resolver input.
func (r ComboRow) Pricing() pricing.ComboPricing {
	return pricing.ComboPricing{
		Price:           DecimalOrZero(r.ComboPrice),
		OriginalPrice:   DecimalOrZero(r.OriginalPrice),
		DiscountPercent: DecimalOrZero(r.DiscountPercent),
		Active:          r.Active,
		Window:          pricing.Window{StartsAt: timePtr(r.StartsAt), EndsAt: timePtr(r.EndsAt)},
	}
}

// ComboProductRow is one product bundled in a combo.
type ComboProductRow struct {
	ComboID   int64
	ProductID int64
	Title     string
	Quantity  int32
	UnitPrice pgtype.Numeric
	Images    []string
}

// Catalog runs the storefront read queries.
type Catalog struct {
	DB DBTX
}

// NewCatalog constructs a Catalog over db.
func NewCatalog(db DBTX) *Catalog {
	return &Catalog{DB: db}
}

const listLines = `SELECT id, name, slug FROM product_lines ORDER BY name`

// ListLines returns every product line sorted by name.
func (c *Catalog) ListLines(ctx context.Context) ([]Line, error) {
	rows, err := c.DB.Query(ctx, listLines)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var l Line
		err := row.Scan(&l.ID, &l.Name, &l.Slug)
		return l, err
	})
}

const listCategories = `SELECT id, line_id, name, slug FROM categories ORDER BY name`

// ListCategories returns every category sorted by name.
func (c *Catalog) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := c.DB.Query(ctx, listCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var cat Category
		err := row.Scan(&cat.ID, &cat.LineID, &cat.Name, &cat.Slug)
		return cat, err
	})
}

const listBrands = `SELECT id, name, slug, logo_url FROM brands ORDER BY name`

// ListBrands returns every brand sorted by name.
func (c *Catalog) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := c.DB.Query(ctx, listBrands)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Brand, error) {
		var b Brand
		err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.LogoURL)
		return b, err
	})
}

const productColumns = `
    p.id, p.title, p.description, p.category_id, c.slug, c.name, p.brand_id, b.name,
    p.price, p.stock, p.featured, p.images,
    p.offer_price, p.offer_percent, p.offer_starts_at, p.offer_ends_at,
    pr.name, pr.discount_percent, p.promotion_price,
    p.use_all_plans, p.use_category_plans, p.use_special_plans`

const productJoins = `
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN brands b ON b.id = p.brand_id
LEFT JOIN promotions pr ON pr.id = p.promotion_id
    AND pr.active
    AND (pr.starts_at IS NULL OR pr.starts_at <= now())
    AND (pr.ends_at IS NULL OR pr.ends_at >= now())`

const productFilters = `
WHERE ($1::text IS NULL OR p.title ILIKE '%' || $1 || '%' OR p.description ILIKE '%' || $1 || '%')
  AND ($2::text IS NULL OR c.slug = $2)
  AND ($3::text IS NULL OR b.slug = $3)
  AND ($4::boolean IS NULL OR p.featured = $4)
  AND ($5::boolean IS NULL OR (p.stock > 0) = $5)`

const countProducts = `SELECT count(*)` + productJoins + productFilters

// CountProducts counts products matching f.
func (c *Catalog) CountProducts(ctx context.Context, f ProductFilter) (int64, error) {
	var total int64
	if err := c.DB.QueryRow(ctx, countProducts, filterArgs(f)...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

const listProducts = `SELECT` + productColumns + productJoins + productFilters + `
ORDER BY
    CASE WHEN $6 = 'price:asc' THEN p.price END ASC,
    CASE WHEN $6 = 'price:desc' THEN p.price END DESC,
    CASE WHEN $6 = 'title:asc' THEN p.title END ASC,
    CASE WHEN $6 = 'title:desc' THEN p.title END DESC,
    p.featured DESC, p.id DESC
LIMIT $7 OFFSET $8`

// ListProducts returns one page of products matching f.
func (c *Catalog) ListProducts(ctx context.Context, f ProductFilter) ([]ProductRow, error) {
	args := append(filterArgs(f), f.Sort, f.Limit, f.Offset)
	rows, err := c.DB.Query(ctx, listProducts, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductRow, error) {
		return scanProduct(row)
	})
}

const getProduct = `SELECT` + productColumns + productJoins + `
WHERE p.id = $1`

// GetProduct loads one product. It returns ErrNotFound when id is unknown.
func (c *Catalog) GetProduct(ctx context.Context, id int64) (ProductRow, error) {
	p, err := scanProduct(c.DB.QueryRow(ctx, getProduct, id))
	if err != nil {
		return ProductRow{}, notFound(err, "get product")
	}
	return p, nil
}

const listRelatedProducts = `SELECT` + productColumns + productJoins + `
WHERE p.category_id = $1 AND p.id <> $2
ORDER BY p.featured DESC, p.id DESC
LIMIT $3`

// ListRelatedProducts returns products of the same category, excluding productID.
func (c *Catalog) ListRelatedProducts(ctx context.Context, categoryID, productID int64, limit int32) ([]ProductRow, error) {
	rows, err := c.DB.Query(ctx, listRelatedProducts, categoryID, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductRow, error) {
		return scanProduct(row)
	})
}

const comboColumns = `id, name, description, starts_at, ends_at, discount_percent, combo_price, original_price, images, active`

const listCombos = `SELECT ` + comboColumns + ` FROM combos
WHERE active
  AND (starts_at IS NULL OR starts_at <= now())
  AND (ends_at IS NULL OR ends_at >= now())
ORDER BY id DESC`

// ListCombos returns the combos active right now.
func (c *Catalog) ListCombos(ctx context.Context) ([]ComboRow, error) {
	rows, err := c.DB.Query(ctx, listCombos)
	if err != nil {
		return nil, fmt.Errorf("list combos: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ComboRow, error) {
		return scanCombo(row)
	})
}

const getCombo = `SELECT ` + comboColumns + ` FROM combos WHERE id = $1`

// GetCombo loads one combo regardless of its validity.
func (c *Catalog) GetCombo(ctx context.Context, id int64) (ComboRow, error) {
	combo, err := scanCombo(c.DB.QueryRow(ctx, getCombo, id))
	if err != nil {
		return ComboRow{}, notFound(err, "get combo")
	}
	return combo, nil
}

const listComboProducts = `SELECT cp.combo_id, cp.product_id, p.title, cp.quantity, cp.unit_price, p.images
FROM combo_products cp
JOIN products p ON p.id = cp.product_id
WHERE cp.combo_id = $1
ORDER BY cp.id`

// ListComboProducts returns the products bundled in a combo.
func (c *Catalog) ListComboProducts(ctx context.Context, comboID int64) ([]ComboProductRow, error) {
	rows, err := c.DB.Query(ctx, listComboProducts, comboID)
	if err != nil {
		return nil, fmt.Errorf("list combo products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ComboProductRow, error) {
		var cp ComboProductRow
		err := row.Scan(&cp.ComboID, &cp.ProductID, &cp.Title, &cp.Quantity, &cp.UnitPrice, &cp.Images)
		return cp, err
	})
}

func scanProduct(row pgx.Row) (ProductRow, error) {
	var p ProductRow
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.CategoryID, &p.CategorySlug, &p.CategoryName, &p.BrandID, &p.BrandName,
		&p.Price, &p.Stock, &p.Featured, &p.Images,
		&p.OfferPrice, &p.OfferPercent, &p.OfferStartsAt, &p.OfferEndsAt,
		&p.PromotionName, &p.PromotionPercent, &p.PromotionPrice,
		&p.UseAllPlans, &p.UseCategoryPlans, &p.UseSpecialPlans,
	)
	return p, err
}

func scanCombo(row pgx.Row) (ComboRow, error) {
	var c ComboRow
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.StartsAt, &c.EndsAt, &c.DiscountPercent, &c.ComboPrice, &c.OriginalPrice, &c.Images, &c.Active)
	return c, err
}

func filterArgs(f ProductFilter) []any {
	return []any{
		optionalString(f.Query),
		optionalString(f.Category),
		optionalString(f.Brand),
		optionalBool(f.Featured),
		optionalBool(f.InStock),
	}
}

func optionalString(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func optionalBool(ptr *bool) any {
	if ptr == nil {
		return nil
	}
	return *ptr
}
