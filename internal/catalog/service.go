package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/catalogo-api/internal/common"
	"github.com/noah-isme/catalogo-api/internal/financing"
	"github.com/noah-isme/catalogo-api/internal/obs"
	"github.com/noah-isme/catalogo-api/internal/pricing"
	"github.com/noah-isme/catalogo-api/internal/repo"
)

// ErrNotFound is wrapped by lookups of unknown products or combos.
var ErrNotFound = repo.ErrNotFound

const (
	relatedProductsLimit = 6
	relatedCombosLimit   = 3
)

type queryProvider interface {
	ListLines(ctx context.Context) ([]repo.Line, error)
	ListCategories(ctx context.Context) ([]repo.Category, error)
	ListBrands(ctx context.Context) ([]repo.Brand, error)
	CountProducts(ctx context.Context, f repo.ProductFilter) (int64, error)
	ListProducts(ctx context.Context, f repo.ProductFilter) ([]repo.ProductRow, error)
	GetProduct(ctx context.Context, id int64) (repo.ProductRow, error)
	ListRelatedProducts(ctx context.Context, categoryID, productID int64, limit int32) ([]repo.ProductRow, error)
	ListCombos(ctx context.Context) ([]repo.ComboRow, error)
	GetCombo(ctx context.Context, id int64) (repo.ComboRow, error)
	ListComboProducts(ctx context.Context, comboID int64) ([]repo.ComboProductRow, error)
}

type planProvider interface {
	PlansForProduct(ctx context.Context, productID int64) (repo.PlanSet, error)
	PlansForCombo(ctx context.Context, comboID int64) (repo.PlanSet, error)
}

// Service orchestrates catalog queries, price resolution, financing quotes and caching.
type Service struct {
	queries      queryProvider
	plans        planProvider
	cache        *Cache
	resolver     pricing.Resolver
	logger       zerolog.Logger
	now          func() time.Time
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Plans        planProvider
	Cache        *Cache
	OfferLabel   string
	Logger       zerolog.Logger
	Now          func() time.Time
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Brand    string
	Featured *bool
	InStock  *bool
	Sort     string
	Page     int
	Limit    int
}

// Mini is a minimal representation of a category or brand.
type Mini struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Line is the public product line payload.
type Line struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Category is the public category payload.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	LineID *int64 `json:"lineId,omitempty"`
}

// Brand is the public brand payload.
type Brand struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Slug    string  `json:"slug"`
	LogoURL *string `json:"logoUrl,omitempty"`
}

// ProductListItem represents an entry in list and related responses.
type ProductListItem struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	Pricing   pricing.Resolution `json:"pricing"`
	InStock   bool               `json:"inStock"`
	Featured  bool               `json:"featured"`
	Thumbnail *string            `json:"thumbnail,omitempty"`
	Category  *Mini              `json:"category,omitempty"`
	Brand     *Mini              `json:"brand,omitempty"`
}

// ProductDetail aggregates the full product payload.
type ProductDetail struct {
	ProductListItem
	Description *string  `json:"description,omitempty"`
	Stock       int32    `json:"stock"`
	Images      []string `json:"images"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

// ComboProduct is one product bundled in a combo.
type ComboProduct struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Thumbnail *string         `json:"thumbnail,omitempty"`
}

// ComboSummary is a combo entry in list responses.
type ComboSummary struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	Pricing     pricing.ComboResolution `json:"pricing"`
	Thumbnail   *string                 `json:"thumbnail,omitempty"`
	StartsAt    *time.Time              `json:"startsAt,omitempty"`
	EndsAt      *time.Time              `json:"endsAt,omitempty"`
}

// ComboDetail is the full combo payload.
type ComboDetail struct {
	ComboSummary
	Images   []string       `json:"images"`
	Products []ComboProduct `json:"products"`
}

// Quote is the effective price of a product or combo with its ranked plans.
type Quote struct {
	Source    string           `json:"source"`
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	Category  string           `json:"category,omitempty"`
	Brand     string           `json:"brand,omitempty"`
	Thumbnail *string          `json:"thumbnail,omitempty"`
	InStock   bool             `json:"inStock"`
	Price     decimal.Decimal  `json:"price"`
	Scope     repo.PlanScope   `json:"scope"`
	Result    financing.Result `json:"-"`
}

// FinancingView is the rendered financing payload of a product or combo.
type FinancingView struct {
	Price     decimal.Decimal      `json:"price"`
	Scope     repo.PlanScope       `json:"scope"`
	View      financing.View       `json:"view"`
	Plans     []financing.PlanView `json:"plans"`
	Available bool                 `json:"available"`
}

// Quote sources.
const (
	SourceProduct = "product"
	SourceCombo   = "combo"
)

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	if cfg.Plans == nil {
		return nil, errors.New("catalog: plans provider is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		queries:      cfg.Queries,
		plans:        cfg.Plans,
		cache:        cfg.Cache,
		resolver:     pricing.Resolver{OfferLabel: cfg.OfferLabel},
		logger:       cfg.Logger,
		now:          now,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  s.defaultPage,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))
	params.Brand = strings.TrimSpace(values.Get("brand"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit

	if v := strings.TrimSpace(values.Get("featured")); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return params, badRequest("featured", "featured must be true or false", err)
		}
		params.Featured = &b
	}
	if v := strings.TrimSpace(values.Get("inStock")); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return params, badRequest("inStock", "inStock must be true or false", err)
		}
		params.InStock = &b
	}

	params.Sort = normalizeSort(values.Get("sort"))
	return params, nil
}

// ListLines returns every product line.
func (s *Service) ListLines(ctx context.Context) ([]Line, error) {
	rows, err := s.queries.ListLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	result := make([]Line, 0, len(rows))
	for _, row := range rows {
		result = append(result, Line{ID: row.ID, Name: row.Name, Slug: row.Slug})
	}
	return result, nil
}

// ListCategories returns every category with its line linkage.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]Category, 0, len(rows))
	for _, row := range rows {
		cat := Category{ID: row.ID, Name: row.Name, Slug: row.Slug}
		if row.LineID.Valid {
			lineID := row.LineID.Int64
			cat.LineID = &lineID
		}
		result = append(result, cat)
	}
	return result, nil
}

// ListBrands returns the list of brands sorted by name.
func (s *Service) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := s.queries.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	result := make([]Brand, 0, len(rows))
	for _, row := range rows {
		brand := Brand{ID: row.ID, Name: row.Name, Slug: row.Slug}
		if row.LogoURL.Valid {
			logo := row.LogoURL.String
			brand.LogoURL = &logo
		}
		result = append(result, brand)
	}
	return result, nil
}

// ListProducts returns filtered products with resolved prices and pagination metadata.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key, shouldUseCache := s.listCacheKey(params)
	if shouldUseCache && s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ProductListResult{Items: s.listItems(cached.Records), Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	filter := repo.ProductFilter{
		Query:    params.Query,
		Category: params.Category,
		Brand:    params.Brand,
		Featured: params.Featured,
		InStock:  params.InStock,
		Sort:     params.Sort,
	}
	total, err := s.queries.CountProducts(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	offset := int32((params.Page - 1) * params.Limit)
	if offset < 0 {
		offset = 0
	}
	filter.Offset = offset
	filter.Limit = int32(params.Limit)
	rows, err := s.queries.ListProducts(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	records := make([]productRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, newProductRecord(row))
	}
	if shouldUseCache && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Records: records, Total: total})
	}
	return ProductListResult{Items: s.listItems(records), Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// GetProductDetail returns a product with its price resolved at request time.
func (s *Service) GetProductDetail(ctx context.Context, id int64) (ProductDetail, error) {
	rec, err := s.productRecord(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{
		ProductListItem: s.listItem(rec),
		Description:     rec.Description,
		Stock:           rec.Stock,
		Images:          rec.Images,
	}, nil
}

// ListRelatedProducts returns other products from the same category.
func (s *Service) ListRelatedProducts(ctx context.Context, id int64) ([]ProductListItem, error) {
	rec, err := s.productRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Category == nil {
		return []ProductListItem{}, nil
	}
	rows, err := s.queries.ListRelatedProducts(ctx, rec.Category.ID, rec.ID, relatedProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	records := make([]productRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, newProductRecord(row))
	}
	return s.listItems(records), nil
}

// ListCombos returns the combos valid right now.
func (s *Service) ListCombos(ctx context.Context) ([]ComboSummary, error) {
	rows, err := s.queries.ListCombos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list combos: %w", err)
	}
	now := s.now()
	result := make([]ComboSummary, 0, len(rows))
	for _, row := range rows {
		summary := comboSummary(newComboRecord(row, nil), now)
		if !summary.Pricing.Valid {
			continue
		}
		result = append(result, summary)
	}
	return result, nil
}

// GetComboDetail returns a combo with its bundled products. Combos outside
// their validity window are reported as not found.
func (s *Service) GetComboDetail(ctx context.Context, id int64) (ComboDetail, error) {
	rec, err := s.comboRecord(ctx, id)
	if err != nil {
		return ComboDetail{}, err
	}
	summary := comboSummary(rec, s.now())
	if !summary.Pricing.Valid {
		return ComboDetail{}, notFoundError("combo", fmt.Errorf("combo %d: %w", id, ErrNotFound))
	}
	return ComboDetail{ComboSummary: summary, Images: rec.Images, Products: rec.Products}, nil
}

// ListRelatedCombos returns up to three other valid combos.
func (s *Service) ListRelatedCombos(ctx context.Context, id int64) ([]ComboSummary, error) {
	if _, err := s.comboRecord(ctx, id); err != nil {
		return nil, err
	}
	all, err := s.ListCombos(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]ComboSummary, 0, relatedCombosLimit)
	for _, c := range all {
		if c.ID == id {
			continue
		}
		result = append(result, c)
		if len(result) == relatedCombosLimit {
			break
		}
	}
	return result, nil
}

// QuoteProduct runs the financing pipeline over the product's effective price.
func (s *Service) QuoteProduct(ctx context.Context, id int64) (Quote, error) {
	rec, err := s.productRecord(ctx, id)
	if err != nil {
		s.countQuote(SourceProduct, "error")
		return Quote{}, err
	}
	set, err := s.productPlans(ctx, id)
	if err != nil {
		s.countQuote(SourceProduct, "error")
		return Quote{}, err
	}
	item := s.listItem(rec)
	q := Quote{
		Source:    SourceProduct,
		ID:        rec.ID,
		Title:     rec.Title,
		Thumbnail: item.Thumbnail,
		InStock:   item.InStock,
		Price:     item.Pricing.EffectivePrice,
		Scope:     set.Scope,
	}
	if rec.Category != nil {
		q.Category = rec.Category.Name
	}
	if rec.Brand != nil {
		q.Brand = rec.Brand.Name
	}
	q.Result = s.quote(SourceProduct, id, q.Price, set)
	return q, nil
}

// QuoteCombo runs the financing pipeline over the combo price.
func (s *Service) QuoteCombo(ctx context.Context, id int64) (Quote, error) {
	detail, err := s.GetComboDetail(ctx, id)
	if err != nil {
		s.countQuote(SourceCombo, "error")
		return Quote{}, err
	}
	set, err := s.comboPlans(ctx, id)
	if err != nil {
		s.countQuote(SourceCombo, "error")
		return Quote{}, err
	}
	q := Quote{
		Source:    SourceCombo,
		ID:        detail.ID,
		Title:     detail.Name,
		Category:  "Combo",
		Thumbnail: detail.Thumbnail,
		InStock:   true,
		Price:     detail.Pricing.Price,
		Scope:     set.Scope,
	}
	q.Result = s.quote(SourceCombo, id, q.Price, set)
	return q, nil
}

// ProductFinancing renders the product's plans for view.
func (s *Service) ProductFinancing(ctx context.Context, id int64, view financing.View, selectedPlanID int64) (FinancingView, error) {
	q, err := s.QuoteProduct(ctx, id)
	if err != nil {
		return FinancingView{}, err
	}
	return renderFinancing(q, view, selectedPlanID), nil
}

// ComboFinancing renders the combo's plans for view.
func (s *Service) ComboFinancing(ctx context.Context, id int64, view financing.View, selectedPlanID int64) (FinancingView, error) {
	q, err := s.QuoteCombo(ctx, id)
	if err != nil {
		return FinancingView{}, err
	}
	return renderFinancing(q, view, selectedPlanID), nil
}

func renderFinancing(q Quote, view financing.View, selectedPlanID int64) FinancingView {
	return FinancingView{
		Price:     q.Price,
		Scope:     q.Scope,
		View:      view,
		Plans:     financing.Present(q.Result.Plans, view, selectedPlanID),
		Available: q.Result.Available(),
	}
}

func (s *Service) quote(source string, id int64, price decimal.Decimal, set repo.PlanSet) financing.Result {
	res := financing.Quote(price, set.Plans)
	res.Warnings = append(append([]financing.Warning(nil), set.Warnings...), res.Warnings...)
	for _, w := range res.Warnings {
		s.logger.Warn().
			Str("source", source).
			Int64("source_id", id).
			Int64("plan_id", w.PlanID).
			Str("plan_name", w.PlanName).
			Str("reason", w.Reason).
			Str("detail", w.Detail).
			Msg("financing plan skipped")
		if obs.FinancingPlansSkippedTotal != nil {
			obs.FinancingPlansSkippedTotal.WithLabelValues(w.Reason).Inc()
		}
	}
	result := "available"
	if !res.Available() {
		result = "empty"
	}
	s.countQuote(source, result)
	return res
}

func (s *Service) countQuote(source, result string) {
	if obs.FinancingQuotesTotal != nil {
		obs.FinancingQuotesTotal.WithLabelValues(source, result).Inc()
	}
}

func (s *Service) productRecord(ctx context.Context, id int64) (productRecord, error) {
	if id < 1 {
		return productRecord{}, badRequest("id", "id must be a positive integer", nil)
	}
	key := productCacheKey(id)
	if s.cache != nil {
		var cached productRecord
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	row, err := s.queries.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return productRecord{}, notFoundError("product", err)
		}
		return productRecord{}, fmt.Errorf("get product: %w", err)
	}
	rec := newProductRecord(row)
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, rec)
	}
	return rec, nil
}

func (s *Service) comboRecord(ctx context.Context, id int64) (comboRecord, error) {
	if id < 1 {
		return comboRecord{}, badRequest("id", "id must be a positive integer", nil)
	}
	key := comboCacheKey(id)
	if s.cache != nil {
		var cached comboRecord
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	row, err := s.queries.GetCombo(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return comboRecord{}, notFoundError("combo", err)
		}
		return comboRecord{}, fmt.Errorf("get combo: %w", err)
	}
	products, err := s.queries.ListComboProducts(ctx, id)
	if err != nil {
		return comboRecord{}, fmt.Errorf("list combo products: %w", err)
	}
	rec := newComboRecord(row, products)
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, rec)
	}
	return rec, nil
}

func (s *Service) productPlans(ctx context.Context, id int64) (repo.PlanSet, error) {
	key := productPlansCacheKey(id)
	if s.cache != nil {
		var cached repo.PlanSet
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	set, err := s.plans.PlansForProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return repo.PlanSet{}, notFoundError("product", err)
		}
		return repo.PlanSet{}, fmt.Errorf("plans for product: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, set)
	}
	return set, nil
}

func (s *Service) comboPlans(ctx context.Context, id int64) (repo.PlanSet, error) {
	key := comboPlansCacheKey(id)
	if s.cache != nil {
		var cached repo.PlanSet
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	set, err := s.plans.PlansForCombo(ctx, id)
	if err != nil {
		return repo.PlanSet{}, fmt.Errorf("plans for combo: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, set)
	}
	return set, nil
}

func (s *Service) listItems(records []productRecord) []ProductListItem {
	items := make([]ProductListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, s.listItem(rec))
	}
	return items
}

func (s *Service) listItem(rec productRecord) ProductListItem {
	item := ProductListItem{
		ID:       rec.ID,
		Title:    rec.Title,
		Pricing:  s.resolver.Resolve(rec.Item, rec.OfferWindow.Active(s.now())),
		InStock:  rec.Stock > 0,
		Featured: rec.Featured,
		Category: rec.Category,
		Brand:    rec.Brand,
	}
	if len(rec.Images) > 0 {
		thumb := rec.Images[0]
		item.Thumbnail = &thumb
	}
	return item
}

// productRecord is the cached form of a product. Prices are resolved on read
// so offer windows are evaluated at request time.
type productRecord struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Category    *Mini          `json:"category,omitempty"`
	Brand       *Mini          `json:"brand,omitempty"`
	Stock       int32          `json:"stock"`
	Featured    bool           `json:"featured"`
	Images      []string       `json:"images"`
	Item        pricing.Item   `json:"item"`
	OfferWindow pricing.Window `json:"offerWindow"`
}

func newProductRecord(row repo.ProductRow) productRecord {
	rec := productRecord{
		ID:          row.ID,
		Title:       row.Title,
		Stock:       row.Stock,
		Featured:    row.Featured,
		Images:      nonNilStrings(row.Images),
		Item:        row.PricingItem(),
		OfferWindow: row.OfferWindow(),
	}
	if row.Description.Valid {
		desc := row.Description.String
		rec.Description = &desc
	}
	if row.CategoryID.Valid {
		rec.Category = &Mini{ID: row.CategoryID.Int64, Name: row.CategoryName.String, Slug: row.CategorySlug.String}
	}
	if row.BrandID.Valid {
		rec.Brand = &Mini{ID: row.BrandID.Int64, Name: row.BrandName.String}
	}
	return rec
}

type comboRecord struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description *string              `json:"description,omitempty"`
	Images      []string             `json:"images"`
	Pricing     pricing.ComboPricing `json:"pricing"`
	Products    []ComboProduct       `json:"products"`
}

func newComboRecord(row repo.ComboRow, products []repo.ComboProductRow) comboRecord {
	rec := comboRecord{
		ID:       row.ID,
		Name:     row.Name,
		Images:   nonNilStrings(row.Images),
		Pricing:  row.Pricing(),
		Products: make([]ComboProduct, 0, len(products)),
	}
	if row.Description.Valid {
		desc := row.Description.String
		rec.Description = &desc
	}
	for _, p := range products {
		cp := ComboProduct{
			ProductID: p.ProductID,
			Title:     p.Title,
			Quantity:  p.Quantity,
			UnitPrice: repo.DecimalOrZero(p.UnitPrice),
		}
		if len(p.Images) > 0 {
			thumb := p.Images[0]
			cp.Thumbnail = &thumb
		}
		rec.Products = append(rec.Products, cp)
	}
	return rec
}

func comboSummary(rec comboRecord, now time.Time) ComboSummary {
	summary := ComboSummary{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Pricing:     pricing.ResolveCombo(rec.Pricing, now),
		StartsAt:    rec.Pricing.Window.StartsAt,
		EndsAt:      rec.Pricing.Window.EndsAt,
	}
	if len(rec.Images) > 0 {
		thumb := rec.Images[0]
		summary.Thumbnail = &thumb
	}
	return summary
}

type cachedList struct {
	Records []productRecord `json:"records"`
	Total   int64           `json:"total"`
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if params.Page != s.defaultPage {
		return "", false
	}
	if params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Category != "" || params.Brand != "" || params.Featured != nil || params.InStock != nil || params.Sort != "" {
		return "", false
	}
	return "catalog:products:list:first", true
}

func productCacheKey(id int64) string {
	return "catalog:products:detail:" + strconv.FormatInt(id, 10)
}

func comboCacheKey(id int64) string {
	return "catalog:combos:detail:" + strconv.FormatInt(id, 10)
}

func productPlansCacheKey(id int64) string {
	return "catalog:plans:product:" + strconv.FormatInt(id, 10)
}

func comboPlansCacheKey(id int64) string {
	return "catalog:plans:combo:" + strconv.FormatInt(id, 10)
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s", value)
	}
}

func normalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "price:asc", "price:desc", "title:asc", "title:desc":
		return s
	default:
		return ""
	}
}

// ParseID parses a positive numeric path identifier.
func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest(field, field+" must be a positive integer", err)
	}
	return id, nil
}

func notFoundError(what string, err error) *common.AppError {
	return common.NotFound(what, err)
}

func badRequest(field, message string, err error) *common.AppError {
	return common.BadRequest(field, message, err)
}
