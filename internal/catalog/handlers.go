package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/catalogo-api/internal/common"
	"github.com/noah-isme/catalogo-api/internal/financing"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/lines", h.Lines)
	r.Get("/categories", h.Categories)
	r.Get("/brands", h.Brands)
	r.Get("/products", h.Products)
	r.Get("/products/{id}", h.ProductDetail)
	r.Get("/products/{id}/related", h.Related)
	r.Get("/products/{id}/financing", h.ProductFinancing)
	r.Get("/combos", h.Combos)
	r.Get("/combos/{id}", h.ComboDetail)
	r.Get("/combos/{id}/related", h.RelatedCombos)
	r.Get("/combos/{id}/financing", h.ComboFinancing)
}

// Lines handles GET /api/v1/lines.
func (h *Handler) Lines(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListLines(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Brands handles GET /api/v1/brands.
func (h *Handler) Brands(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListBrands(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Products handles GET /api/v1/products with filters, sorting, and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.service.ListProducts(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.NewPagination(result.Page, result.Limit, result.Total),
	})
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	detail, err := h.service.GetProductDetail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Related handles GET /api/v1/products/{id}/related.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	items, err := h.service.ListRelatedProducts(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// ProductFinancing handles GET /api/v1/products/{id}/financing?view=card|page&selected=.
func (h *Handler) ProductFinancing(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	selected, err := selectedPlan(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.service.ProductFinancing(r.Context(), id, financing.ParseView(r.URL.Query().Get("view")), selected)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Combos handles GET /api/v1/combos.
func (h *Handler) Combos(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	combos, err := h.service.ListCombos(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": combos})
}

// ComboDetail handles GET /api/v1/combos/{id}.
func (h *Handler) ComboDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	detail, err := h.service.GetComboDetail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// RelatedCombos handles GET /api/v1/combos/{id}/related.
func (h *Handler) RelatedCombos(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	combos, err := h.service.ListRelatedCombos(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": combos})
}

// ComboFinancing handles GET /api/v1/combos/{id}/financing.
func (h *Handler) ComboFinancing(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	selected, err := selectedPlan(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.service.ComboFinancing(r.Context(), id, financing.ParseView(r.URL.Query().Get("view")), selected)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return false
	}
	return true
}

func selectedPlan(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("selected"))
	if raw == "" {
		return 0, nil
	}
	return ParseID("selected", raw)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, err)
}
