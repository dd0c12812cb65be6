package shoppinglist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/catalogo-api/internal/catalog"
	"github.com/noah-isme/catalogo-api/internal/common"
	"github.com/noah-isme/catalogo-api/internal/lock"
)

// Quoter prices list items and their financing plans.
type Quoter interface {
	QuoteProduct(ctx context.Context, id int64) (catalog.Quote, error)
	QuoteCombo(ctx context.Context, id int64) (catalog.Quote, error)
}

// Handler exposes shopping list endpoints.
type Handler struct {
	Store     *Store
	Quoter    Quoter
	Validator *validator.Validate
	Idem      common.Idem
}

// Routes mounts the list endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.With(h.Idem.Middleware).Post("/lists", h.Create)
	r.Route("/lists/{listID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/items", h.AddItem)
		r.Delete("/items/{key}", h.RemoveItem)
		r.Put("/items/{key}/quantity", h.SetQuantity)
		r.Put("/items/{key}/plan", h.TogglePlan)
		r.Delete("/items/{key}/plan", h.ClearPlan)
		r.Post("/enquiry", h.Enquiry)
		r.Post("/enquiry.pdf", h.EnquiryPDF)
		r.Post("/enquiry.xlsx", h.EnquiryXLSX)
	})
}

// ListItem is an item as returned to clients.
type ListItem struct {
	Item
	Key          string        `json:"key"`
	Quantity     int           `json:"quantity"`
	SelectedPlan *SelectedPlan `json:"selectedPlan,omitempty"`
}

// ListView is the public list payload.
type ListView struct {
	ID    string     `json:"id"`
	Items []ListItem `json:"items"`
	Count int        `json:"count"`
}

// NewListView flattens state for responses.
func NewListView(id string, state State) ListView {
	view := ListView{ID: id, Items: make([]ListItem, 0, len(state.Items)), Count: state.Count()}
	for _, it := range state.Items {
		key := it.Key()
		li := ListItem{Item: it, Key: key, Quantity: state.Quantity(key)}
		if plan, ok := state.SelectedPlans[key]; ok {
			p := plan
			li.SelectedPlan = &p
		}
		view.Items = append(view.Items, li)
	}
	return view
}

type addItemRequest struct {
	Kind string `json:"kind" validate:"required,oneof=product combo"`
	ID   int64  `json:"id" validate:"required,min=1"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"min=1"`
}

type planRequest struct {
	PlanID int64 `json:"planId" validate:"required,min=1"`
}

// Create handles POST /api/v1/lists.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, state, err := h.Store.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": NewListView(id, state)})
}

// Get handles GET /api/v1/lists/{listID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}
	state, err := h.Store.Get(r.Context(), listID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": NewListView(listID, state)})
}

// Delete handles DELETE /api/v1/lists/{listID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), listID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/lists/{listID}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	q, err := h.quote(r.Context(), req.Kind, req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(w, r, listID, Action{Type: ActionAddItem, Item: itemFromQuote(req.Kind, q)})
}

// RemoveItem handles DELETE /api/v1/lists/{listID}/items/{key}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}
	key, _, _, ok := h.itemKey(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, listID, Action{Type: ActionRemoveItem, Key: key})
}

// SetQuantity handles PUT /api/v1/lists/{listID}/items/{key}/quantity.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}
	key, _, _, ok := h.itemKey(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.dispatch(w, r, listID, Action{Type: ActionSetQuantity, Key: key, Quantity: req.Quantity})
}

// TogglePlan handles PUT /api/v1/lists/{listID}/items/{key}/plan. The plan is
// re-quoted from the catalog so clients cannot submit their own amounts.
func (h *Handler) TogglePlan(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}
	key, kind, id, ok := h.itemKey(w, r)
	if !ok {
		return
	}
	var req planRequest
	if !h.decode(w, r, &req) {
		return
	}
	q, err := h.quote(r.Context(), kind, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	calc, found := q.Result.Find(req.PlanID)
	if !found {
		common.JSONError(w, http.StatusUnprocessableEntity, "PLAN_NOT_AVAILABLE", "plan is not available for this item", map[string]any{"planId": req.PlanID, "key": key})
		return
	}
	plan := SelectedPlan{
		PlanID:         calc.Plan.ID,
		Name:           calc.Plan.Name,
		Installments:   calc.Plan.Installments,
		MonthlyPayment: calc.MonthlyPayment,
	}
	h.dispatch(w, r, listID, Action{Type: ActionTogglePlan, Key: key, Item: itemFromQuote(kind, q), Plan: plan})
}

// ClearPlan handles DELETE /api/v1/lists/{listID}/items/{key}/plan.
func (h *Handler) ClearPlan(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}
	key, _, _, ok := h.itemKey(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, listID, Action{Type: ActionClearPlan, Key: key})
}

// Enquiry handles POST /api/v1/lists/{listID}/enquiry.
func (h *Handler) Enquiry(w http.ResponseWriter, r *http.Request) {
	enq, ok := h.buildEnquiry(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"title": enq.Title,
			"text":  enq.Text(),
			"lines": enq.Lines,
		},
	})
}

// EnquiryPDF handles POST /api/v1/lists/{listID}/enquiry.pdf.
func (h *Handler) EnquiryPDF(w http.ResponseWriter, r *http.Request) {
	enq, ok := h.buildEnquiry(w, r)
	if !ok {
		return
	}
	doc, err := RenderEnquiryPDF(enq)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="pedido.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// EnquiryXLSX handles POST /api/v1/lists/{listID}/enquiry.xlsx.
func (h *Handler) EnquiryXLSX(w http.ResponseWriter, r *http.Request) {
	enq, ok := h.buildEnquiry(w, r)
	if !ok {
		return
	}
	doc, err := RenderEnquiryXLSX(enq)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="pedido.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) buildEnquiry(w http.ResponseWriter, r *http.Request) (Enquiry, bool) {
	if !h.ready(w) {
		return Enquiry{}, false
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return Enquiry{}, false
	}
	var delivery Delivery
	if !h.decode(w, r, &delivery) {
		return Enquiry{}, false
	}
	state, err := h.Store.Get(r.Context(), listID)
	if err != nil {
		h.writeError(w, err)
		return Enquiry{}, false
	}
	enq, err := BuildEnquiry(state, delivery)
	if err != nil {
		h.writeError(w, err)
		return Enquiry{}, false
	}
	return enq, true
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, listID string, action Action) {
	state, err := h.Store.Dispatch(r.Context(), listID, action)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": NewListView(listID, state)})
}

func (h *Handler) quote(ctx context.Context, kind string, id int64) (catalog.Quote, error) {
	if h.Quoter == nil {
		return catalog.Quote{}, common.Internal("catalog not configured", nil)
	}
	if kind == KindCombo {
		return h.Quoter.QuoteCombo(ctx, id)
	}
	return h.Quoter.QuoteProduct(ctx, id)
}

func itemFromQuote(kind string, q catalog.Quote) Item {
	return Item{
		Kind:      kind,
		ID:        q.ID,
		Title:     q.Title,
		Category:  q.Category,
		Brand:     q.Brand,
		Thumbnail: q.Thumbnail,
		Price:     q.Price,
	}
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shopping list store not configured", nil)
		return false
	}
	return true
}

func (h *Handler) listID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "listID"))
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid list id", nil)
		return "", false
	}
	return id.String(), true
}

func (h *Handler) itemKey(w http.ResponseWriter, r *http.Request) (string, string, int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "key"))
	kind, id, err := ParseKey(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item key", map[string]any{"key": raw})
		return "", "", 0, false
	}
	return ItemKey(kind, id), kind, id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return false
	}
	if h.Validator == nil {
		return true
	}
	if err := h.Validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed", map[string]any{"fields": fields})
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "item is not in the list", nil)
	case errors.Is(err, ErrEmptyList):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_LIST", "list has no items", nil)
	case errors.Is(err, ErrIncompleteAddress):
		common.JSONError(w, http.StatusUnprocessableEntity, "INCOMPLETE_ADDRESS", "every delivery address field is required", nil)
	case errors.Is(err, lock.ErrBusy), errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusServiceUnavailable, "LIST_BUSY", "list is being updated, retry", nil)
	default:
		common.WriteError(w, err)
	}
}
