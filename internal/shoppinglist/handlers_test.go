package shoppinglist_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/catalogo-api/internal/catalog"
	"github.com/noah-isme/catalogo-api/internal/common"
	"github.com/noah-isme/catalogo-api/internal/financing"
	"github.com/noah-isme/catalogo-api/internal/lock"
	"github.com/noah-isme/catalogo-api/internal/repo"
	"github.com/noah-isme/catalogo-api/internal/shoppinglist"
)

type fakeQuoter struct{}

func (fakeQuoter) QuoteProduct(_ context.Context, id int64) (catalog.Quote, error) {
	if id != 1 {
		return catalog.Quote{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound}
	}
	price := decimal.NewFromInt(900)
	plans := []financing.Plan{
		{ID: 1, Name: "Contado 20%off", Installments: 1, Active: true},
		{ID: 2, Name: "3 cuotas", Installments: 3, SurchargePercent: decimal.NewFromInt(10), Active: true},
	}
	return catalog.Quote{
		Source:   catalog.SourceProduct,
		ID:       1,
		Title:    "Heladera No Frost",
		Category: "Heladeras",
		Brand:    "Gafa",
		InStock:  true,
		Price:    price,
		Scope:    repo.ScopeCategory,
		Result:   financing.Quote(price, plans),
	}, nil
}

func (fakeQuoter) QuoteCombo(_ context.Context, id int64) (catalog.Quote, error) {
	return catalog.Quote{}, fmt.Errorf("combo %d: %w", id, catalog.ErrNotFound)
}

type listResponse struct {
	Data shoppinglist.ListView `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := shoppinglist.NewStore(shoppinglist.StoreConfig{
		Persister: shoppinglist.RedisPersister{R: client, TTL: time.Hour, Logger: zerolog.Nop()},
		Locker:    lock.Locker{R: client},
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)

	h := &shoppinglist.Handler{
		Store:     store,
		Quoter:    fakeQuoter{},
		Validator: validator.New(),
		Idem:      common.Idem{R: client, TTL: time.Minute},
	}
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestShoppingListFlow(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/lists", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/api/v1/lists/" + created.Data.ID

	rec = do(t, router, http.MethodPost, base+"/items", map[string]any{"kind": "product", "id": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Data.Count)
	require.Equal(t, "product:1", list.Data.Items[0].Key)
	require.Equal(t, 1, list.Data.Items[0].Quantity)
	require.True(t, list.Data.Items[0].Price.Equal(decimal.NewFromInt(900)))

	rec = do(t, router, http.MethodPut, base+"/items/product:1/quantity", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPut, base+"/items/product:1/plan", map[string]any{"planId": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	var planned listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &planned))
	require.NotNil(t, planned.Data.Items[0].SelectedPlan)
	require.True(t, planned.Data.Items[0].SelectedPlan.MonthlyPayment.Equal(decimal.NewFromInt(330)))

	rec = do(t, router, http.MethodPost, base+"/enquiry", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	var enquiry struct {
		Data struct {
			Title string `json:"title"`
			Text  string `json:"text"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enquiry))
	require.Equal(t, "Lista de 1 producto", enquiry.Data.Title)
	require.Contains(t, enquiry.Data.Text, "(Cantidad: 3)")
	require.Contains(t, enquiry.Data.Text, "3 cuotas de $330")

	rec = do(t, router, http.MethodPost, base+"/enquiry.pdf", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = do(t, router, http.MethodPost, base+"/enquiry.xlsx", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "pedido.xlsx")

	// selecting the same plan again clears it
	rec = do(t, router, http.MethodPut, base+"/items/product:1/plan", map[string]any{"planId": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "selectedPlan")
	var cleared listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	require.Len(t, cleared.Data.Items, 1)
	require.Nil(t, cleared.Data.Items[0].SelectedPlan)
	require.Equal(t, 3, cleared.Data.Items[0].Quantity)

	rec = do(t, router, http.MethodDelete, base+"/items/product:1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var emptied listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &emptied))
	require.Equal(t, 0, emptied.Data.Count)
	require.Empty(t, emptied.Data.Items)

	rec = do(t, router, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestShoppingListErrors(t *testing.T) {
	router := newRouter(t)
	rec := do(t, router, http.MethodPost, "/api/v1/lists", nil)
	var created listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/api/v1/lists/" + created.Data.ID

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad list id", http.MethodGet, "/api/v1/lists/not-a-uuid", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad kind", http.MethodPost, base + "/items", map[string]any{"kind": "order", "id": 1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown product", http.MethodPost, base + "/items", map[string]any{"kind": "product", "id": 5}, http.StatusNotFound, "NOT_FOUND"},
		{"missing item", http.MethodDelete, base + "/items/product:1", nil, http.StatusNotFound, "ITEM_NOT_FOUND"},
		{"bad key", http.MethodDelete, base + "/items/product-1", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"zero quantity", http.MethodPut, base + "/items/product:1/quantity", map[string]any{"quantity": 0}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown plan", http.MethodPut, base + "/items/product:1/plan", map[string]any{"planId": 99}, http.StatusUnprocessableEntity, "PLAN_NOT_AVAILABLE"},
		{"empty enquiry", http.MethodPost, base + "/enquiry", map[string]any{}, http.StatusUnprocessableEntity, "EMPTY_LIST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestShoppingListIdempotentCreate(t *testing.T) {
	router := newRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lists", nil)
	req.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var first listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/lists", nil)
	req.Header.Set("Idempotency-Key", "abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Equal(t, first.Data.ID, second.Data.ID)
}
