package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestWriteErrorAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("lookup: %w", &AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound})
	WriteError(rec, err)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeError(t, rec)
	require.Equal(t, "NOT_FOUND", body.Code)
	require.Equal(t, "product not found", body.Message)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "INTERNAL", body.Code)
	require.Equal(t, "internal error", body.Message)
}

func TestAppErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewAppError("INTERNAL", "failed", http.StatusInternalServerError, inner)
	require.ErrorIs(t, err, inner)
	found, ok := AsAppError(fmt.Errorf("wrap: %w", err))
	require.True(t, ok)
	require.Same(t, err, found)
	require.Equal(t, "boom", err.Error())
}

func newIdem(t *testing.T) (Idem, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}, mr
}

func sendIdem(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Idempotency-Key", key)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdemReplaysStoredResponse(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		JSON(w, http.StatusCreated, map[string]any{"id": fmt.Sprintf("list-%d", calls)})
	}))

	first := sendIdem(h, "/api/v1/lists", "abc")
	require.Equal(t, http.StatusCreated, first.Code)

	again := sendIdem(h, "/api/v1/lists", "abc")
	require.Equal(t, http.StatusCreated, again.Code)
	require.Equal(t, "true", again.Header().Get(ReplayHeader))
	require.Equal(t, "application/json", again.Header().Get("Content-Type"))
	require.JSONEq(t, first.Body.String(), again.Body.String())

	other := sendIdem(h, "/api/v1/other", "abc")
	require.Equal(t, http.StatusCreated, other.Code)
	require.Empty(t, other.Header().Get(ReplayHeader))
	require.Equal(t, 2, calls)
}

func TestIdemInProgressAndFailures(t *testing.T) {
	idem, mr := newIdem(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lists", nil)
	require.NoError(t, mr.Set(hashKey(req, "busy"), idemPending))

	ok := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := sendIdem(ok, "/api/v1/lists", "busy")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "IDEMPOTENCY_IN_PROGRESS", decodeError(t, rec).Code)

	calls := 0
	failing := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "boom", nil)
	}))
	require.Equal(t, http.StatusInternalServerError, sendIdem(failing, "/api/v1/lists", "retry").Code)
	require.Equal(t, http.StatusInternalServerError, sendIdem(failing, "/api/v1/lists", "retry").Code)
	require.Equal(t, 2, calls, "failed responses are not replayed")
}

func TestNewPagination(t *testing.T) {
	require.Equal(t, Pagination{Page: 1, PerPage: 20, TotalItems: 41, TotalPages: 3}, NewPagination(1, 20, 41))
	require.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
	require.Equal(t, 0, NewPagination(1, 0, 5).TotalPages)
}

func TestHashKeySeparatesParts(t *testing.T) {
	require.Len(t, HashKey("abc"), 64)
	require.NotEqual(t, HashKey("ab", "c"), HashKey("a", "bc"))
}

func TestBadRequestDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, BadRequest("page", "page must be positive", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"page"`)
}
