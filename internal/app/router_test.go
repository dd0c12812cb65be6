package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	validator "github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/catalogo-api/internal/catalog"
	"github.com/noah-isme/catalogo-api/internal/common"
	"github.com/noah-isme/catalogo-api/internal/config"
	"github.com/noah-isme/catalogo-api/internal/imageproxy"
	"github.com/noah-isme/catalogo-api/internal/lock"
	"github.com/noah-isme/catalogo-api/internal/ratelimit"
	"github.com/noah-isme/catalogo-api/internal/security"
	"github.com/noah-isme/catalogo-api/internal/shoppinglist"
)

func newTestRouter(t *testing.T, max int) (http.Handler, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := shoppinglist.NewStore(shoppinglist.StoreConfig{
		Persister: shoppinglist.NewMemoryPersister(),
		Locker:    lock.Locker{R: client, RetryBackoff: time.Millisecond},
	})
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Handlers: Handlers{
			Catalog: catalog.NewHandler(catalog.HandlerConfig{}),
			Lists: &shoppinglist.Handler{
				Store:     store,
				Validator: validator.New(),
				Idem:      common.Idem{R: client, TTL: time.Minute},
			},
			ImageProxy: imageproxy.NewHandler(imageproxy.Config{Logger: zerolog.Nop()}),
		},
		Logger:      zerolog.Nop(),
		Limiter:     ratelimit.SlidingWindow{Client: client, Prefix: "test:rl"},
		RateWindow:  time.Minute,
		RateMax:     max,
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		CORSOrigins: []string{"https://tienda.example.com"},
		Security:    security.Headers{Enable: true},
		BodyLimit:   64,
	})
	return router, client
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# metrics")
}

func TestRouterMountsDomainRoutes(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/lists", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"id"`)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "catalog service not configured")

	rec = serve(router, httptest.NewRequest(http.MethodGet, ImageProxyPath, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "cross-origin", rec.Header().Get("Cross-Origin-Resource-Policy"))
}

func TestRouterRateLimitsAPI(t *testing.T) {
	router, _ := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		rec := serve(router, httptest.NewRequest(http.MethodGet, ImageProxyPath, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := serve(router, httptest.NewRequest(http.MethodGet, ImageProxyPath, nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterCORSAndBodyLimit(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/lists", nil)
	req.Header.Set("Origin", "https://tienda.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(router, req)
	require.Equal(t, "https://tienda.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	body := strings.NewReader(`{"kind":"product","id":1,"padding":"` + strings.Repeat("x", 128) + `"}`)
	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/lists/7d0f4bb4-3d5e-4a7e-9c59-8f0e6a5d2b11/items", body))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	address := `{"address":{"street":"` + strings.Repeat("Av. Siempreviva ", 8) + `"}}`
	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/lists/7d0f4bb4-3d5e-4a7e-9c59-8f0e6a5d2b11/enquiry", strings.NewReader(address)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestNewLimiterByDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := NewLimiter(&config.Config{RateLimitDriver: config.RateLimitSliding}, client)
	require.NoError(t, err)
	require.IsType(t, ratelimit.SlidingWindow{}, l)

	l, err = NewLimiter(&config.Config{RateLimitDriver: config.RateLimitStore}, client)
	require.NoError(t, err)
	require.IsType(t, ratelimit.StoreLimiter{}, l)
}
