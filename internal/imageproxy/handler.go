package imageproxy

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/catalogo-api/internal/common"
	"github.com/noah-isme/catalogo-api/internal/obs"
	"github.com/noah-isme/catalogo-api/internal/resilience"
)

// DefaultAllowedDomains are the image hosts the storefront serves from.
var DefaultAllowedDomains = []string{"supabase.co", "postimages.org", "postimg.cc"}

const (
	defaultMaxBytes    = 10 << 20
	defaultCacheMaxAge = 24 * time.Hour
	defaultContentType = "image/jpeg"
)

// upstreamHeaders mimic a link-preview crawler; some image hosts refuse
// requests without them.
var upstreamHeaders = map[string]string{
	"User-Agent":      "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)",
	"Accept":          "image/*,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Cache-Control":   "no-cache",
	"Referer":         "https://www.facebook.com/",
}

// Handler fetches allow-listed remote images and serves them with long-lived
// cache headers.
type Handler struct {
	client      resilience.HTTPClient
	allowed     []string
	maxBytes    int64
	cacheMaxAge time.Duration
	logger      zerolog.Logger
}

// Config configures the Handler.
type Config struct {
	Client         resilience.HTTPClient
	AllowedDomains []string
	MaxBytes       int64
	CacheMaxAge    time.Duration
	Logger         zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	allowed := make([]string, 0, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, ".")))
		if d != "" {
			allowed = append(allowed, d)
		}
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedDomains
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	maxAge := cfg.CacheMaxAge
	if maxAge <= 0 {
		maxAge = defaultCacheMaxAge
	}
	return &Handler{client: cfg.Client, allowed: allowed, maxBytes: maxBytes, cacheMaxAge: maxAge, logger: cfg.Logger}
}

// Allowed reports whether raw is an http(s) URL on an allow-listed host or one
// of its subdomains.
func (h *Handler) Allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range h.allowed {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// ServeHTTP handles GET /api/v1/image-proxy?url=&w=. The optional w scales
// the image down to that width.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		h.count("missing_url")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing url parameter", nil)
		return
	}
	if !h.Allowed(target) {
		h.count("disallowed")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid url", nil)
		return
	}

	width := 0
	if raw := r.URL.Query().Get("w"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxResizeWidth {
			h.count("bad_width")
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid width", map[string]any{"max": MaxResizeWidth})
			return
		}
		width = n
	}

	ctx := r.Context()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		h.count("disallowed")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid url", nil)
		return
	}
	for k, v := range upstreamHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := h.client.Do(ctx, req)
	if err != nil {
		var statusErr *resilience.StatusError
		if errors.As(err, &statusErr) {
			h.observe("upstream_status", start)
			h.logger.Warn().Str("url", target).Int("status", statusErr.StatusCode).Msg("image upstream failed")
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "image not found", nil)
			return
		}
		h.observe("error", start)
		h.logger.Error().Err(err).Str("url", target).Msg("image fetch failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "error fetching image", nil)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.observe("upstream_status", start)
		h.logger.Warn().Str("url", target).Int("status", resp.StatusCode).Msg("image upstream failed")
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "image not found", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		h.observe("error", start)
		h.logger.Error().Err(err).Str("url", target).Msg("image read failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "error fetching image", nil)
		return
	}
	if int64(len(body)) > h.maxBytes {
		h.observe("too_large", start)
		common.JSONError(w, http.StatusBadGateway, "IMAGE_TOO_LARGE", "image exceeds the proxy size limit", map[string]any{"maxBytes": h.maxBytes})
		return
	}
	h.observe("ok", start)

	contentType := imageContentType(resp.Header.Get("Content-Type"))
	if width > 0 {
		out, ct, err := resize(body, width)
		if err != nil {
			// serve the original bytes when the format is not decodable
			h.logger.Debug().Err(err).Str("url", target).Msg("image resize skipped")
		} else {
			body, contentType = out, ct
		}
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.cacheMaxAge.Seconds()))+", immutable")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// imageContentType keeps upstream image/* types and replaces anything else,
// so an allowed host cannot get HTML or scripts served from this origin.
func imageContentType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil || !strings.HasPrefix(mediaType, "image/") || mediaType == "image/svg+xml" {
		return defaultContentType
	}
	return raw
}

func (h *Handler) observe(result string, start time.Time) {
	if obs.ImageProxyUpstreamLatency != nil {
		obs.ImageProxyUpstreamLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	h.count(result)
}

func (h *Handler) count(result string) {
	if obs.ImageProxyRequestsTotal != nil {
		obs.ImageProxyRequestsTotal.WithLabelValues(result).Inc()
	}
}
