package security

import (
	"fmt"
	"net/http"
	"strings"
)

const defaultHSTSMaxAge = 365 * 24 * 60 * 60

var staticHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
}

// Headers configures the security headers written on every response.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	// CrossOriginPaths lists path prefixes whose responses may be embedded by
	// other origins, such as proxied product images.
	CrossOriginPaths []string
}

func (h Headers) hsts() string {
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	value := fmt.Sprintf("max-age=%d", maxAge)
	if h.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

func (h Headers) resourcePolicy(path string) string {
	for _, prefix := range h.CrossOriginPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return "cross-origin"
		}
	}
	return "same-origin"
}

// Middleware writes the headers before the handler runs. HSTS is only sent
// over TLS.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	hsts := h.hsts()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		for _, kv := range staticHeaders {
			header.Set(kv[0], kv[1])
		}
		header.Set("Cross-Origin-Resource-Policy", h.resourcePolicy(r.URL.Path))
		if h.EnableHSTS && r.TLS != nil {
			header.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}
