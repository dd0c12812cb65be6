package imageproxy

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/catalogo-api/internal/resilience"
)

// NewUpstreamClient builds the traced, retrying client used to fetch images.
func NewUpstreamClient(timeout time.Duration, logger zerolog.Logger) resilience.HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return resilience.HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		Breakers: resilience.NewHostBreakers(resilience.BreakerConfig{
			Target:       "image_proxy",
			MinRequests:  10,
			FailureRatio: 0.5,
			OpenFor:      30 * time.Second,
			Logger:       logger,
		}),
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: 2,
		Jitter:      0.2,
		Timeout:     timeout,
	}
}
