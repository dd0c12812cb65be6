package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/catalogo-api/internal/common"
)

var draining atomic.Bool

// SetReady toggles readiness; the API flips it off while draining on shutdown.
func SetReady(v bool) {
	draining.Store(!v)
}

// IsReady reports the current readiness flag.
func IsReady() bool {
	return !draining.Load()
}

// Checker probes the PostgreSQL and Redis connections.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler serves /health/live and /health/ready.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Report is the readiness body.
type Report struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes every dependency in parallel and answers 503 unless all pass.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "shutting_down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "unconfigured"})
		return
	}

	probes := map[string]func(context.Context) error{
		"db": func(ctx context.Context) error {
			return h.Checker.PingDB(ctx, orDefault(h.DBTimeout, 500*time.Millisecond))
		},
		"redis": func(ctx context.Context) error {
			return h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond))
		},
	}

	report := Report{Status: "ok", Checks: make(map[string]CheckResult, len(probes))}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe func(context.Context) error) {
			defer wg.Done()
			start := time.Now()
			err := probe(r.Context())
			res := CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status, res.Error = "down", err.Error()
			}
			mu.Lock()
			report.Checks[name] = res
			if err != nil {
				report.Status = "degraded"
			}
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, report)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
