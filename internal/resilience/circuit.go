package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker for an upstream refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

func (s State) gauge() float64 {
	switch s {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	}
	return -1
}

// BreakerConfig tunes a Breaker. Zero values fall back to 5 requests, a 0.5
// failure ratio and a 30s cool-off.
type BreakerConfig struct {
	Target       string
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	Logger       zerolog.Logger
	Now          func() time.Time
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MinRequests <= 0 {
		c.MinRequests = 5
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = 0.5
	}
	if c.OpenFor <= 0 {
		c.OpenFor = 30 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	c.Target = strings.TrimSpace(c.Target)
	if c.Target == "" {
		c.Target = "default"
	}
	return c
}

// Breaker opens once the failure ratio over a window of at least MinRequests
// outcomes reaches FailureRatio. After OpenFor a single probe is let through;
// its outcome closes or reopens the breaker.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	ok       int
	failed   int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults()}
	b.publish()
	return b
}

// State reports the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

// Report records the outcome of a call that Allow admitted.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	if success {
		b.ok++
	} else {
		b.failed++
	}
	total := b.ok + b.failed
	if total < b.cfg.MinRequests {
		return
	}
	if float64(b.failed)/float64(total) >= b.cfg.FailureRatio {
		b.transition(ctx, Open)
		return
	}
	if total >= b.cfg.MinRequests*2 {
		// halve the window so old outcomes fade
		b.ok, b.failed = (b.ok+1)/2, (b.failed+1)/2
	}
}

func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.ok, b.failed = 0, 0
	if next == Open {
		b.openedAt = b.cfg.Now()
	}
	b.publish()

	if breakerTransitions != nil {
		breakerTransitions.WithLabelValues(b.cfg.Target, prev.String(), next.String()).Inc()
	}
	logger := b.cfg.Logger
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	evt := logger.Info()
	if next == Open {
		evt = logger.Warn()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("target", b.cfg.Target).Str("from_state", prev.String()).Str("to_state", next.String()).Msg("breaker_transition")
}

func (b *Breaker) publish() {
	if breakerState != nil {
		breakerState.WithLabelValues(b.cfg.Target).Set(b.state.gauge())
	}
}

// HostBreakers keeps one Breaker per upstream host so a failing image host
// does not cut off the others.
type HostBreakers struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewHostBreakers uses cfg for every host; cfg.Target becomes the label prefix.
func NewHostBreakers(cfg BreakerConfig) *HostBreakers {
	return &HostBreakers{cfg: cfg, breakers: map[string]*Breaker{}}
}

// For returns the breaker of host, creating it on first use.
func (h *HostBreakers) For(host string) *Breaker {
	host = strings.ToLower(host)
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.breakers[host]; ok {
		return b
	}
	cfg := h.cfg
	if cfg.Target != "" {
		cfg.Target += ":" + host
	} else {
		cfg.Target = host
	}
	b := NewBreaker(cfg)
	h.breakers[host] = b
	return b
}
