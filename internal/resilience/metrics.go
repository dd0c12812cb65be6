package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
)

// MustRegisterMetrics registers the breaker gauges and counters. Breakers
// created before registration only start reporting on their next transition.
func MustRegisterMetrics(namespace string, registerer prometheus.Registerer) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Breaker state per upstream: 0=closed, 1=open, 2=half-open",
	}, []string{"target"})
	breakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_transitions_total",
		Help:      "Breaker state transitions",
	}, []string{"target", "from", "to"})
	registerer.MustRegister(breakerState, breakerTransitions)
}

// StateGauge exposes the state gauge for tests.
func StateGauge() *prometheus.GaugeVec { return breakerState }

// TransitionCounter exposes the transition counter for tests.
func TransitionCounter() *prometheus.CounterVec { return breakerTransitions }
