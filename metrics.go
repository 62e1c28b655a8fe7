package throttle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by limiters and
// registries. A nil *Metrics records nothing.
type Metrics struct {
	decisions   *prometheus.CounterVec
	resets      *prometheus.CounterVec
	flushErrors prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "throttle_decisions_total",
				Help: "Admission decisions made by rate limiters",
			},
			[]string{"limiter", "result"},
		),
		resets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "throttle_window_resets_total",
				Help: "Fixed windows restarted after their period elapsed",
			},
			[]string{"limiter"},
		),
		flushErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "throttle_ledger_flush_errors_total",
				Help: "Failed writes of usage tallies to the ledger",
			},
		),
	}
}

func (m *Metrics) observe(limiter string, admitted, reset bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if admitted {
		result = "admitted"
	}
	m.decisions.WithLabelValues(limiter, result).Inc()
	if reset {
		m.resets.WithLabelValues(limiter).Inc()
	}
}

func (m *Metrics) flushFailed() {
	if m == nil {
		return
	}
	m.flushErrors.Inc()
}
