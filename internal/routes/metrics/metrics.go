package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GuardGranted prometheus.Counter
	GuardDenied  *prometheus.CounterVec
}

// New registers the route guard metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on a caller-provided registry. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not panic.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GuardGranted: factory.NewCounter(prometheus.CounterOpts{
			Name: "imovan_guard_granted_total",
			Help: "Total number of navigations the route guard let through",
		}),
		GuardDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imovan_guard_denied_total",
			Help: "Total number of navigations the route guard redirected or refused, labeled by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementGranted() {
	m.GuardGranted.Inc()
}

func (m *Metrics) IncrementDenied(reason string) {
	m.GuardDenied.WithLabelValues(reason).Inc()
}
