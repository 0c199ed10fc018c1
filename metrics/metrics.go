package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bridge's prometheus instrumentation.
type Metrics struct {
	Cycles           prometheus.Counter
	CycleFailures    *prometheus.CounterVec
	Publishes        prometheus.Counter
	RangeViolations  prometheus.Counter
	ReadingsLastPoll prometheus.Gauge
}

// New registers the bridge metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the bridge metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_cycles_total",
			Help: "Total poll cycles attempted.",
		}),
		CycleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_cycle_failures_total",
			Help: "Cycles abandoned, labelled by failing stage.",
		}, []string{"stage"}),
		Publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_publishes_total",
			Help: "Records successfully published to the bus.",
		}),
		RangeViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_range_violations_total",
			Help: "Readings outside their configured range.",
		}),
		ReadingsLastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_readings_last_poll",
			Help: "Number of readings returned by the most recent poll.",
		}),
	}

	reg.MustRegister(m.Cycles, m.CycleFailures, m.Publishes, m.RangeViolations, m.ReadingsLastPoll)
	return m
}
