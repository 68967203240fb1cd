package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lifecycle outcomes.
type Metrics struct {
	sweepRecords *prometheus.CounterVec
	transitions  *prometheus.CounterVec
}

// NewMetrics registers the lifecycle collectors on reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sweepRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelkit_billing_sweep_records_total",
			Help: "Records visited by scheduled sweeps by sweep and outcome",
		}, []string{"sweep", "outcome"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelkit_billing_subscription_transitions_total",
			Help: "Subscription status changes by target status",
		}, []string{"status"}),
	}
}

func (m *Metrics) sweep(name, outcome string) {
	m.sweepRecords.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) transition(to Status) {
	m.transitions.WithLabelValues(string(to)).Inc()
}
