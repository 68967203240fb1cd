package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/hostelkit/svc/entitlement"
)

// Metrics counts gate decisions.
type Metrics struct {
	decisions *prometheus.CounterVec
	rows      *prometheus.CounterVec
}

// NewMetrics registers the gate collectors on reg. A nil reg yields working
// but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelkit_quota_decisions_total",
			Help: "Quota gate decisions by resource and outcome",
		}, []string{"resource", "outcome"}),
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelkit_quota_bulk_rows_total",
			Help: "Bulk upload rows by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) decision(v entitlement.Verdict) {
	outcome := "allowed"
	if !v.Allowed {
		outcome = "denied"
	}
	m.decisions.WithLabelValues(string(v.Resource), outcome).Inc()
}

func (m *Metrics) bulk(r BulkResult) {
	m.rows.WithLabelValues("created").Add(float64(len(r.Created)))
	m.rows.WithLabelValues("skipped").Add(float64(len(r.Skipped)))
	m.rows.WithLabelValues("failed").Add(float64(len(r.Failed)))
}
