package payment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts webhook deliveries.
type Metrics struct {
	deliveries *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewMetrics registers the webhook collectors on reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelkit_payment_webhooks_total",
			Help: "Webhook deliveries by gateway and result",
		}, []string{"gateway", "result"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hostelkit_payment_webhook_duration_seconds",
			Help:    "Time spent handling a webhook delivery",
			Buckets: prometheus.DefBuckets,
		}, []string{"gateway"}),
	}
}

func (m *Metrics) observe(gateway string, o Outcome, took time.Duration) {
	m.deliveries.WithLabelValues(gateway, string(o.Result)).Inc()
	m.latency.WithLabelValues(gateway).Observe(took.Seconds())
}
