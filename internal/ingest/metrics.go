package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	events     *prometheus.CounterVec
	rejected   prometheus.Counter
	casRetries prometheus.Counter
}

// NewMetrics registers the engine collectors with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relaysync_ingest_events_total",
			Help: "Events ingested, by outcome and reason",
		}, []string{"outcome", "reason"}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "relaysync_ingest_rejected_total",
			Help: "Events rejected because they could not be decoded",
		}),
		casRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "relaysync_ingest_cas_retries_total",
			Help: "Compare-and-swap attempts lost to a concurrent writer",
		}),
	}
}

func (m *Metrics) observe(reason Reason) {
	m.events.WithLabelValues(string(reason.Outcome()), string(reason)).Inc()
}
