// Package metrics tracks pipeline activity via Prometheus collectors and
// Redis-backed daily counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcome labels.
const (
	OutcomeProcessed         = "processed"
	OutcomeRejectedInput     = "rejected_input"
	OutcomeExtractionFailed  = "extraction_failed"
	OutcomePersistenceFailed = "persistence_failed"
)

// Collectors holds the Prometheus instruments for the pipeline.
type Collectors struct {
	Registry *prometheus.Registry

	CommunicationsProcessed *prometheus.CounterVec
	OpportunitiesDetected   prometheus.Counter
	NotificationsSent       prometheus.Counter
	Subscribers             prometheus.Gauge
}

// NewCollectors creates and registers the pipeline collectors on a fresh
// registry.
func NewCollectors() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		CommunicationsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matterscout_communications_processed_total",
			Help: "Communications handled by the pipeline, by outcome.",
		}, []string{"outcome"}),
		OpportunitiesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matterscout_opportunities_detected_total",
			Help: "Opportunities that survived validation and were persisted.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matterscout_notifications_sent_total",
			Help: "Binary notifications broadcast to subscribers.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matterscout_subscribers",
			Help: "Currently connected realtime subscribers.",
		}),
	}

	c.Registry.MustRegister(
		c.CommunicationsProcessed,
		c.OpportunitiesDetected,
		c.NotificationsSent,
		c.Subscribers,
	)

	return c
}
