package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so components can run without a registry in tests.
type Metrics struct {
	classifierOutcomes *prometheus.CounterVec
	dispatchTotal      *prometheus.CounterVec
	alertDeliveries    *prometheus.CounterVec
	matchScore         prometheus.Histogram
	externalCallDur    *prometheus.HistogramVec
}

// New creates and registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		classifierOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "classifier",
			Name:      "outcomes_total",
			Help:      "Classifier tier outcomes (ok, degraded)",
		}, []string{"tier", "outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Dispatched requests by intent and outcome",
		}, []string{"intent", "outcome"}),
		alertDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "alerts",
			Name:      "deliveries_total",
			Help:      "Emergency alert deliveries by gateway and status",
		}, []string{"gateway", "status"}),
		matchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "assistant",
			Subsystem: "matcher",
			Name:      "best_score",
			Help:      "Best match score for event references",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		externalCallDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assistant",
			Name:      "external_call_duration_seconds",
			Help:      "Latency of calls to external collaborators",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collaborator", "outcome"}),
	}

	reg.MustRegister(
		m.classifierOutcomes,
		m.dispatchTotal,
		m.alertDeliveries,
		m.matchScore,
		m.externalCallDur,
	)
	return m
}

// ClassifierOutcome counts one classifier tier attempt
func (m *Metrics) ClassifierOutcome(tier, outcome string) {
	if m == nil {
		return
	}
	m.classifierOutcomes.WithLabelValues(tier, outcome).Inc()
}

// Dispatch counts one dispatched request
func (m *Metrics) Dispatch(intent, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(intent, outcome).Inc()
}

// AlertDelivery counts one gateway delivery attempt
func (m *Metrics) AlertDelivery(gateway, status string) {
	if m == nil {
		return
	}
	m.alertDeliveries.WithLabelValues(gateway, status).Inc()
}

// MatchScore observes the best score seen for a reference
func (m *Metrics) MatchScore(score float64) {
	if m == nil {
		return
	}
	m.matchScore.Observe(score)
}

// ObserveCall records the duration of an external call started at start
func (m *Metrics) ObserveCall(collaborator string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.externalCallDur.WithLabelValues(collaborator, outcome).Observe(time.Since(start).Seconds())
}
