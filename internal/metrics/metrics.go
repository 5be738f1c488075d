// Package metrics exposes Prometheus instrumentation for the prediction
// endpoint. Metrics are registered on an explicit registry so tests and
// multiple servers in one process never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardfraud/inference-api/internal/domain"
)

const namespace = "fraud_inference"

// Metrics holds the collectors for the prediction path.
type Metrics struct {
	verdicts    *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	failures    prometheus.Counter
	latency     prometheus.Histogram
	probability prometheus.Histogram
	alerts      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Scored transactions by outcome and card validity.",
		}, []string{"outcome", "valid_card"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Requests rejected before scoring, by error code.",
		}, []string{"code"}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Requests that failed with an internal error.",
		}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_duration_seconds",
			Help:      "Time spent scoring a transaction.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
		probability: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fraud_probability",
			Help:      "Distribution of model fraud probabilities.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Fraud alert webhook deliveries by result.",
		}, []string{"result"}),
		gatherer: reg,
	}
}

// ObserveVerdict records a successful prediction.
func (m *Metrics) ObserveVerdict(v *domain.Verdict, elapsed time.Duration) {
	outcome := "legitimate"
	if v.IsFraudulent {
		outcome = "fraudulent"
	}
	valid := "false"
	if v.IsValidCard {
		valid = "true"
	}
	m.verdicts.WithLabelValues(outcome, valid).Inc()
	m.latency.Observe(elapsed.Seconds())
	m.probability.Observe(v.FraudProbability)
}

// ObserveRejection records a client error by its API error code.
func (m *Metrics) ObserveRejection(code string) {
	m.rejections.WithLabelValues(code).Inc()
}

// ObserveFailure records an internal error.
func (m *Metrics) ObserveFailure() {
	m.failures.Inc()
}

// ObserveAlert records a webhook delivery result ("delivered" or "failed").
func (m *Metrics) ObserveAlert(result string) {
	m.alerts.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
