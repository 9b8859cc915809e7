// Package metrics exposes triage and HTTP metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/triage"
)

const namespace = "hayat"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	triageRequests *prometheus.CounterVec
	triageDuration *prometheus.HistogramVec
	predictions    *prometheus.CounterVec
	modelAvailable *prometheus.GaugeVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New registers every collector, including the Go runtime and process
// collectors, on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		triageRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_requests_total",
			Help:      "Triage requests by modality, outcome and mode.",
		}, []string{"modality", "kind", "mode"}),
		triageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "triage_duration_seconds",
			Help:      "Time spent in the triage pipeline.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"modality"}),
		predictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Successful predictions by label.",
		}, []string{"modality", "label", "mode"}),
		modelAvailable: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_available",
			Help:      "1 if the modality's model loaded at startup.",
		}, []string{"modality"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Observe implements triage.Observer.
func (m *Metrics) Observe(req triage.Request, res triage.Result, elapsed time.Duration) {
	modality := req.Modality.Lower()
	mode := "none"
	if res.Response != nil {
		mode = string(res.Response.Mode)
		m.predictions.WithLabelValues(modality, res.Response.Prediction, mode).Inc()
	}
	m.triageRequests.WithLabelValues(modality, res.Kind.String(), mode).Inc()
	m.triageDuration.WithLabelValues(modality).Observe(elapsed.Seconds())
}

// SetModelAvailable records whether a modality's model is loaded.
func (m *Metrics) SetModelAvailable(modality classifier.Modality, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	m.modelAvailable.WithLabelValues(modality.Lower()).Set(v)
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
