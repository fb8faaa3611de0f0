// Package metrics provides Prometheus metrics for the estimator engine.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	ProviderAttempts *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	EstimatesTotal   *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ProviderAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blueprint_provider_attempts_total",
				Help: "Provider candidates considered during analysis, by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blueprint_analysis_duration_seconds",
				Help:    "Duration of individual provider analysis calls.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
			},
			[]string{"provider"},
		),
		EstimatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blueprint_estimates_total",
				Help: "Estimate generations by result status.",
			},
			[]string{"status"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blueprint_http_requests_total",
				Help: "HTTP requests served, by method and status code.",
			},
			[]string{"method", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.ProviderAttempts)
	reg.MustRegister(m.AnalysisDuration)
	reg.MustRegister(m.EstimatesTotal)
	reg.MustRegister(m.HTTPRequests)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAttempt counts one provider candidate outcome. Safe on a nil receiver.
func (m *Metrics) RecordAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
}

// ObserveAnalysis records the duration of one provider call.
func (m *Metrics) ObserveAnalysis(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordEstimate counts an estimate generation result.
func (m *Metrics) RecordEstimate(status string) {
	if m == nil {
		return
	}
	m.EstimatesTotal.WithLabelValues(status).Inc()
}

// RecordRequest counts an HTTP response.
func (m *Metrics) RecordRequest(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
