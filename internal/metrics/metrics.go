// Package metrics exposes Prometheus instrumentation for the trivia service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trivia"

// Manager owns a registry and the service's collectors.
type Manager struct {
	registry *prometheus.Registry

	questionsGenerated prometheus.Counter
	providerErrors     *prometheus.CounterVec
	answers            *prometheus.CounterVec
	rejections         *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option configures a Manager.
type Option func(*Manager)

// WithProcessCollectors adds the Go runtime and process collectors.
func WithProcessCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewManager registers all collectors on a fresh registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{registry: prometheus.NewRegistry()}
	auto := promauto.With(m.registry)

	m.questionsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "questions_generated_total",
		Help:      "Questions fetched from the provider and persisted",
	})
	m.providerErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_errors_total",
		Help:      "Failed question generations by stage",
	}, []string{"stage"})
	m.answers = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_total",
		Help:      "Reconciled answers by grade",
	}, []string{"result"})
	m.rejections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_rejected_total",
		Help:      "Submissions rejected before being applied",
	}, []string{"reason"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// QuestionGenerated counts a persisted question. Recording methods are no-ops
// on a nil Manager.
func (m *Manager) QuestionGenerated() {
	if m == nil {
		return
	}
	m.questionsGenerated.Inc()
}

func (m *Manager) ProviderError(stage string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(stage).Inc()
}

func (m *Manager) AnswerReconciled(correct bool) {
	if m == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.answers.WithLabelValues(result).Inc()
}

func (m *Manager) AnswerRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Manager) HTTPRequest(route, method, statusCode string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}
