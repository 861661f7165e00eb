package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Subscription flows
	ReconciliationsTotal *prometheus.CounterVec
	RenewalsTotal        *prometheus.CounterVec
	RenewedSubscriptions prometheus.Counter
	CancellationsTotal   *prometheus.CounterVec
	StoppedSubscriptions prometheus.Counter
	VersionConflicts     *prometheus.CounterVec

	// Payment provider calls
	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry registers all metrics on registry
func NewMetricsWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subscriptions_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ReconciliationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_reconciliations_total",
				Help: "Subscription create and update requests by result",
			},
			[]string{"action", "outcome"},
		),
		RenewalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_renewal_notifications_total",
				Help: "Renewal notifications processed by result",
			},
			[]string{"outcome"},
		),
		RenewedSubscriptions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subscriptions_renewed_total",
				Help: "Subscriptions whose expiry was extended by a renewal",
			},
		),
		CancellationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_cancellation_requests_total",
				Help: "Cancellation requests by result",
			},
			[]string{"outcome"},
		),
		StoppedSubscriptions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subscriptions_stopped_total",
				Help: "Subscriptions stopped by cancellation requests",
			},
		),
		VersionConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_version_conflicts_total",
				Help: "Account saves rejected by a concurrent writer",
			},
			[]string{"operation"},
		),

		ProviderCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_provider_calls_total",
				Help: "Payment provider calls by operation and result",
			},
			[]string{"provider", "operation", "outcome"},
		),
		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subscriptions_provider_call_duration_seconds",
				Help:    "Payment provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReconciliationsTotal,
		m.RenewalsTotal,
		m.RenewedSubscriptions,
		m.CancellationsTotal,
		m.StoppedSubscriptions,
		m.VersionConflicts,
		m.ProviderCallsTotal,
		m.ProviderCallDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// ObserveProviderCall records one provider call started at start.
func (m *Metrics) ObserveProviderCall(provider, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.ProviderCallsTotal.WithLabelValues(provider, operation, Outcome(err)).Inc()
	m.ProviderCallDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveReconciliation(action string, err error) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.WithLabelValues(action, Outcome(err)).Inc()
}

func (m *Metrics) ObserveRenewal(renewed int, err error) {
	if m == nil {
		return
	}
	m.RenewalsTotal.WithLabelValues(Outcome(err)).Inc()
	m.RenewedSubscriptions.Add(float64(renewed))
}

func (m *Metrics) ObserveCancellation(stopped int, err error) {
	if m == nil {
		return
	}
	m.CancellationsTotal.WithLabelValues(Outcome(err)).Inc()
	m.StoppedSubscriptions.Add(float64(stopped))
}

func (m *Metrics) ObserveVersionConflict(operation string) {
	if m == nil {
		return
	}
	m.VersionConflicts.WithLabelValues(operation).Inc()
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
