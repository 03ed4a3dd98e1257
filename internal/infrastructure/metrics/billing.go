// Package metrics exposes billing counters in Prometheus format.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
)

const namespace = "storyteller"

// BillingMetrics owns a private registry so tests can create as many as they need.
type BillingMetrics struct {
	registry *prometheus.Registry

	WebhookEvents          *prometheus.CounterVec
	Materializations       *prometheus.CounterVec
	QuotaRejections        *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	CounterReconciliations prometheus.Counter
}

func NewBillingMetrics() *BillingMetrics {
	reg := prometheus.NewRegistry()
	m := &BillingMetrics{
		registry: reg,
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Provider webhook deliveries by event type and outcome",
		}, []string{"event_type", "outcome"}),
		Materializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "subscription_materializations_total",
			Help:      "Subscription materialisation attempts by path and outcome",
		}, []string{"path", "outcome"}),
		QuotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "quota_rejections_total",
			Help:      "Metered operations rejected by the token quota",
		}, []string{"plan"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CounterReconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "counter_reconciliations_total",
			Help:      "Advisory token counters rewritten from the usage ledger",
		}),
	}

	reg.MustRegister(
		m.WebhookEvents,
		m.Materializations,
		m.QuotaRejections,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CounterReconciliations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *BillingMetrics) WebhookProcessed(eventType, outcome string) {
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *BillingMetrics) SubscriptionMaterialized(path, outcome string) {
	m.Materializations.WithLabelValues(path, outcome).Inc()
}

func (m *BillingMetrics) QuotaRejected(planName string) {
	m.QuotaRejections.WithLabelValues(planName).Inc()
}

func (m *BillingMetrics) CountersReconciled(n int) {
	m.CounterReconciliations.Add(float64(n))
}

// Registry returns the registry backing Handler.
func (m *BillingMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *BillingMetrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request counts and latency keyed by the matched route pattern.
func (m *BillingMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

var _ usecases.BillingMetrics = (*BillingMetrics)(nil)
