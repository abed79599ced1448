package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes the gateway's application-level instruments.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	paymentsTotal       *prometheus.CounterVec
	refundsTotal        *prometheus.CounterVec
	providerCallsTotal  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payflow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payflow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		paymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payflow_payments_total",
				Help: "Payment executions by outcome",
			},
			[]string{"outcome"},
		),
		refundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payflow_refunds_total",
				Help: "Refund requests by outcome",
			},
			[]string{"outcome"},
		),
		providerCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payflow_provider_calls_total",
				Help: "Remote provider calls by method and result",
			},
			[]string{"method", "result"},
		),
	}

	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.paymentsTotal,
		m.refundsTotal,
		m.providerCallsTotal,
	)
	return m
}

func (m *Metrics) RecordPayment(outcome string) {
	m.paymentsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRefund(outcome string) {
	m.refundsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordProviderCall(method, result string) {
	m.providerCallsTotal.WithLabelValues(method, result).Inc()
}

// GinMiddleware observes request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Module provides the prometheus instruments.
var Module = fx.Module("metrics",
	fx.Provide(New),
)
