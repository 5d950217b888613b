package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 配额扣减结果
const (
	ConsumeOK        = "ok"
	ConsumeExceeded  = "exceeded"
	ConsumeNoSub     = "no_subscription"
	ConsumeContended = "contended"
	ConsumeError     = "error"
)

// Metrics 服务暴露的 Prometheus 指标，nil 时所有方法为空操作
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	QuotaConsumeTotal   *prometheus.CounterVec
	CycleResetsTotal    *prometheus.CounterVec
	LockWaitSeconds     prometheus.Histogram
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prodviz_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prodviz_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		QuotaConsumeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prodviz_quota_consume_total",
				Help: "Image quota consume attempts by result",
			},
			[]string{"result"},
		),
		CycleResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prodviz_cycle_resets_total",
				Help: "Billing cycle resets by trigger",
			},
			[]string{"trigger"},
		),
		LockWaitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "prodviz_lock_wait_seconds",
				Help:    "Time spent waiting for the per-user lock",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QuotaConsumeTotal,
		m.CycleResetsTotal,
		m.LockWaitSeconds,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) ObserveConsume(result string) {
	if m == nil {
		return
	}
	m.QuotaConsumeTotal.WithLabelValues(result).Inc()
}

// ObserveReset trigger 为 lazy 或 scheduled
func (m *Metrics) ObserveReset(trigger string) {
	if m == nil {
		return
	}
	m.CycleResetsTotal.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWaitSeconds.Observe(d.Seconds())
}
