//go:build !js

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ascww/newsportal/pkg/newsmeta"
)

// Metrics records rewriter activity on its own registry.
type Metrics struct {
	registry *prometheus.Registry
	rewrites *prometheus.CounterVec
	fetches  *prometheus.HistogramVec
}

// NewMetrics creates the rewriter metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsmeta_rewrites_total",
			Help: "News detail requests by rewrite outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsmeta_backend_fetch_seconds",
			Help:    "Latency of news list fetches from the backend.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.rewrites, m.fetches)
	return m
}

func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) ObserveOutcome(o newsmeta.Outcome) {
	m.rewrites.WithLabelValues(string(o)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
