package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_backend_requests_total",
		Help: "Backend calls made through the request pipeline, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scanner_backend_request_duration_seconds",
		Help:    "Latency of backend calls made through the request pipeline.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	tabsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scanner_tabs_active",
		Help: "Tabs currently held by the tab registry.",
	})
)

func observeBackendCall(endpoint, outcome string, started time.Time) {
	backendRequests.WithLabelValues(endpoint, outcome).Inc()
	backendLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}
