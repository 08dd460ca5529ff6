// Package metrics defines the Prometheus collectors for both services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}

type Gateway struct {
	registry *prometheus.Registry

	RequestCount      *prometheus.CounterVec
	RequestLatency    *prometheus.HistogramVec
	MessagesProduced  *prometheus.CounterVec
	ProduceErrors     *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	ResultsReceived   *prometheus.CounterVec
}

// NewGateway registers the gateway collectors on reg (a fresh registry
// when nil, which keeps tests isolated). storeLen, when non-nil, is
// exported as a gauge tracking result-store occupancy.
func NewGateway(reg *prometheus.Registry, storeLen func() int) *Gateway {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Gateway{
		registry: reg,
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total HTTP requests received",
		}, []string{"method", "endpoint", "status_code"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: latencyBuckets,
		}, []string{"method", "endpoint"}),
		MessagesProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_kafka_messages_produced_total",
			Help: "Total messages produced to Kafka",
		}, []string{"topic"}),
		ProduceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_kafka_produce_errors_total",
			Help: "Total Kafka produce errors",
		}, []string{"topic"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_active_connections",
			Help: "Number of active HTTP connections",
		}),
		ResultsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_results_received_total",
			Help: "Total prediction results consumed from Kafka",
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.RequestCount,
		m.RequestLatency,
		m.MessagesProduced,
		m.ProduceErrors,
		m.ActiveConnections,
		m.ResultsReceived,
		collectors.NewGoCollector(),
	)
	if storeLen != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gateway_result_store_entries",
			Help: "Entries currently held by the bounded result store",
		}, func() float64 { return float64(storeLen()) }))
	}
	return m
}

func (m *Gateway) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
