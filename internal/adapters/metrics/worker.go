package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Worker struct {
	registry *prometheus.Registry

	MessagesConsumed *prometheus.CounterVec
	InferenceCount   *prometheus.CounterVec
	InferenceLatency prometheus.Histogram
	ResultsProduced  *prometheus.CounterVec
	ProcessingErrors *prometheus.CounterVec
}

func NewWorker(reg *prometheus.Registry) *Worker {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Worker{
		registry: reg,
		MessagesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_messages_consumed_total",
			Help: "Total messages consumed from Kafka",
		}, []string{"topic"}),
		InferenceCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_inference_total",
			Help: "Total inference requests processed",
		}, []string{"status"}),
		InferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_inference_latency_seconds",
			Help:    "Model inference latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		ResultsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_results_produced_total",
			Help: "Total results produced to Kafka",
		}, []string{"topic"}),
		ProcessingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_processing_errors_total",
			Help: "Total processing errors",
		}, []string{"error_type"}),
	}
	reg.MustRegister(
		m.MessagesConsumed,
		m.InferenceCount,
		m.InferenceLatency,
		m.ResultsProduced,
		m.ProcessingErrors,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Worker) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
