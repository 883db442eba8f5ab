package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRequestsTotal   = "rag_requests_total"
	MetricRequestDuration = "rag_request_duration_seconds"
	MetricRankDuration    = "rag_rank_duration_seconds"
	MetricCorpusDocuments = "rag_corpus_documents"
)

// Metrics contains Prometheus metrics for the HTTP surface and the ranker.
// All operations are thread-safe.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rankDuration    prometheus.Histogram
	corpusDocuments prometheus.Gauge
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRequestsTotal,
				Help: "Total number of HTTP requests by endpoint and status code",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRequestDuration,
				Help:    "Histogram of HTTP request duration in seconds by endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDuration,
			Help:    "Time spent ranking the corpus against one query embedding",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		corpusDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCorpusDocuments,
			Help: "Number of documents in the loaded corpus",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveRequest(endpoint, status string, seconds float64) {
	m.requestsTotal.WithLabelValues(endpoint, status).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) ObserveRank(d time.Duration) {
	m.rankDuration.Observe(d.Seconds())
}

func (m *Metrics) SetCorpusDocuments(n int) {
	m.corpusDocuments.Set(float64(n))
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.rankDuration,
		m.corpusDocuments,
	}
}
