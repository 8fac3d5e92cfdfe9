package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry through promauto.

var (
	// HttpRequestsTotal counts requests by method, route and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonkv_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// HttpRequestDuration measures server response time.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsonkv_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	// StoreOperationsTotal counts engine operations by kind and outcome
	// ("ok", "not_found", "invalid", "persistence_error", "cancelled", "closed").
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonkv_store_operations_total",
			Help: "Total number of store operations by operation and result",
		},
		[]string{"op", "result"},
	)

	// PersistDuration measures the full encode, fsync and rename cycle.
	PersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jsonkv_store_persist_duration_seconds",
			Help:    "Duration of atomic store file replacement in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	// StoreKeys tracks the number of keys currently committed.
	StoreKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jsonkv_store_keys",
			Help: "Number of keys in the committed keyspace",
		},
	)

	// StoreBytes tracks the size of the store file on disk.
	StoreBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jsonkv_store_file_bytes",
			Help: "Size in bytes of the persisted store file",
		},
	)
)
