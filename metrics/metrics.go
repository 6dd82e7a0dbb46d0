// Package metrics provides Prometheus metrics for portablefs operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Device lifecycle metrics
	DeviceOpensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablefs_device_opens_total",
			Help: "Total number of device connections opened",
		},
	)

	// Enumeration metrics
	EnumerationPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablefs_enumeration_pages_total",
			Help: "Total number of child enumeration pages fetched",
		},
	)

	PropertyFetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablefs_property_fetches_total",
			Help: "Total number of batched property fetches",
		},
	)

	// Transfer metrics
	TransferBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portablefs_transfer_bytes_total",
			Help: "Total bytes transferred to and from devices",
		},
		[]string{"direction"}, // "upload" or "download"
	)

	// Walk metrics
	WalkDirectoriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablefs_walk_directories_total",
			Help: "Total number of directories visited by tree walks",
		},
	)

	WalkAbortsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portablefs_walk_aborts_total",
			Help: "Total number of tree walks aborted by a callback",
		},
		[]string{"reason"}, // "progress" or "error"
	)

	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portablefs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portablefs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RegisterMetrics ensures all metrics are registered with Prometheus.
// This function is idempotent and safe to call multiple times.
func RegisterMetrics() {
	// All metrics are automatically registered via promauto.
	// This function exists for explicit initialization if needed.
}
