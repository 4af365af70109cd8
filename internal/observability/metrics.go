package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayRequests counts backend round-trips by operation and status class.
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mvp_gateway_requests_total",
		Help: "Total number of backend requests by operation and status",
	}, []string{"operation", "status"})

	// GatewayRequestDuration records backend round-trip latency.
	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mvp_gateway_request_duration_seconds",
		Help:    "Backend request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// DatabaseQueryLatency records dev backend query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mvp_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SessionTransitions counts session actions applied to the state store.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mvp_session_transitions_total",
		Help: "Total number of session state transitions by action",
	}, []string{"action"})

	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mvp_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// BlobUploadBytes records the size of uploaded objects per bucket.
	BlobUploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mvp_blob_upload_bytes",
		Help:    "Size of uploaded blobs in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	}, []string{"bucket"})
)

// StatusClass reduces an HTTP status code to its class label ("2xx", "4xx").
// Zero means the request never produced a response.
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}

// TrackGatewayRequest returns a function that records the request outcome when
// called (e.g. defer).
func TrackGatewayRequest(operation string) func(status int) {
	start := time.Now()
	return func(status int) {
		GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		GatewayRequests.WithLabelValues(operation, StatusClass(status)).Inc()
	}
}

// TrackQuery returns a function that records query latency when called.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
