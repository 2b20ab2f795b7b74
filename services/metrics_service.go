package services

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frida_keeper_http_requests_total",
			Help: "Total HTTP requests handled by the daemon",
		},
		[]string{"path"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frida_keeper_http_errors_total",
			Help: "HTTP requests answered with a status >= 400",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frida_keeper_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	flowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frida_keeper_flows_total",
			Help: "Finished flows by name and result",
		},
		[]string{"flow", "result"},
	)

	flowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frida_keeper_flow_duration_seconds",
			Help:    "Duration of flows",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"flow"},
	)

	downloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frida_keeper_download_bytes_total",
			Help: "Bytes of server archives downloaded",
		},
	)

	totalRequests int64
	totalErrors   int64
)

func init() {
	prometheus.MustRegister(requestCount, requestErrors, requestDuration)
	prometheus.MustRegister(flowTotal, flowDuration, downloadBytes)
}

func IncrementRequestCount(path string) {
	requestCount.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func IncrementErrorCount(path string) {
	requestErrors.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalErrors, 1)
}

func RecordRequestDuration(path string, seconds float64) {
	requestDuration.WithLabelValues(path).Observe(seconds)
}

// Prometheus客户端无法直接读回计数，健康检查用本地计数器
func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&totalErrors)
}

func RecordFlow(name string, result EventKind, d time.Duration) {
	if result == "" {
		result = EventError
	}
	flowTotal.WithLabelValues(name, string(result)).Inc()
	flowDuration.WithLabelValues(name).Observe(d.Seconds())
}

func AddDownloadedBytes(n int64) {
	if n > 0 {
		downloadBytes.Add(float64(n))
	}
}
