package monitoring

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request latency per oracle endpoint
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stork_request_duration_seconds",
		Help:    "Time taken by oracle-service requests",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	// Error rates
	ErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stork_errors_total",
		Help: "Total number of errors by type",
	}, []string{"type"})

	// System resources
	MemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stork_memory_bytes",
		Help: "Current memory usage in bytes",
	})

	GoroutineCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stork_goroutines",
		Help: "Current number of goroutines",
	})

	// History sink metrics
	SinkWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stork_history_sink_write_seconds",
		Help:    "Time taken to flush validation results to ClickHouse",
		Buckets: prometheus.LinearBuckets(0.01, 0.05, 10),
	})
)

// Start collecting system metrics
func StartMetricsCollection() {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			collectSystemMetrics()
		}
	}()
}

func collectSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryUsage.Set(float64(m.Alloc))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}
