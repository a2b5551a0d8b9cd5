package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prometheus metrics
	validResultsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stork_validations_valid_total",
		Help: "Observations judged valid and submitted",
	})

	invalidResultsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stork_validations_invalid_total",
		Help: "Observations judged invalid and submitted",
	})

	erroredResultsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stork_validation_errors_total",
		Help: "Observation submissions that failed",
	})

	roundsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stork_rounds_total",
		Help: "Account rounds by outcome",
	}, []string{"outcome"})

	refreshesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stork_token_refreshes_total",
		Help: "Token bundle replacements (refresh or re-auth)",
	})

	roundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stork_round_duration_seconds",
		Help:    "Wall time of one account round",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// Internal counters
	roundsRun uint64
	errors    uint64
	lastRound atomic.Int64
	startTime = time.Now()
)

func RecordResult(isValid, success bool) {
	switch {
	case !success:
		erroredResultsMetric.Inc()
		atomic.AddUint64(&errors, 1)
	case isValid:
		validResultsMetric.Inc()
	default:
		invalidResultsMetric.Inc()
	}
}

func RecordRound(success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	roundsMetric.WithLabelValues(outcome).Inc()
	roundDuration.Observe(duration.Seconds())
	atomic.AddUint64(&roundsRun, 1)
	lastRound.Store(time.Now().Unix())
}

func RecordRefresh() {
	refreshesMetric.Inc()
}

func GetStats() (uint64, uint64, time.Time, time.Duration) {
	return atomic.LoadUint64(&roundsRun),
		atomic.LoadUint64(&errors),
		time.Unix(lastRound.Load(), 0),
		time.Since(startTime)
}
