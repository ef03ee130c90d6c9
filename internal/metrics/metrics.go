package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobRunDuration tracks how long issuance job runs take.
	JobRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "issuance_job_duration_seconds",
			Help: "Duration of issuance job runs in seconds",
			Buckets: []float64{
				0.1,  // 100ms
				0.5,  // 500ms
				1.0,  // 1s
				5.0,  // 5s
				15.0, // 15s
				30.0, // 30s
				60.0, // 1m
				300,  // 5m
				900,  // 15m
				1800, // 30m
			},
		},
		[]string{"status"}, // COMPLETED or FAILED
	)

	// CouponsIssued counts coupons persisted in committed chunks.
	CouponsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupons_issued_total",
		Help: "Number of coupons persisted",
	})

	// ChunkFlushes counts chunk persistence attempts by outcome.
	ChunkFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_chunk_flushes_total",
			Help: "Number of coupon chunk flushes",
		},
		[]string{"result"}, // success or failure
	)

	// QueueDepth reports jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "issuance_queue_depth",
		Help: "Number of issuance jobs waiting for a worker",
	})

	// JobsRejected counts submissions refused by the dispatcher.
	JobsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issuance_jobs_rejected_total",
			Help: "Number of issuance job submissions rejected",
		},
		[]string{"reason"}, // queue_full, already_queued or stopped
	)
)

// RecordJobRun records the duration of a finished job run.
func RecordJobRun(status string, seconds float64) {
	JobRunDuration.WithLabelValues(status).Observe(seconds)
}

// RecordChunk records the outcome of one chunk flush of size n.
func RecordChunk(n int, err error) {
	if err != nil {
		ChunkFlushes.WithLabelValues("failure").Inc()
		return
	}
	ChunkFlushes.WithLabelValues("success").Inc()
	CouponsIssued.Add(float64(n))
}

// RecordRejection records a refused submission.
func RecordRejection(reason string) {
	JobsRejected.WithLabelValues(reason).Inc()
}
