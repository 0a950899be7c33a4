package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "achievements_events_processed_total",
		Help: "Total number of queue items processed successfully",
	})

	eventsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "achievements_events_retried_total",
		Help: "Total number of queue items rescheduled for retry",
	})

	loopErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "achievements_loop_errors_total",
		Help: "Total number of supervisor iterations that failed outright",
	})

	awardsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "achievements_awards_issued_total",
		Help: "Total number of awards inserted",
	})

	badgesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "achievements_badges_rendered_total",
		Help: "Total number of badges rendered and uploaded",
	})

	queueLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "achievements_queue_lag",
		Help: "Visible queued items waiting to be claimed",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "achievements_batch_duration_seconds",
		Help:    "Duration of one claim-process-ack cycle",
		Buckets: prometheus.DefBuckets,
	})
)
