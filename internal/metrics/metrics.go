// Package metrics provides Prometheus instrumentation for the crawl worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesConsumed counts deliveries received from the primary queue.
	MessagesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crawlworker",
		Name:      "messages_consumed_total",
		Help:      "Total number of deliveries received from the primary queue.",
	})

	// MessagesSucceeded counts deliveries the handler processed successfully.
	MessagesSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crawlworker",
		Name:      "messages_succeeded_total",
		Help:      "Total number of deliveries processed successfully.",
	})

	// RetriesScheduled counts deliveries re-published through the delay mechanism.
	RetriesScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crawlworker",
		Name:      "retries_scheduled_total",
		Help:      "Total number of retries scheduled, by error category.",
	}, []string{"category"})

	// MessagesExhausted counts deliveries written to the failure sink.
	MessagesExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crawlworker",
		Name:      "messages_exhausted_total",
		Help:      "Total number of messages that exhausted retries, by error category.",
	}, []string{"category"})

	// HandlerDuration tracks business-handler execution time.
	HandlerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crawlworker",
		Name:      "handler_duration_seconds",
		Help:      "Duration of business handler invocations in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// RetryDelay tracks the delay chosen for scheduled retries.
	RetryDelay = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crawlworker",
		Name:      "retry_delay_seconds",
		Help:      "Delay applied to scheduled retries in seconds.",
		Buckets:   []float64{30, 300, 900, 3600},
	}, []string{"category"})

	// QueueDepth tracks the number of messages waiting in each queue.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crawlworker",
		Name:      "queue_depth",
		Help:      "Number of messages waiting in queue.",
	}, []string{"queue"})

	// WorkerInfo exposes static worker metadata as labels.
	WorkerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crawlworker",
		Name:      "worker_info",
		Help:      "Static worker metadata.",
	}, []string{"version", "delay_strategy"})
)

// Init sets static worker metadata on the info metric.
func Init(version, delayStrategy string) {
	WorkerInfo.WithLabelValues(version, delayStrategy).Set(1)
}
