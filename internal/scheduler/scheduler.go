// Package scheduler runs background observability tasks for the worker.
package scheduler

import (
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"

	"github.com/recipepipe/crawl-worker/internal/metrics"
)

// QueueInspector reports queue status without consuming from it.
type QueueInspector interface {
	QueueInspect(name string) (amqp.Queue, error)
}

// Scheduler samples queue depths on a fixed schedule so alerting can see
// retry backlogs and failure-sink growth.
type Scheduler struct {
	cron      *cron.Cron
	inspector QueueInspector
	queues    []string
	logger    *slog.Logger
}

// New creates a Scheduler sampling the given queues.
func New(inspector QueueInspector, queues []string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		inspector: inspector,
		queues:    queues,
		logger:    logger,
	}
}

// Start begins sampling. Safe to call once.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 30s", s.SampleDepths); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts sampling; running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// SampleDepths records the current depth of every watched queue.
func (s *Scheduler) SampleDepths() {
	for _, queue := range s.queues {
		q, err := s.inspector.QueueInspect(queue)
		if err != nil {
			s.logger.Warn("queue inspect failed", "queue", queue, "error", err)
			continue
		}
		metrics.QueueDepth.WithLabelValues(queue).Set(float64(q.Messages))
	}
}
