package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/recipepipe/crawl-worker/internal/core"
)

// FailureSink writes exhausted envelopes to the terminal failure queue.
// The queue is durable and append-only; redrive tooling consumes it
// elsewhere.
type FailureSink struct {
	ch     publishChannel
	queue  string
	logger *slog.Logger
}

// NewFailureSink creates a sink publishing to the given queue.
func NewFailureSink(ch publishChannel, queue string, logger *slog.Logger) *FailureSink {
	return &FailureSink{ch: ch, queue: queue, logger: logger}
}

// Record appends the envelope with its full failure provenance.
func (s *FailureSink) Record(ctx context.Context, env *core.Envelope, finalError string) error {
	record := core.NewFailureRecord(env, finalError, time.Now())

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failure record: %w", err)
	}

	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to failure queue: %w", err)
	}

	s.logger.Info("message moved to failure queue",
		"queue", s.queue,
		"retry_count", env.RetryCount,
		"error", record.Error,
	)
	return nil
}
