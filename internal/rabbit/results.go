package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/recipepipe/crawl-worker/internal/crawl"
)

// ResultsPublisher delivers extracted recipe data to the downstream
// results queue as plain JSON, so any consumer can pick it up.
type ResultsPublisher struct {
	ch    publishChannel
	queue string
}

// NewResultsPublisher creates a publisher for the given results queue.
func NewResultsPublisher(ch publishChannel, queue string) *ResultsPublisher {
	return &ResultsPublisher{ch: ch, queue: queue}
}

// PublishResult writes one extraction result, persisted so it survives a
// broker restart until consumed.
func (p *ResultsPublisher) PublishResult(ctx context.Context, data *crawl.RawRecipeData) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal recipe data: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to results queue: %w", err)
	}
	return nil
}
