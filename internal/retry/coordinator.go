// Package retry drives one delivery at a time through the
// attempt -> classify -> schedule-or-give-up state machine, owning the
// acknowledgment discipline with the broker.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/recipepipe/crawl-worker/internal/core"
	"github.com/recipepipe/crawl-worker/internal/metrics"
)

// ErrDeliveriesClosed is returned by Run when the broker closes the
// delivery stream; the process should exit and let its supervisor restart
// it.
var ErrDeliveriesClosed = errors.New("delivery stream closed by broker")

// Handler is the business boundary invoked per delivery. It must not
// acknowledge, reject, or re-publish the delivery itself.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

// DelayScheduler re-publishes an envelope so it reappears on the primary
// queue after the delay.
type DelayScheduler interface {
	ScheduleRetry(ctx context.Context, env *core.Envelope, delay time.Duration) error
}

// FailureRecorder appends an exhausted envelope to the failure sink.
type FailureRecorder interface {
	Record(ctx context.Context, env *core.Envelope, finalError string) error
}

// Coordinator owns the per-delivery state machine. One coordinator serves
// one consumer instance and processes deliveries strictly sequentially;
// horizontal scaling runs more instances against the same queue.
type Coordinator struct {
	handler Handler
	policy  *core.PolicyTable
	router  DelayScheduler
	sink    FailureRecorder
	logger  *slog.Logger
}

// New creates a Coordinator.
func New(handler Handler, policy *core.PolicyTable, router DelayScheduler, sink FailureRecorder, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		handler: handler,
		policy:  policy,
		router:  router,
		sink:    sink,
		logger:  logger,
	}
}

// Run consumes the delivery stream until the context is cancelled or a
// broker operation fails. Broker failures are not recoverable locally: the
// ack/publish invariants cannot be upheld on a broken channel, so the error
// is returned for the process to die on.
func (c *Coordinator) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			if err := c.Process(ctx, d); err != nil {
				return err
			}
		}
	}
}

// Process runs one delivery through the state machine. Exactly one
// acknowledgment is issued on every exit path; an error return means the
// broker itself failed and the delivery was deliberately left unacked so
// the broker redelivers it after restart.
func (c *Coordinator) Process(ctx context.Context, d amqp.Delivery) error {
	metrics.MessagesConsumed.Inc()

	env := core.FromDelivery(d.Body, d.Headers)
	state := core.StateReceived
	c.logger.Info("delivery received", "retry_count", env.RetryCount)

	state = c.advance(state, core.StateProcessing)
	start := time.Now()
	err := c.invoke(ctx, env.Payload)
	metrics.HandlerDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		c.advance(state, core.StateSucceeded)
		metrics.MessagesSucceeded.Inc()
		return ack(d)
	}

	state = c.advance(state, core.StateFailed, "error", err.Error())
	category := core.Classify(err)
	env.RecordFailure(err, category, time.Now())

	if c.policy.GiveUp(env.RetryCount) {
		finalError := fmt.Sprintf("max retries (%d) exceeded: %s", c.policy.MaxAttempts(), err.Error())
		if sinkErr := c.sink.Record(ctx, env, finalError); sinkErr != nil {
			return fmt.Errorf("record failure: %w", sinkErr)
		}
		c.advance(state, core.StateGivenUp, "category", string(category), "retry_count", env.RetryCount)
		metrics.MessagesExhausted.WithLabelValues(string(category)).Inc()
		return ack(d)
	}

	delay := c.policy.DelayFor(category, env.RetryCount)
	env.RetryCount++

	if pubErr := c.router.ScheduleRetry(ctx, env, delay); pubErr != nil {
		return fmt.Errorf("schedule retry: %w", pubErr)
	}
	c.advance(state, core.StateScheduled,
		"category", string(category),
		"delay", core.DelayLabel(delay),
		"attempt", fmt.Sprintf("%d/%d", env.RetryCount, c.policy.MaxAttempts()),
	)
	metrics.RetriesScheduled.WithLabelValues(string(category)).Inc()
	metrics.RetryDelay.WithLabelValues(string(category)).Observe(delay.Seconds())
	return ack(d)
}

// invoke runs the business handler, converting a panic into an ordinary
// error so a misbehaving handler can never skip the acknowledgment path.
func (c *Coordinator) invoke(ctx context.Context, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, payload)
}

// advance moves the delivery to the next state, logging the transition.
func (c *Coordinator) advance(from, to string, args ...any) string {
	if !core.IsValidTransition(from, to) {
		c.logger.Warn("invalid state transition", "from", from, "to", to)
	}
	c.logger.Info("delivery "+to, args...)
	return to
}

func ack(d amqp.Delivery) error {
	if err := d.Ack(false); err != nil {
		return fmt.Errorf("ack delivery: %w", err)
	}
	return nil
}
