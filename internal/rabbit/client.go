// Package rabbit implements the broker side of the worker on RabbitMQ:
// topology declaration, the delay router, the failure sink, and the
// results publisher.
package rabbit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Client owns the AMQP connection and channel for one consumer instance.
// The channel is never shared across concurrent handler invocations; the
// coordinator runs one delivery at a time.
type Client struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

// Dial connects to the broker, retrying with exponential backoff until the
// connection succeeds or maxWait elapses. A broker that is briefly down at
// startup (common during container orchestration) should not kill the
// worker.
func Dial(ctx context.Context, url string, maxWait time.Duration, logger *slog.Logger) (*Client, error) {
	conn, err := backoff.Retry(ctx, func() (*amqp.Connection, error) {
		return amqp.Dial(url)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxWait),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("broker dial failed", "error", err, "retry_in", next.String())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &Client{conn: conn, ch: ch, logger: logger}, nil
}

// Channel exposes the underlying AMQP channel for topology declaration and
// publishing.
func (c *Client) Channel() *amqp.Channel {
	return c.ch
}

// Qos limits the number of unacknowledged deliveries the broker pushes to
// this consumer. The coordinator assumes one in-flight handler invocation,
// so the default is 1.
func (c *Client) Qos(prefetch int) error {
	if prefetch < 1 {
		prefetch = 1
	}
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Consume opens the delivery stream for a queue with manual acknowledgment.
func (c *Client) Consume(queue string) (<-chan amqp.Delivery, error) {
	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}

// NotifyClose registers a listener for connection loss. The coordinator's
// correctness invariants cannot be upheld without a working connection, so
// the caller should treat a close as fatal and let the supervisor restart
// the process.
func (c *Client) NotifyClose() chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if c.ch != nil && !c.ch.IsClosed() {
		if err := c.ch.Close(); err != nil {
			c.logger.Warn("channel close", "error", err)
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}
