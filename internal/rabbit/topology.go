package rabbit

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/recipepipe/crawl-worker/internal/core"
)

// DelayStrategy selects the broker mechanism that holds a retried message
// invisible until its delay elapses.
type DelayStrategy string

const (
	// StrategyExchange uses a single x-delayed-message exchange with a
	// per-message x-delay header. Requires the
	// rabbitmq_delayed_message_exchange plugin.
	StrategyExchange DelayStrategy = "exchange"

	// StrategyLadder uses one fixed-TTL queue per distinct delay, each
	// dead-lettering expired messages back to the primary queue. Works on a
	// stock broker.
	StrategyLadder DelayStrategy = "ladder"
)

// Topology describes every queue and exchange the worker depends on.
type Topology struct {
	PrimaryQueue    string
	ResultsQueue    string
	FailedQueue     string
	Strategy        DelayStrategy
	DelayedExchange string
	// Ladder lists the distinct delays the policy table can produce; one
	// TTL queue is declared per entry when Strategy is StrategyLadder.
	Ladder []time.Duration
}

// topologyChannel is the subset of *amqp.Channel the bootstrapper uses.
type topologyChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// EnsureTopology declares the worker's queues and delay mechanism. Every
// declaration is idempotent: re-running against an identical existing
// topology succeeds. A queue or exchange that already exists with
// conflicting settings makes the broker close the channel with
// PRECONDITION_FAILED, which surfaces here as an error the caller must
// treat as fatal.
//
// Only this bootstrapper declares topology; the coordinator and publishers
// never do.
func EnsureTopology(ch topologyChannel, topo Topology) error {
	for _, queue := range []string{topo.PrimaryQueue, topo.ResultsQueue, topo.FailedQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}

	switch topo.Strategy {
	case StrategyExchange:
		return ensureDelayedExchange(ch, topo)
	case StrategyLadder:
		return ensureDelayLadder(ch, topo)
	default:
		return fmt.Errorf("unknown delay strategy %q", topo.Strategy)
	}
}

// ensureDelayedExchange declares the x-delayed-message exchange and binds
// the primary queue to it. The exchange routes as a direct exchange once a
// message's x-delay has elapsed.
func ensureDelayedExchange(ch topologyChannel, topo Topology) error {
	args := amqp.Table{"x-delayed-type": "direct"}
	if err := ch.ExchangeDeclare(topo.DelayedExchange, "x-delayed-message", true, false, false, false, args); err != nil {
		return fmt.Errorf("declare delayed exchange %s (is the delayed-message plugin enabled?): %w",
			topo.DelayedExchange, err)
	}

	if err := ch.QueueBind(topo.PrimaryQueue, topo.PrimaryQueue, topo.DelayedExchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to delayed exchange: %w", topo.PrimaryQueue, err)
	}

	return nil
}

// ensureDelayLadder declares one expiring queue per distinct delay. Expired
// messages dead-letter through the default exchange straight back onto the
// primary queue.
func ensureDelayLadder(ch topologyChannel, topo Topology) error {
	if len(topo.Ladder) == 0 {
		return fmt.Errorf("ladder strategy configured with no delays")
	}

	for _, delay := range topo.Ladder {
		name := delayQueueName(topo.PrimaryQueue, delay)
		args := amqp.Table{
			"x-message-ttl":             delay.Milliseconds(),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": topo.PrimaryQueue,
		}
		if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
			return fmt.Errorf("declare delay queue %s: %w", name, err)
		}
	}

	return nil
}

// delayQueueName names a ladder rung: crawl_requests.delay.5m.
func delayQueueName(primary string, delay time.Duration) string {
	return fmt.Sprintf("%s.delay.%s", primary, core.DelayLabel(delay))
}
