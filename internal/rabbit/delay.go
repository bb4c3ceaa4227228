package rabbit

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/recipepipe/crawl-worker/internal/core"
)

// publishChannel is the subset of *amqp.Channel the publishers use.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// DelayRouter re-publishes an envelope so that it lands back on the primary
// queue no earlier than the given delay, without any process having to stay
// alive or poll in the meantime. Both implementations publish persistent
// messages, so a broker restart inside the delay window loses nothing.
type DelayRouter interface {
	ScheduleRetry(ctx context.Context, env *core.Envelope, delay time.Duration) error
}

// NewDelayRouter builds the router matching the topology's strategy.
func NewDelayRouter(ch publishChannel, topo Topology) (DelayRouter, error) {
	switch topo.Strategy {
	case StrategyExchange:
		return &delayedExchangeRouter{
			ch:         ch,
			exchange:   topo.DelayedExchange,
			routingKey: topo.PrimaryQueue,
		}, nil
	case StrategyLadder:
		if len(topo.Ladder) == 0 {
			return nil, fmt.Errorf("ladder strategy configured with no delays")
		}
		return &queueLadderRouter{
			ch:      ch,
			primary: topo.PrimaryQueue,
			rungs:   topo.Ladder,
		}, nil
	default:
		return nil, fmt.Errorf("unknown delay strategy %q", topo.Strategy)
	}
}

// delayedExchangeRouter publishes through the x-delayed-message exchange
// with the delay attached per message.
type delayedExchangeRouter struct {
	ch         publishChannel
	exchange   string
	routingKey string
}

func (r *delayedExchangeRouter) ScheduleRetry(ctx context.Context, env *core.Envelope, delay time.Duration) error {
	headers := amqp.Table(env.Headers())
	headers[core.HeaderDelay] = delay.Milliseconds()

	err := r.ch.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         env.Payload,
	})
	if err != nil {
		return fmt.Errorf("publish to delayed exchange: %w", err)
	}
	return nil
}

// queueLadderRouter publishes into the fixed-TTL queue whose duration
// matches the delay; expiry dead-letters the message back to the primary
// queue.
type queueLadderRouter struct {
	ch      publishChannel
	primary string
	rungs   []time.Duration // ascending, mirrors the declared ladder
}

func (r *queueLadderRouter) ScheduleRetry(ctx context.Context, env *core.Envelope, delay time.Duration) error {
	rung := r.pickRung(delay)

	err := r.ch.PublishWithContext(ctx, "", delayQueueName(r.primary, rung), false, false, amqp.Publishing{
		Headers:      amqp.Table(env.Headers()),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         env.Payload,
	})
	if err != nil {
		return fmt.Errorf("publish to delay queue %s: %w", core.DelayLabel(rung), err)
	}
	return nil
}

// pickRung returns the smallest declared rung that holds the message at
// least as long as requested, or the longest rung when the request exceeds
// the ladder.
func (r *queueLadderRouter) pickRung(delay time.Duration) time.Duration {
	for _, rung := range r.rungs {
		if rung >= delay {
			return rung
		}
	}
	return r.rungs[len(r.rungs)-1]
}
