package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type queueDeclareCall struct {
	name    string
	durable bool
	args    amqp.Table
}

type exchangeDeclareCall struct {
	name string
	kind string
	args amqp.Table
}

type queueBindCall struct {
	queue    string
	key      string
	exchange string
}

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// channelMock records topology declarations and publishes; behavior is
// overridable per test through the fn fields.
type channelMock struct {
	queueDeclares    []queueDeclareCall
	exchangeDeclares []exchangeDeclareCall
	queueBinds       []queueBindCall
	publishes        []publishCall

	queueDeclareFn    func(name string, args amqp.Table) (amqp.Queue, error)
	exchangeDeclareFn func(name, kind string, args amqp.Table) error
	publishFn         func(exchange, key string, msg amqp.Publishing) error
}

func (m *channelMock) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	m.queueDeclares = append(m.queueDeclares, queueDeclareCall{name: name, durable: durable, args: args})
	if m.queueDeclareFn != nil {
		return m.queueDeclareFn(name, args)
	}
	return amqp.Queue{Name: name}, nil
}

func (m *channelMock) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	m.exchangeDeclares = append(m.exchangeDeclares, exchangeDeclareCall{name: name, kind: kind, args: args})
	if m.exchangeDeclareFn != nil {
		return m.exchangeDeclareFn(name, kind, args)
	}
	return nil
}

func (m *channelMock) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	m.queueBinds = append(m.queueBinds, queueBindCall{queue: name, key: key, exchange: exchange})
	return nil
}

func (m *channelMock) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.publishes = append(m.publishes, publishCall{exchange: exchange, key: key, msg: msg})
	if m.publishFn != nil {
		return m.publishFn(exchange, key, msg)
	}
	return nil
}
