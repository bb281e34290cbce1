// Package queue is the Queue Broker Adapter (C5): a RabbitMQ-shaped
// publish/subscribe surface over amqp091-go (spec.md §4.5). Grounded on
// the pack's RabbitMQ consumer/retry-publisher reference code, since
// the teacher itself only ships a Kafka broker driver.
package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/madcok-co/messagingcore/config"
	"github.com/madcok-co/messagingcore/contracts"
	"github.com/madcok-co/messagingcore/dispatch"
	"github.com/madcok-co/messagingcore/envelope"
)

// ExchangeType selects how Publish routes a message (spec.md §4.5).
type ExchangeType int

const (
	// ExchangeDefault publishes directly to a queue, bypassing any
	// exchange.
	ExchangeDefault ExchangeType = iota
	// ExchangeDirect publishes to Exchange using Route as the binding
	// key.
	ExchangeDirect
	// ExchangeFanOut publishes to Exchange; Route is ignored.
	ExchangeFanOut
)

// PublishOptions is the {Message, ExchangeType, Exchange, Route, Queue,
// Headers} record spec.md §4.5 names.
type PublishOptions struct {
	Message      []byte
	ExchangeType ExchangeType
	Exchange     string
	Route        string
	Queue        string
	Headers      amqp.Table
}

// Adapter implements the Queue Broker Adapter. One Adapter shares a
// single *amqp.Connection across every publish and subscription, in
// line with spec.md §5 "Shared resources" — channels are opened per
// publish and per subscription.
type Adapter struct {
	conn   *amqp.Connection
	engine *dispatch.Engine
	logger contracts.Logger
	qos    *config.Messaging
}

// New builds a queue Adapter over an established AMQP connection.
func New(conn *amqp.Connection, engine *dispatch.Engine, logger contracts.Logger, cfg *config.Messaging) *Adapter {
	return &Adapter{conn: conn, engine: engine, logger: logger, qos: cfg}
}

// Publish dispatches opts according to its ExchangeType (spec.md §4.5).
// It makes a single attempt: a failed publish is returned to the caller
// without retry.
func (a *Adapter) Publish(ctx context.Context, opts PublishOptions) error {
	ch, err := a.conn.Channel()
	if err != nil {
		return fmt.Errorf("queue: open channel: %w", err)
	}
	defer ch.Close()

	pub := amqp.Publishing{Body: opts.Message, Headers: opts.Headers}

	switch opts.ExchangeType {
	case ExchangeDirect:
		return ch.PublishWithContext(ctx, opts.Exchange, opts.Route, false, false, pub)
	case ExchangeFanOut:
		return ch.PublishWithContext(ctx, opts.Exchange, "", false, false, pub)
	case ExchangeDefault:
		return ch.PublishWithContext(ctx, "", opts.Queue, false, false, pub)
	default:
		return fmt.Errorf("queue: unknown exchange type %d", opts.ExchangeType)
	}
}

// decodeFunc extracts the wire type name and the handler payload from
// a delivery body.
type decodeFunc func(body []byte) (typeName string, payload []byte, err error)

// SubscribeEvent consumes queue expecting the Event envelope on the
// wire (spec.md §4.5 "Event-envelope consumption").
func (a *Adapter) SubscribeEvent(ctx context.Context, queue string) error {
	return a.subscribe(ctx, queue, decodeEventEnvelope)
}

// SubscribeTyped consumes queue expecting the raw payload of a single
// known message type on the wire (spec.md §4.5 "typed message
// consumption").
func (a *Adapter) SubscribeTyped(ctx context.Context, queue, messageType string) error {
	return a.subscribe(ctx, queue, decodeTypedMessage(messageType))
}

func decodeEventEnvelope(body []byte) (string, []byte, error) {
	ev, err := envelope.DecodeEvent(body)
	if err != nil {
		return "", nil, err
	}
	return ev.Type, ev.Payload, nil
}

func decodeTypedMessage(messageType string) decodeFunc {
	return func(body []byte) (string, []byte, error) {
		return messageType, body, nil
	}
}

func (a *Adapter) subscribe(ctx context.Context, queue string, decode decodeFunc) error {
	ch, err := a.conn.Channel()
	if err != nil {
		return fmt.Errorf("queue: open channel: %w", err)
	}
	defer ch.Close()

	if qos, ok := a.qos.QoSFor(queue); ok && qos.Active {
		if err := ch.Qos(qos.PrefetchCount, qos.PrefetchSize, qos.Global); err != nil {
			return fmt.Errorf("queue: qos %s: %w", queue, err)
		}
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue: consume %s: %w", queue, err)
	}

	async := a.qos.IsExternalBrokerConsumingAsync
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("queue: delivery channel for %s closed", queue)
			}
			if async {
				go a.handleDelivery(ctx, d, decode)
			} else {
				a.handleDelivery(ctx, d, decode)
			}
		}
	}
}

func (a *Adapter) handleDelivery(ctx context.Context, d amqp.Delivery, decode decodeFunc) {
	typeName, payload, err := decode(d.Body)
	if err != nil {
		a.logger.WithError(err).Error("queue: malformed delivery", "queue", d.RoutingKey)
		_ = d.Nack(false, false)
		return
	}

	outcome, err := a.engine.Dispatch(ctx, dispatch.Input{
		TypeName:   typeName,
		Payload:    payload,
		RetryCount: retryCountFromHeaders(d.Headers),
	})
	if err != nil {
		a.logger.WithError(err).Error("queue: dispatch failed", "type", typeName)
	}

	switch outcome {
	case dispatch.OutcomeFailed:
		// Negative-acknowledge without requeue so the broker routes the
		// message to its declared dead-letter exchange; x-death carries
		// the retry count on redelivery (spec.md §4.8).
		_ = d.Nack(false, false)
	default:
		_ = d.Ack(false)
	}
}

// retryCountFromHeaders reads x-death[0].count, the transport-injected
// requeue record RabbitMQ's dead-letter-exchange mechanism attaches
// (spec.md §3 "Message envelope on the wire").
func retryCountFromHeaders(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	raw, ok := headers["x-death"]
	if !ok {
		return 0
	}
	deaths, ok := raw.([]any)
	if !ok || len(deaths) == 0 {
		return 0
	}
	first, ok := deaths[0].(amqp.Table)
	if !ok {
		return 0
	}
	switch c := first["count"].(type) {
	case int64:
		return int(c)
	case int32:
		return int(c)
	case int:
		return c
	default:
		return 0
	}
}
