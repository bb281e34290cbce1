package outbox

import (
	"context"
	"fmt"

	"github.com/madcok-co/messagingcore/broker/queue"
	"github.com/madcok-co/messagingcore/broker/stream"
	"github.com/madcok-co/messagingcore/envelope"
)

// DualBroker implements BrokerPublisher by routing each event to the
// queue or stream adapter per its PublishSpec.Transport. Both adapters
// are optional: a process that only ever wires one transport leaves
// the other nil, and publishing to the unwired transport is a
// configuration error rather than a panic.
type DualBroker struct {
	Queue  *queue.Adapter
	Stream *stream.Adapter
}

func NewDualBroker(q *queue.Adapter, s *stream.Adapter) *DualBroker {
	return &DualBroker{Queue: q, Stream: s}
}

func (b *DualBroker) PublishEvent(ctx context.Context, ev *Event, spec PublishSpec) error {
	switch spec.Transport {
	case TransportQueue:
		if b.Queue == nil {
			return fmt.Errorf("outbox: event type %q declares queue transport but no queue adapter is wired", ev.Type)
		}
		if spec.ExchangeType == queue.ExchangeDirect && spec.Route == "" {
			return fmt.Errorf("outbox: event type %q declares Direct exchange with an empty route", ev.Type)
		}
		if spec.ExchangeType == queue.ExchangeDefault {
			return fmt.Errorf("outbox: event type %q declares Default exchange, which is a configuration error for outbox publishing", ev.Type)
		}
		body, err := envelope.EncodeEvent(ev.ID, ev.Type, ev.Payload)
		if err != nil {
			return fmt.Errorf("outbox: wrap event %s: %w", ev.ID, err)
		}
		return b.Queue.Publish(ctx, queue.PublishOptions{
			Message:      body,
			ExchangeType: spec.ExchangeType,
			Exchange:     spec.Exchange,
			Route:        spec.Route,
			Queue:        spec.Queue,
		})
	case TransportStream:
		if b.Stream == nil {
			return fmt.Errorf("outbox: event type %q declares stream transport but no stream adapter is wired", ev.Type)
		}
		return b.Stream.Publish(ctx, spec.Topic, ev.Type, ev.Payload)
	default:
		return fmt.Errorf("outbox: event type %q declares unknown transport %d", ev.Type, spec.Transport)
	}
}

var _ BrokerPublisher = (*DualBroker)(nil)
