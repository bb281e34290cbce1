package outbox

import (
	"sync"

	"github.com/madcok-co/messagingcore/broker/queue"
)

// Transport selects which broker carries an event type.
type Transport int

const (
	TransportQueue Transport = iota
	TransportStream
)

// PublishSpec is the per-event-type declaration spec.md §4.7 calls out:
// "the domain event's type carries a declaration (Exchange, Route,
// ExchangeType)". Extended with a Transport selector and a Topic field
// so the same declaration surface covers both broker dialects.
type PublishSpec struct {
	Transport Transport

	// Queue transport fields.
	ExchangeType queue.ExchangeType
	Exchange     string
	Route        string
	Queue        string

	// Stream transport field.
	Topic string
}

// PublishRegistry maps a domain event's type name to its PublishSpec,
// built at startup alongside the Handler Registry (C1) but kept
// separate: publish declarations describe outbound routing, handler
// bindings describe inbound dispatch, and a type can have one without
// the other (e.g. a type this service only ever publishes).
type PublishRegistry struct {
	mu     sync.RWMutex
	byType map[string]PublishSpec
}

func NewPublishRegistry() *PublishRegistry {
	return &PublishRegistry{byType: make(map[string]PublishSpec)}
}

// Declare registers the publish spec for typeName. A second call for
// the same type overwrites the first — unlike the Handler Registry,
// redeclaration is not treated as an ambiguity error since publish
// declarations are data, not capability bindings.
func (r *PublishRegistry) Declare(typeName string, spec PublishSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[typeName] = spec
}

func (r *PublishRegistry) Lookup(typeName string) (PublishSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.byType[typeName]
	return spec, ok
}
