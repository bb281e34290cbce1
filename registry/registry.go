// Package registry is the Handler Registry (C1): a static map of
// message-type name to handler binding and metadata, built at startup
// instead of discovered by reflection (see SPEC_FULL.md Design Note
// "reflection-driven dispatch → static registry").
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// TxSide distinguishes which unit of work and which inbox table a
// binding's idempotency marker belongs to.
type TxSide int

const (
	// SideUnset marks a binding that never declared its transaction
	// config. Dispatch treats this as a hard error (spec.md §4.1).
	SideUnset TxSide = iota
	SideCommand
	SideQuery
)

func (s TxSide) String() string {
	switch s {
	case SideCommand:
		return "command"
	case SideQuery:
		return "query"
	default:
		return "unset"
	}
}

// Handler is what user code implements. Payload is the already-decoded
// domain message; handlers never see transport envelopes.
type Handler interface {
	// Handle runs the handler's business logic inside the dispatch
	// engine's transaction (spec.md §4.8 step 5). Infrastructure
	// (the open transaction, request-scoped repositories) travels on
	// ctx; the handler reaches it the same way it reached ctx itself.
	Handle(ctx context.Context, payload []byte) error
}

// AfterMaxRetryHandler is implemented optionally alongside Handler by
// handlers that declared HasAfterMaxRetryHook. Runs outside any
// transaction (spec.md §4.8 step 2, Design Note on the after-max hook).
type AfterMaxRetryHandler interface {
	AfterMaxRetry(ctx context.Context, payload []byte) error
}

// Metadata is the per-binding declaration spec.md §4.1 requires the
// registry to record: max-retry, transaction config, cache-invalidation
// keys, and (for stream handlers) the bound topic.
type Metadata struct {
	MaxRetry             int
	HasAfterMaxRetryHook bool

	TxSide      TxSide
	TxIsolation sql.IsolationLevel

	CleanCacheKeys []string

	// Topic is the stream topic this binding is consumed from. Empty
	// for queue-only bindings.
	Topic string
}

// Binding is the (MessageType, HandlerObject, Metadata) triple spec.md
// §3 describes, built with a fluent registration API in place of the
// teacher's reflective annotations (Design Note "Annotation metadata →
// value records").
type Binding struct {
	TypeName string
	Handler  Handler
	Meta     Metadata
}

// MaxRetry declares the retry ceiling and whether an after-max-retry
// hook is declared (spec.md §6: "MaxRetry(count,
// hasAfterMaxRetryHandle)"). hasAfterMax must only be true if Handler
// also implements AfterMaxRetryHandler; MaxRetry panics otherwise.
func (b *Binding) MaxRetry(n int, hasAfterMax bool) *Binding {
	b.Meta.MaxRetry = n
	if hasAfterMax {
		if _, ok := b.Handler.(AfterMaxRetryHandler); !ok {
			panic(fmt.Sprintf("registry: binding %q declares an after-max-retry hook but its handler does not implement AfterMaxRetryHandler", b.TypeName))
		}
	}
	b.Meta.HasAfterMaxRetryHook = hasAfterMax
	return b
}

// Transaction declares the side (command/query) and isolation level this
// binding runs its handler at. Absence of this call is a hard dispatch
// error per spec.md §4.1 — every handler must declare it.
func (b *Binding) Transaction(side TxSide, isolation sql.IsolationLevel) *Binding {
	b.Meta.TxSide = side
	b.Meta.TxIsolation = isolation
	return b
}

// CleanCache declares the cache keys to invalidate after a successful
// commit (spec.md §4.8 step 6).
func (b *Binding) CleanCache(keys ...string) *Binding {
	b.Meta.CleanCacheKeys = keys
	return b
}

// StreamTopic declares the stream topic a binding is consumed from,
// used by Hosted Loops (C9) to discover which topics to subscribe.
func (b *Binding) StreamTopic(topic string) *Binding {
	b.Meta.Topic = topic
	return b
}

// Registry is the Handler Registry (C1). Safe for concurrent reads
// after startup registration completes.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]*Binding
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byType: make(map[string]*Binding)}
}

// Bind registers a handler for a message-type name. A second Bind call
// for the same type name is an ambiguity error (spec.md §4.1: "Ambiguity
// (two handlers for one type) is a startup error").
func (r *Registry) Bind(typeName string, h Handler) *Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[typeName]; exists {
		panic(fmt.Sprintf("registry: handler already bound for type %q", typeName))
	}

	b := &Binding{TypeName: typeName, Handler: h}
	r.byType[typeName] = b
	return b
}

// Lookup returns the binding for a type-name string from the wire.
// Absence is not an error at this layer — spec.md §4.8 step 1 treats an
// unknown type as a silent-ack, not a business error.
func (r *Registry) Lookup(typeName string) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byType[typeName]
	return b, ok
}

// Topics returns the distinct stream topics declared by any binding,
// used by Hosted Loops (C9) to start one stream-consumer goroutine per
// topic.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var topics []string
	for _, b := range r.byType {
		if b.Meta.Topic == "" {
			continue
		}
		if _, ok := seen[b.Meta.Topic]; ok {
			continue
		}
		seen[b.Meta.Topic] = struct{}{}
		topics = append(topics, b.Meta.Topic)
	}
	return topics
}

// All returns a snapshot of every binding, keyed by type name.
func (r *Registry) All() map[string]*Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Binding, len(r.byType))
	for k, v := range r.byType {
		out[k] = v
	}
	return out
}

// Count returns the number of bound handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType)
}
