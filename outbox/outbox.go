// Package outbox is the Outbox Publisher (C7): a polled drain of
// pending Event rows under a process-wide mutex and a per-event
// distributed lock, publishing each to whichever broker transport its
// type declares (spec.md §4.7).
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/madcok-co/messagingcore/contracts"
	"github.com/madcok-co/messagingcore/drivers/dbgorm"
	"github.com/madcok-co/messagingcore/lock"
)

// Event is the outbox row (spec.md §3).
type Event struct {
	ID        string `gorm:"primaryKey;column:id"`
	Type      string
	Payload   []byte
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Event) TableName() string { return "outbox_events" }

// NewEvent stamps a fresh outbox row ready for insertion inside the
// same business transaction as the state change it represents (spec.md
// §3 "inserted inside the same business transaction as the state
// change it represents").
func NewEvent(typeName string, payload []byte) Event {
	now := time.Now().UTC()
	return Event{
		ID:        uuid.NewString(),
		Type:      typeName,
		Payload:   payload,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EventCommandRepository is the command-side persistence contract
// spec.md §6 names for the outbox table.
type EventCommandRepository interface {
	FindAllOrderedByDate(ctx context.Context) ([]Event, error)
	Change(ctx context.Context, ev *Event) error
	Remove(ctx context.Context, ev *Event) error
}

// GormEventRepository implements EventCommandRepository over
// drivers/dbgorm, picking up whatever transaction is open on ctx.
type GormEventRepository struct {
	db *dbgorm.Driver
}

func NewGormEventRepository(db *dbgorm.Driver) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) FindAllOrderedByDate(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := r.db.DB(ctx).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("outbox: find pending events: %w", err)
	}
	return events, nil
}

func (r *GormEventRepository) Change(ctx context.Context, ev *Event) error {
	if err := r.db.DB(ctx).Save(ev).Error; err != nil {
		return fmt.Errorf("outbox: save event %s: %w", ev.ID, err)
	}
	return nil
}

func (r *GormEventRepository) Remove(ctx context.Context, ev *Event) error {
	if err := r.db.DB(ctx).Delete(ev).Error; err != nil {
		return fmt.Errorf("outbox: remove event %s: %w", ev.ID, err)
	}
	return nil
}

var _ EventCommandRepository = (*GormEventRepository)(nil)

// BrokerPublisher abstracts the single operation the outbox needs from
// whichever broker transport an event's declared type resolves to.
// DualBroker implements it over the queue and stream adapters.
type BrokerPublisher interface {
	PublishEvent(ctx context.Context, ev *Event, spec PublishSpec) error
}

// Publisher drains the outbox table on a schedule.
type Publisher struct {
	db       *dbgorm.Driver
	repo     EventCommandRepository
	locker   lock.Locker
	registry *PublishRegistry
	broker   BrokerPublisher
	logger   contracts.Logger
	metrics  contracts.Metrics

	// mu serializes outbox passes within one process (spec.md §4.7,
	// §5 "Outbox worker is single-threaded per process via a
	// process-wide mutex").
	mu sync.Mutex
}

// New builds an outbox Publisher. Metrics default to a no-op sink; call
// WithMetrics to wire SPEC_FULL.md §7's publish-attempt and
// lock-contention counters.
func New(db *dbgorm.Driver, repo EventCommandRepository, locker lock.Locker, registry *PublishRegistry, broker BrokerPublisher, logger contracts.Logger) *Publisher {
	return &Publisher{db: db, repo: repo, locker: locker, registry: registry, broker: broker, logger: logger, metrics: contracts.NopMetrics{}}
}

// WithMetrics replaces the publisher's metrics sink.
func (p *Publisher) WithMetrics(m contracts.Metrics) *Publisher {
	p.metrics = m
	return p
}

// RunPass executes one logical invocation of the outbox drain (spec.md
// §4.7 steps 1-5): every row is read, locked, published-or-removed, and
// the whole pass commits or rolls back atomically. Locks acquired
// during the pass are always released, even when the pass itself
// fails, so another instance can make progress afterward.
func (p *Publisher) RunPass(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var held []string
	defer func() {
		for _, key := range held {
			if err := p.locker.Release(ctx, key); err != nil {
				p.logger.WithError(err).Warn("outbox: failed to release lock", "key", key)
			}
		}
	}()

	return p.db.Transaction(ctx, sql.LevelDefault, func(ctx context.Context) error {
		events, err := p.repo.FindAllOrderedByDate(ctx)
		if err != nil {
			return err
		}

		for i := range events {
			ev := &events[i]

			key := lock.KeyForEvent(ev.ID)
			acquired, err := p.locker.Acquire(ctx, key, ev.ID)
			if err != nil {
				return fmt.Errorf("outbox: acquire lock for %s: %w", ev.ID, err)
			}
			if !acquired {
				// Another instance owns this event this pass.
				p.metrics.Gauge("outbox_lock_contention").Set(1)
				continue
			}
			held = append(held, key)

			if err := p.processOne(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Publisher) processOne(ctx context.Context, ev *Event) error {
	if !ev.IsActive {
		return p.repo.Remove(ctx, ev)
	}

	spec, ok := p.registry.Lookup(ev.Type)
	if !ok {
		return fmt.Errorf("outbox: no publish declaration for event type %q", ev.Type)
	}

	if err := p.broker.PublishEvent(ctx, ev, spec); err != nil {
		p.metrics.Counter("outbox_publish_attempt", "type", ev.Type, "result", "error").Inc()
		return fmt.Errorf("outbox: publish event %s (%s): %w", ev.ID, ev.Type, err)
	}
	p.metrics.Counter("outbox_publish_attempt", "type", ev.Type, "result", "ok").Inc()

	ev.IsActive = false
	ev.UpdatedAt = time.Now().UTC()
	return p.repo.Change(ctx, ev)
}
