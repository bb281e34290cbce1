// Package dispatch is the Consumer Dispatch Engine (C8): the single
// protocol both the Queue Broker Adapter (C5) and Stream Broker Adapter
// (C6) call for every delivery (spec.md §4.8). It never talks to a
// transport directly — it returns an Outcome and lets the adapter
// translate that into ack/nack or commit/republish.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/madcok-co/messagingcore/contracts"
	"github.com/madcok-co/messagingcore/drivers/dbgorm"
	"github.com/madcok-co/messagingcore/envelope"
	"github.com/madcok-co/messagingcore/idempotency"
	"github.com/madcok-co/messagingcore/logging"
	"github.com/madcok-co/messagingcore/registry"
)

// Outcome is the terminal state of one Dispatch call, per the state
// machine in spec.md §4.8.
type Outcome int

const (
	OutcomeAcked Outcome = iota
	OutcomeUnknownType
	OutcomeMaxRetried
	OutcomeAlreadyProcessed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAcked:
		return "acked"
	case OutcomeUnknownType:
		return "unknown-type"
	case OutcomeMaxRetried:
		return "max-retried"
	case OutcomeAlreadyProcessed:
		return "already-processed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown-outcome"
	}
}

// ErrMissingTransactionConfig is the hard error spec.md §4.8 step 3
// names: every handler must declare a transaction side and isolation
// level, and a binding that omits it cannot be dispatched.
var ErrMissingTransactionConfig = errors.New("dispatch: handler missing transaction config")

// Input is one inbound delivery, already stripped of transport
// envelope concerns (queue/stream headers) by the calling adapter.
type Input struct {
	TypeName   string
	Payload    []byte
	RetryCount int
}

// Engine runs the C8 protocol.
type Engine struct {
	registry    *registry.Registry
	db          *dbgorm.Driver
	cmdStore    idempotency.Store
	qryStore    idempotency.Store
	cache       contracts.Cache
	logger      contracts.Logger
	sidechannel *logging.Sidechannel
	metrics     contracts.Metrics
}

// New builds a dispatch Engine. cmdStore backs command-side handlers,
// qryStore backs query-side handlers and is also the fallback (spec.md
// §4.8 step 4: "query-side events and all messages use
// ConsumerEventQuery"). The engine starts with a logger-only
// Sidechannel; call WithSidechannel to wire the central-log and
// search-index sinks once the stream adapter is available.
func New(reg *registry.Registry, db *dbgorm.Driver, cmdStore, qryStore idempotency.Store, cache contracts.Cache, logger contracts.Logger) *Engine {
	return &Engine{
		registry:    reg,
		db:          db,
		cmdStore:    cmdStore,
		qryStore:    qryStore,
		cache:       cache,
		logger:      logger,
		sidechannel: logging.New(logger, nil, "", nil),
		metrics:     contracts.NopMetrics{},
	}
}

// WithSidechannel replaces the engine's failure-path logging sidechannel,
// typically once the central-log topic publisher (the stream adapter)
// is constructed (spec.md §4.8 "On exception ... emit traces to the
// Logging Sidechannel").
func (e *Engine) WithSidechannel(sc *logging.Sidechannel) *Engine {
	e.sidechannel = sc
	return e
}

// WithMetrics replaces the engine's dispatch-outcome counter sink
// (SPEC_FULL.md §7 "Outbox metrics"). Defaults to a no-op sink.
func (e *Engine) WithMetrics(m contracts.Metrics) *Engine {
	e.metrics = m
	return e
}

func (e *Engine) recordOutcome(typeName string, outcome Outcome) Outcome {
	e.metrics.Counter("dispatch_outcome", "type", typeName, "outcome", outcome.String()).Inc()
	return outcome
}

// Dispatch runs the seven-step protocol from spec.md §4.8 for one
// delivery. The returned error is non-nil only for OutcomeFailed, which
// signals the calling adapter to trigger its transport-specific retry.
func (e *Engine) Dispatch(ctx context.Context, in Input) (Outcome, error) {
	// Step 1: bind.
	binding, ok := e.registry.Lookup(in.TypeName)
	if !ok {
		return e.recordOutcome(in.TypeName, OutcomeUnknownType), nil
	}

	// Step 2: retry ceiling.
	if in.RetryCount > binding.Meta.MaxRetry {
		if binding.Meta.HasAfterMaxRetryHook {
			hook, isHook := binding.Handler.(registry.AfterMaxRetryHandler)
			if isHook {
				if err := hook.AfterMaxRetry(ctx, in.Payload); err != nil {
					e.logger.WithError(err).Error("after-max-retry hook failed", "type", in.TypeName)
				}
			}
		}
		return e.recordOutcome(in.TypeName, OutcomeMaxRetried), nil
	}

	// Step 3: transaction config.
	if binding.Meta.TxSide == registry.SideUnset {
		e.sidechannel.Failure(ctx, "dispatch", "handler missing transaction config", ErrMissingTransactionConfig, map[string]any{"type": in.TypeName})
		return e.recordOutcome(in.TypeName, OutcomeFailed), ErrMissingTransactionConfig
	}

	store := e.storeFor(binding.Meta.TxSide)

	// Step 4: idempotency gate.
	msgID, err := envelope.MessageID(in.Payload)
	if err != nil {
		return e.recordOutcome(in.TypeName, OutcomeFailed), fmt.Errorf("dispatch: extract message id: %w", err)
	}

	exists, err := store.ExistsByMessageID(ctx, msgID)
	if err != nil {
		return e.recordOutcome(in.TypeName, OutcomeFailed), fmt.Errorf("dispatch: idempotency check: %w", err)
	}
	if exists {
		return e.recordOutcome(in.TypeName, OutcomeAlreadyProcessed), nil
	}

	// Step 5: transact.
	now := time.Now().UTC()
	err = e.db.Transaction(ctx, binding.Meta.TxIsolation, func(txCtx context.Context) error {
		if err := store.RecordProcessed(txCtx, msgID, in.TypeName, in.RetryCount, now); err != nil {
			return err
		}
		return binding.Handler.Handle(txCtx, in.Payload)
	})
	if err != nil {
		e.sidechannel.Failure(ctx, "dispatch", "handler failed, rolling back", err, map[string]any{"type": in.TypeName, "message_id": msgID})
		return e.recordOutcome(in.TypeName, OutcomeFailed), err
	}

	// Step 6: cache invalidation. Best-effort: failures are logged, not
	// fatal, because the side effects already committed.
	for _, key := range binding.Meta.CleanCacheKeys {
		if err := e.cache.Delete(ctx, key); err != nil {
			e.logger.WithError(err).Warn("cache invalidation failed", "key", key, "type", in.TypeName)
		}
	}

	// Step 7: acknowledge — the calling adapter performs the actual
	// transport ack.
	return e.recordOutcome(in.TypeName, OutcomeAcked), nil
}

func (e *Engine) storeFor(side registry.TxSide) idempotency.Store {
	if side == registry.SideCommand {
		return e.cmdStore
	}
	return e.qryStore
}
