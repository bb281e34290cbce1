// Package hosted is Hosted Loops (C9): long-running workers that own
// subscription lifecycles per topic/queue plus the outbox's polling
// loop, started at boot and stopped on a shutdown signal (spec.md
// §4.9). Generalized from the teacher's core/pkg/service.Runner, which
// drives HTTP and broker adapters the same way — start each in its own
// goroutine, fan their errors back, and shut every one down on a single
// cancellation.
package hosted

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/madcok-co/messagingcore/contracts"
)

// Loop is anything hosted can start and run until its context is
// cancelled.
type Loop interface {
	// Name identifies the loop in logs.
	Name() string
	// Run blocks until ctx is cancelled or an unrecoverable error
	// occurs.
	Run(ctx context.Context) error
}

// Group runs a fixed set of Loops concurrently and waits for shutdown.
type Group struct {
	logger contracts.Logger
	loops  []Loop
}

// New builds an empty Group.
func New(logger contracts.Logger) *Group {
	return &Group{logger: logger}
}

// Add registers a loop to be started by Run. Must be called before Run.
func (g *Group) Add(loop Loop) *Group {
	g.loops = append(g.loops, loop)
	return g
}

// Run starts every registered loop, then blocks until ctx is cancelled
// or SIGINT/SIGTERM arrives, whichever comes first (spec.md §5
// "Cancellation"). Every loop is given a chance to exit cleanly before
// Run returns.
func (g *Group) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, loop := range g.loops {
		wg.Add(1)
		go func(l Loop) {
			defer wg.Done()
			if err := l.Run(runCtx); err != nil && runCtx.Err() == nil {
				g.logger.WithError(err).Error("hosted loop exited", "loop", l.Name())
			}
		}(loop)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-runCtx.Done():
	case sig := <-sigCh:
		g.logger.Info("hosted: received shutdown signal", "signal", sig.String())
		cancel()
	}

	wg.Wait()
	return nil
}

// Ticker wraps a func(ctx) error invoked on a fixed interval, the shape
// shared by the outbox loop and any other poll-driven loop (spec.md
// §4.7 "Runs as a recurring task").
type Ticker struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	logger   contracts.Logger
}

// NewTicker builds a Loop that calls fn every interval until cancelled.
func NewTicker(name string, interval time.Duration, fn func(ctx context.Context) error, logger contracts.Logger) *Ticker {
	return &Ticker{name: name, interval: interval, fn: fn, logger: logger}
}

func (t *Ticker) Name() string { return t.name }

func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.fn(ctx); err != nil {
				t.logger.WithError(err).Error("hosted: ticker pass failed", "loop", t.name)
			}
		}
	}
}

var _ Loop = (*Ticker)(nil)

// Subscription wraps a blocking Subscribe-style call (queue or stream
// adapter) as a Loop, restarting it after a short delay if it returns
// an error other than context cancellation — a subscribe call that
// returns is a dropped connection, not a clean shutdown.
type Subscription struct {
	name        string
	subscribe   func(ctx context.Context) error
	restartWait time.Duration
	logger      contracts.Logger
}

// NewSubscription builds a Loop around a blocking subscribe function.
func NewSubscription(name string, subscribe func(ctx context.Context) error, logger contracts.Logger) *Subscription {
	return &Subscription{name: name, subscribe: subscribe, restartWait: 5 * time.Second, logger: logger}
}

func (s *Subscription) Name() string { return s.name }

func (s *Subscription) Run(ctx context.Context) error {
	for {
		err := s.subscribe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.logger.WithError(err).Error("hosted: subscription dropped, restarting", "loop", s.name)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.restartWait):
		}
	}
}

var _ Loop = (*Subscription)(nil)
