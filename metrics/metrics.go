// Package metrics is the stdlib-only contracts.Metrics implementation
// named in SPEC_FULL.md §7 "Outbox metrics": counters for publish
// attempts and dispatch outcomes, a gauge for lock contention. No
// Prometheus/StatsD client is wired since nothing in this module's
// scope exposes an HTTP exposition surface for one to serve (see
// DESIGN.md).
package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/madcok-co/messagingcore/contracts"
)

// InMemory is a process-local counter/gauge sink keyed by name plus an
// unordered set of tags. It is the default Metrics backend for the
// reference binary; a deployment that needs to export these values
// elsewhere implements contracts.Metrics against its own backend.
type InMemory struct {
	mu       sync.Mutex
	counters map[string]*counter
	gauges   map[string]*gauge
}

func New() *InMemory {
	return &InMemory{
		counters: make(map[string]*counter),
		gauges:   make(map[string]*gauge),
	}
}

func (m *InMemory) Counter(name string, tags ...string) contracts.Counter {
	key := keyFor(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		c = &counter{}
		m.counters[key] = c
	}
	return c
}

func (m *InMemory) Gauge(name string, tags ...string) contracts.Gauge {
	key := keyFor(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gauges[key]
	if !ok {
		g = &gauge{}
		m.gauges[key] = g
	}
	return g
}

// CounterValue reports a counter's current total. It exists for tests
// and diagnostic endpoints; it is not part of contracts.Metrics.
func (m *InMemory) CounterValue(name string, tags ...string) float64 {
	key := keyFor(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		return 0
	}
	return c.value()
}

// GaugeValue reports a gauge's current setting.
func (m *InMemory) GaugeValue(name string, tags ...string) float64 {
	key := keyFor(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gauges[key]
	if !ok {
		return 0
	}
	return g.value()
}

func keyFor(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return name + "{" + strings.Join(sorted, ",") + "}"
}

type counter struct {
	mu sync.Mutex
	v  float64
}

func (c *counter) Inc() { c.Add(1) }

func (c *counter) Add(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v += delta
}

func (c *counter) value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

type gauge struct {
	mu sync.Mutex
	v  float64
}

func (g *gauge) Set(value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.v = value
}

func (g *gauge) value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.v
}

var _ contracts.Metrics = (*InMemory)(nil)
