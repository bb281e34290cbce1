package metrics

import "testing"

func TestCounter_AccumulatesPerTagSet(t *testing.T) {
	m := New()

	m.Counter("dispatch_outcome", "type", "OrderPlaced", "outcome", "acked").Inc()
	m.Counter("dispatch_outcome", "type", "OrderPlaced", "outcome", "acked").Add(2)
	m.Counter("dispatch_outcome", "type", "OrderPlaced", "outcome", "failed").Inc()

	if got := m.CounterValue("dispatch_outcome", "type", "OrderPlaced", "outcome", "acked"); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := m.CounterValue("dispatch_outcome", "type", "OrderPlaced", "outcome", "failed"); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestCounter_TagOrderIsInsignificant(t *testing.T) {
	m := New()

	m.Counter("outbox_publish_attempt", "type", "OrderPlaced", "result", "ok").Inc()

	if got := m.CounterValue("outbox_publish_attempt", "result", "ok", "type", "OrderPlaced"); got != 1 {
		t.Fatalf("expected tag order to be normalized, got %v", got)
	}
}

func TestGauge_SetOverwrites(t *testing.T) {
	m := New()

	g := m.Gauge("outbox_lock_contention")
	g.Set(3)
	g.Set(5)

	if got := m.GaugeValue("outbox_lock_contention"); got != 5 {
		t.Fatalf("expected 5, got %v", got)
	}
}

func TestCounterValue_UnknownKeyIsZero(t *testing.T) {
	m := New()
	if got := m.CounterValue("never_recorded"); got != 0 {
		t.Fatalf("expected 0 for unrecorded counter, got %v", got)
	}
}
