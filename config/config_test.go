package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) *Options {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return &Options{ConfigName: "config", ConfigPath: dir, ConfigType: "yaml", EnvPrefix: "TESTAPP"}
}

func TestNew_MissingFileIsNotAnError(t *testing.T) {
	opts := &Options{ConfigName: "config", ConfigPath: t.TempDir(), ConfigType: "yaml", EnvPrefix: "TESTAPP"}
	if _, err := New(opts); err != nil {
		t.Fatalf("expected missing config file to be tolerated, got %v", err)
	}
}

func TestGetString(t *testing.T) {
	opts := writeConfig(t, "messaging:\n  name_of_service: orders-service\n")
	d, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.GetString("messaging.name_of_service"); got != "orders-service" {
		t.Errorf("expected orders-service, got %q", got)
	}
}

func TestLoadMessaging(t *testing.T) {
	opts := writeConfig(t, `
messaging:
  name_of_service: orders-service
  is_external_broker_consuming_async: true
  queue:
    host: rabbit.internal
    port: 5672
    username: guest
    password: guest
    vhost: /
    qos:
      - queue: orders.created
        size: 0
        count: 10
        global: false
        active: true
  stream:
    brokers:
      - kafka-1:9092
      - kafka-2:9092
    version: "2.8.0"
`)
	d, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}

	m, err := LoadMessaging(d)
	if err != nil {
		t.Fatal(err)
	}

	if m.NameOfService != "orders-service" {
		t.Errorf("expected orders-service, got %q", m.NameOfService)
	}
	if !m.IsExternalBrokerConsumingAsync {
		t.Error("expected async consumption to be enabled")
	}
	if len(m.Stream.Brokers) != 2 {
		t.Errorf("expected 2 stream brokers, got %d", len(m.Stream.Brokers))
	}

	qos, ok := m.QoSFor("orders.created")
	if !ok {
		t.Fatal("expected QoS record for orders.created")
	}
	if qos.PrefetchCount != 10 {
		t.Errorf("expected prefetch count 10, got %d", qos.PrefetchCount)
	}
}

func TestQoSForUnknownQueue(t *testing.T) {
	m := &Messaging{}
	if _, ok := m.QoSFor("nope"); ok {
		t.Error("expected no QoS record for unconfigured queue")
	}
}
