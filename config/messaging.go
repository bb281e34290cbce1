package config

// QoS is the per-queue quality-of-service record spec.md §6 names:
// {queue, size, count, global, active}.
type QoS struct {
	Queue         string `mapstructure:"queue"`
	PrefetchSize  int    `mapstructure:"size"`
	PrefetchCount int    `mapstructure:"count"`
	Global        bool   `mapstructure:"global"`
	Active        bool   `mapstructure:"active"`
}

// QueueBroker holds the queue transport's connection surface
// (RabbitMQ-shaped: host/port/credentials plus per-queue QoS).
type QueueBroker struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	QoS      []QoS  `mapstructure:"qos"`
}

// StreamBroker holds the stream transport's connection surface
// (Kafka-shaped: bootstrap servers plus credentials).
type StreamBroker struct {
	Brokers  []string `mapstructure:"brokers"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Version  string   `mapstructure:"version"`
}

// Messaging is the full configuration surface spec.md §6 names for the
// messaging core.
type Messaging struct {
	NameOfService string `mapstructure:"name_of_service"`

	Queue  QueueBroker  `mapstructure:"queue"`
	Stream StreamBroker `mapstructure:"stream"`

	// IsExternalBrokerConsumingAsync toggles between blocking
	// sequential delivery and cooperative asynchronous delivery for
	// queue consumers (spec.md §5 Scheduling).
	IsExternalBrokerConsumingAsync bool `mapstructure:"is_external_broker_consuming_async"`
}

// QoSFor returns the configured QoS record for queue, or a disabled
// zero-value record if none is configured (caller should then fall
// back to broker defaults).
func (m *Messaging) QoSFor(queue string) (QoS, bool) {
	for _, q := range m.Queue.QoS {
		if q.Queue == queue {
			return q, true
		}
	}
	return QoS{}, false
}

// LoadMessaging reads the "messaging" subtree into a Messaging struct.
func LoadMessaging(d *Driver) (*Messaging, error) {
	var m Messaging
	if err := d.UnmarshalKey("messaging", &m); err != nil {
		return nil, err
	}
	return &m, nil
}
