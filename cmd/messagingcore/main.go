// Command messagingcore boots the asynchronous messaging core as a
// standalone daemon: it wires configuration, persistence, cache, the
// two broker adapters, the outbox publisher, and every hosted loop,
// then blocks until a shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/IBM/sarama"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/madcok-co/messagingcore/broker/queue"
	"github.com/madcok-co/messagingcore/broker/stream"
	"github.com/madcok-co/messagingcore/config"
	"github.com/madcok-co/messagingcore/dispatch"
	"github.com/madcok-co/messagingcore/drivers/cacheredis"
	"github.com/madcok-co/messagingcore/drivers/dbgorm"
	"github.com/madcok-co/messagingcore/drivers/loggerzap"
	"github.com/madcok-co/messagingcore/hosted"
	"github.com/madcok-co/messagingcore/idempotency"
	"github.com/madcok-co/messagingcore/lock"
	"github.com/madcok-co/messagingcore/logging"
	"github.com/madcok-co/messagingcore/metrics"
	"github.com/madcok-co/messagingcore/outbox"
	"github.com/madcok-co/messagingcore/registry"
)

const centralLogTopic = "central-log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New(config.DefaultOptions())
	if err != nil {
		return fmt.Errorf("messagingcore: load config: %w", err)
	}

	msgCfg, err := config.LoadMessaging(cfg)
	if err != nil {
		return fmt.Errorf("messagingcore: load messaging config: %w", err)
	}

	logger := loggerzap.NewWithConfig(loggerzap.DefaultConfig())
	defer logger.Sync()

	// Persistence. The reference deployment uses SQLite; production
	// swaps the dialector passed to gorm.Open (see
	// contrib/database/gorm for the postgres variant this was
	// generalized from).
	dbPath := cfg.GetString("messaging.database.path")
	if dbPath == "" {
		dbPath = "messagingcore.db"
	}
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("messagingcore: open database: %w", err)
	}
	db := dbgorm.New(gdb)
	defer db.Close()

	if err := db.AutoMigrate(&outbox.Event{}); err != nil {
		return fmt.Errorf("messagingcore: migrate outbox table: %w", err)
	}

	cmdStore := idempotency.NewCommandStore(db)
	qryStore := idempotency.NewQueryStore(db)
	if err := db.DB(context.Background()).Table("consumer_events_command").AutoMigrate(&idempotency.Marker{}); err != nil {
		return fmt.Errorf("messagingcore: migrate command inbox: %w", err)
	}
	if err := db.DB(context.Background()).Table("consumer_events_query").AutoMigrate(&idempotency.Marker{}); err != nil {
		return fmt.Errorf("messagingcore: migrate query inbox: %w", err)
	}

	// Cache / distributed lock.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.GetString("messaging.cache.addr")})
	cache := cacheredis.New(redisClient, cacheredis.WithPrefix(msgCfg.NameOfService))
	defer cache.Close()
	locker := lock.New(cache)

	// Queue broker connection.
	queueConn, err := amqp.Dial(queueDSN(msgCfg))
	if err != nil {
		return fmt.Errorf("messagingcore: dial queue broker: %w", err)
	}
	defer queueConn.Close()

	// Stream broker connection.
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = false
	streamClient, err := sarama.NewClient(msgCfg.Stream.Brokers, saramaCfg)
	if err != nil {
		return fmt.Errorf("messagingcore: connect stream broker: %w", err)
	}
	defer streamClient.Close()

	streamProducer, err := sarama.NewSyncProducerFromClient(streamClient)
	if err != nil {
		return fmt.Errorf("messagingcore: build stream producer: %w", err)
	}
	defer streamProducer.Close()

	reg := registry.New()
	registerHandlers(reg)

	metricsSink := metrics.New()

	engine := dispatch.New(reg, db, cmdStore, qryStore, cache, logger).WithMetrics(metricsSink)

	queueAdapter := queue.New(queueConn, engine, logger, msgCfg)
	streamAdapter := stream.New(streamClient, streamProducer, engine, logger, msgCfg.NameOfService)

	engine.WithSidechannel(logging.New(logger, streamAdapter, centralLogTopic, nil))

	publishRegistry := outbox.NewPublishRegistry()
	registerPublishSpecs(publishRegistry)

	eventRepo := outbox.NewGormEventRepository(db)
	broker := outbox.NewDualBroker(queueAdapter, streamAdapter)
	publisher := outbox.New(db, eventRepo, locker, publishRegistry, broker, logger).WithMetrics(metricsSink)

	group := hosted.New(logger)
	group.Add(hosted.NewTicker("outbox", outboxInterval(cfg), publisher.RunPass, logger))

	for _, q := range msgCfg.Queue.QoS {
		q := q
		group.Add(hosted.NewSubscription("queue-"+q.Queue, func(ctx context.Context) error {
			return queueAdapter.SubscribeEvent(ctx, q.Queue)
		}, logger))
	}

	for _, topic := range reg.Topics() {
		topic := topic
		group.Add(hosted.NewSubscription("stream-"+topic, func(ctx context.Context) error {
			return streamAdapter.Subscribe(ctx, topic)
		}, logger))
	}

	logger.Info("messagingcore: starting", "service", msgCfg.NameOfService, "handlers", reg.Count())
	return group.Run(context.Background())
}

func queueDSN(m *config.Messaging) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", m.Queue.Username, m.Queue.Password, m.Queue.Host, m.Queue.Port, m.Queue.VHost)
}

func outboxInterval(cfg *config.Driver) time.Duration {
	if d := cfg.GetDuration("messaging.outbox.interval"); d > 0 {
		return d
	}
	return 5 * time.Second
}

// registerHandlers is where a deployment binds its concrete handlers.
// Left empty here: this binary is the reference wiring, not a specific
// service.
func registerHandlers(reg *registry.Registry) {}

// registerPublishSpecs is where a deployment declares (Exchange,
// Route, ExchangeType) / (Topic) per domain event type (spec.md §4.7
// "Exchange selection").
func registerPublishSpecs(reg *outbox.PublishRegistry) {}
