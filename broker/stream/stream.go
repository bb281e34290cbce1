// Package stream is the Stream Broker Adapter (C6): a Kafka-shaped,
// partitioned, manual-commit transport over sarama (spec.md §4.6),
// grounded on the teacher's contrib/broker/kafka.Driver.
package stream

import (
	"context"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"

	"github.com/madcok-co/messagingcore/contracts"
	"github.com/madcok-co/messagingcore/dispatch"
	"github.com/madcok-co/messagingcore/resilience"
)

const (
	headerGroupID       = "GroupId"
	headerCountOfRetry  = "CountOfRetry"
)

// Adapter implements the Stream Broker Adapter.
type Adapter struct {
	client      sarama.Client
	producer    sarama.SyncProducer
	engine      *dispatch.Engine
	logger      contracts.Logger
	serviceName string
	retryer     *resilience.Retryer
	breaker     *resilience.CircuitBreaker
}

// New builds a stream Adapter. serviceName feeds the consumer group
// name and the GroupId header used by the processing gate and
// retry-by-republish protocol.
func New(client sarama.Client, producer sarama.SyncProducer, engine *dispatch.Engine, logger contracts.Logger, serviceName string) *Adapter {
	return &Adapter{
		client:      client,
		producer:    producer,
		engine:      engine,
		logger:      logger,
		serviceName: serviceName,
		retryer:     resilience.NewDefaultRetryer(),
		breaker:     resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "stream-publish"}),
	}
}

// Publish writes a fresh record: key = typeName, value = payload,
// GroupId="" and CountOfRetry="0" (spec.md §4.6).
func (a *Adapter) Publish(ctx context.Context, topic, typeName string, payload []byte) error {
	return a.publish(ctx, topic, typeName, payload, "", 0)
}

// republish writes a retry record attributed to this service's own
// consumer group generation, with the incremented retry count.
func (a *Adapter) republish(ctx context.Context, topic, typeName string, payload []byte, retryCount int) error {
	groupID := fmt.Sprintf("%s-%s", a.serviceName, topic)
	return a.publish(ctx, topic, typeName, payload, groupID, retryCount)
}

func (a *Adapter) publish(ctx context.Context, topic, typeName string, payload []byte, groupID string, countOfRetry int) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(typeName),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerGroupID), Value: []byte(groupID)},
			{Key: []byte(headerCountOfRetry), Value: []byte(strconv.Itoa(countOfRetry))},
		},
	}

	return a.breaker.Execute(func() error {
		return a.retryer.Do(ctx, func(ctx context.Context) error {
			_, _, err := a.producer.SendMessage(msg)
			return err
		})
	})
}

// Subscribe joins the per-(service, topic) consumer group named
// "{service}-{topic}" and runs until ctx is cancelled.
func (a *Adapter) Subscribe(ctx context.Context, topic string) error {
	groupID := fmt.Sprintf("%s-%s", a.serviceName, topic)

	// The consumer group takes its offset and commit settings from the
	// shared client's configuration (cmd/messagingcore builds it with
	// OffsetOldest and auto-commit disabled).
	group, err := sarama.NewConsumerGroupFromClient(groupID, a.client)
	if err != nil {
		return fmt.Errorf("stream: join consumer group %s: %w", groupID, err)
	}
	defer group.Close()

	handler := &claimHandler{adapter: a, topic: topic, groupID: groupID}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.WithError(err).Error("stream: consume group error", "topic", topic)
		}
	}
}

type claimHandler struct {
	adapter *Adapter
	topic   string
	groupID string
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.adapter.handleMessage(session, message)
		}
	}
}

func (a *Adapter) handleMessage(session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) {
	groupID, countOfRetry := readHeaders(message.Headers)

	if !shouldProcess(groupID, countOfRetry, a.serviceName, message.Topic) {
		// Not ours to process this generation: commit without dispatch
		// (spec.md §4.6 "Processing gate").
		session.MarkMessage(message, "")
		session.Commit()
		return
	}

	ctx := session.Context()
	outcome, err := a.engine.Dispatch(ctx, dispatch.Input{
		TypeName:   string(message.Key),
		Payload:    message.Value,
		RetryCount: countOfRetry,
	})

	if outcome != dispatch.OutcomeFailed {
		session.MarkMessage(message, "")
		session.Commit()
		return
	}

	a.logger.WithError(err).Warn("stream: dispatch failed, republishing", "topic", message.Topic, "retry", countOfRetry+1)

	republishErr := a.republish(ctx, message.Topic, string(message.Key), message.Value, countOfRetry+1)
	if republishErr != nil {
		// Republish itself failed: do not commit, the record redelivers
		// on next poll (spec.md §4.6 "Retry-by-republish").
		a.logger.WithError(republishErr).Error("stream: republish failed", "topic", message.Topic)
		return
	}

	session.MarkMessage(message, "")
	session.Commit()
}

// shouldProcess is the processing gate (spec.md §4.6): a record is
// ours to dispatch if it is fresh (no GroupId), or if it is a retry
// record this service itself republished for this topic.
func shouldProcess(groupID string, countOfRetry int, serviceName, topic string) bool {
	if groupID == "" {
		return true
	}
	return groupID == fmt.Sprintf("%s-%s", serviceName, topic) && countOfRetry > 0
}

func readHeaders(headers []*sarama.RecordHeader) (groupID string, countOfRetry int) {
	for _, h := range headers {
		switch string(h.Key) {
		case headerGroupID:
			groupID = string(h.Value)
		case headerCountOfRetry:
			n, err := strconv.Atoi(string(h.Value))
			if err == nil {
				countOfRetry = n
			}
		}
	}
	return groupID, countOfRetry
}
