// Package logging is the Logging Sidechannel (C10): three failure-path
// sinks — the primary structured logger, a central log topic published
// over the same broker, and a structured search index — used exclusively
// when something has already gone wrong (spec.md §4.10). No sink may
// ever propagate an error: a failure in the sidechannel itself must not
// mask the original failure it is reporting.
package logging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/madcok-co/messagingcore/contracts"
)

// Record is the structured failure trace shipped to the central log
// topic and the search index.
type Record struct {
	Component string         `json:"component"`
	Message   string         `json:"message"`
	Err       string         `json:"err"`
	Fields    map[string]any `json:"fields,omitempty"`
	Time      time.Time      `json:"time"`
}

// CentralLogPublisher is the subset of the Stream Broker Adapter's
// publish surface the sidechannel needs — broker/stream.Adapter
// satisfies this directly.
type CentralLogPublisher interface {
	Publish(ctx context.Context, topic, typeName string, payload []byte) error
}

// SearchIndexWriter indexes a failure record for search. NopSearchIndexWriter
// is the default when no search backend is wired.
type SearchIndexWriter interface {
	Index(ctx context.Context, record Record) error
}

// NopSearchIndexWriter discards every record.
type NopSearchIndexWriter struct{}

func (NopSearchIndexWriter) Index(ctx context.Context, record Record) error { return nil }

var _ SearchIndexWriter = NopSearchIndexWriter{}

// Sidechannel fans a failure out to its three sinks.
type Sidechannel struct {
	logger  contracts.Logger
	central CentralLogPublisher
	topic   string
	search  SearchIndexWriter
}

// New builds a Sidechannel. central may be nil to disable the central
// log topic sink (e.g. before the stream adapter is wired at boot);
// search defaults to NopSearchIndexWriter when nil.
func New(logger contracts.Logger, central CentralLogPublisher, topic string, search SearchIndexWriter) *Sidechannel {
	if search == nil {
		search = NopSearchIndexWriter{}
	}
	return &Sidechannel{logger: logger, central: central, topic: topic, search: search}
}

// Failure reports a component failure to every sink. Always logs
// locally first — the one sink assumed durable — then best-effort fans
// out to the central topic and the search index, logging but never
// returning their errors (spec.md §4.10: "any sink failure falls
// through silently").
func (s *Sidechannel) Failure(ctx context.Context, component, message string, err error, fields map[string]any) {
	s.logger.WithError(err).Error(message, flatten(fields)...)

	record := Record{
		Component: component,
		Message:   message,
		Err:       errString(err),
		Fields:    fields,
		Time:      time.Now().UTC(),
	}

	if s.central != nil {
		payload, encErr := json.Marshal(record)
		if encErr != nil {
			s.logger.WithError(encErr).Warn("logging: failed to encode failure record")
		} else if pubErr := s.central.Publish(ctx, s.topic, "FailureTrace", payload); pubErr != nil {
			s.logger.WithError(pubErr).Warn("logging: central log publish failed")
		}
	}

	if idxErr := s.search.Index(ctx, record); idxErr != nil {
		s.logger.WithError(idxErr).Warn("logging: search index write failed")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func flatten(fields map[string]any) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
