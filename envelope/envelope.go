// Package envelope is the Envelope Codec (C2): serializes and
// deserializes payloads, and carries type identity as a plain string
// rather than any language-level schema (spec.md §4.2).
package envelope

import (
	"encoding/json"
	"fmt"
)

// Event is the queue-transport wire shape: the outbox row's id, type
// and payload, so a queue consumer bound on (queue) alone can recover both the
// type name and the payload (spec.md §3 "Message envelope on the
// wire").
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode serializes v to its wire form. Used for both the stream
// transport's value and the inner Payload of a queue Event envelope.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode: %w", err)
	}
	return b, nil
}

// Decode deserializes data into v. Round-trips cleanly with Encode for
// every handler input type (spec.md §4.2 invariant).
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("envelope: decode: %w", err)
	}
	return nil
}

// EncodeEvent wraps a payload in the queue-transport Event envelope.
func EncodeEvent(id, typeName string, payload []byte) ([]byte, error) {
	return Encode(Event{ID: id, Type: typeName, Payload: payload})
}

// DecodeEvent unwraps a queue-transport Event envelope.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := Decode(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// MessageID extracts the "Id" field from a decoded payload by
// convention (spec.md §4.8 step 4: "Extract the payload's Id property
// by convention"). Payload must be a JSON object with an "id", "Id" or
// "ID" key holding a string.
func MessageID(payload []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", fmt.Errorf("envelope: extract message id: %w", err)
	}
	for _, key := range []string{"id", "Id", "ID"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("envelope: message id field %q is not a string: %w", key, err)
		}
		return id, nil
	}
	return "", fmt.Errorf("envelope: payload has no id/Id/ID field")
}
