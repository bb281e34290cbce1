package registry

import (
	"context"
	"encoding/json"
	"fmt"
)

// Typed adapts a strongly-typed handler function pair into the
// registry's Handler/AfterMaxRetryHandler interfaces, so user code can
// write func(ctx, T) error instead of hand-rolling JSON decoding —
// mirrors the teacher's reflection-based request binding
// (handler.Executor.deserializeRequest) but resolved at compile time via
// generics instead of reflect.Value.Call.
type Typed[T any] struct {
	HandleFunc        func(ctx context.Context, msg T) error
	AfterMaxRetryFunc func(ctx context.Context, msg T) error
}

func (t Typed[T]) Handle(ctx context.Context, payload []byte) error {
	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("registry: decode payload: %w", err)
	}
	return t.HandleFunc(ctx, msg)
}

func (t Typed[T]) AfterMaxRetry(ctx context.Context, payload []byte) error {
	if t.AfterMaxRetryFunc == nil {
		return nil
	}
	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("registry: decode payload: %w", err)
	}
	return t.AfterMaxRetryFunc(ctx, msg)
}

var _ Handler = Typed[struct{}]{}
