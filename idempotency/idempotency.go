// Package idempotency is the Idempotency Store (C3): a durable
// "has this message been processed?" set keyed by message id, split
// into a command-side store and a query-side store (spec.md §3
// ConsumerEvent / ConsumerEventQuery, §4.3).
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/madcok-co/messagingcore/drivers/dbgorm"
)

// Marker is the inbox row: presence of an Id means the handler for that
// message already committed successfully at least once (spec.md §3
// invariant).
type Marker struct {
	ID           string `gorm:"primaryKey"`
	Type         string
	CountOfRetry int
	CreatedAt    time.Time
}

// Store is the contract spec.md §4.3 defines, parameterized so the same
// shape backs both the command-side and query-side tables.
type Store interface {
	ExistsByMessageID(ctx context.Context, id string) (bool, error)
	RecordProcessed(ctx context.Context, id, msgType string, retryCount int, createdAt time.Time) error
}

// GormStore implements Store against a dedicated GORM table, selected by
// table name so the command-side and query-side stores share one model
// but never share rows.
type GormStore struct {
	db    *dbgorm.Driver
	table string
}

// NewCommandStore backs the command-side inbox
// (consumer_events_command).
func NewCommandStore(db *dbgorm.Driver) *GormStore {
	return &GormStore{db: db, table: "consumer_events_command"}
}

// NewQueryStore backs the query-side inbox (consumer_events_query).
func NewQueryStore(db *dbgorm.Driver) *GormStore {
	return &GormStore{db: db, table: "consumer_events_query"}
}

func (s *GormStore) ExistsByMessageID(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.DB(ctx).Table(s.table).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("idempotency: exists by id: %w", err)
	}
	return count > 0, nil
}

// RecordProcessed inserts the inbox marker. Must be called inside the
// same transaction as the handler's side effects (spec.md §4.3) — the
// transaction travels on ctx via dbgorm.Driver.DB.
func (s *GormStore) RecordProcessed(ctx context.Context, id, msgType string, retryCount int, createdAt time.Time) error {
	marker := Marker{ID: id, Type: msgType, CountOfRetry: retryCount, CreatedAt: createdAt}
	if err := s.db.DB(ctx).Table(s.table).Create(&marker).Error; err != nil {
		return fmt.Errorf("idempotency: record processed: %w", err)
	}
	return nil
}

var _ Store = (*GormStore)(nil)
