package dbgorm

import (
	"context"
	"database/sql"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primarykey"`
	Name string
}

func setupTestDriver(t *testing.T) *Driver {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	d := New(db)
	if err := d.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return d
}

func TestDB_NoTransactionUsesBaseConnection(t *testing.T) {
	d := setupTestDriver(t)
	ctx := context.Background()

	if err := d.DB(ctx).Create(&widget{Name: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var count int64
	d.DB(ctx).Model(&widget{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestTransaction_CommitPersists(t *testing.T) {
	d := setupTestDriver(t)
	ctx := context.Background()

	err := d.Transaction(ctx, sql.LevelDefault, func(txCtx context.Context) error {
		return d.DB(txCtx).Create(&widget{Name: "tx-committed"}).Error
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	var count int64
	d.DB(ctx).Model(&widget{}).Where("name = ?", "tx-committed").Count(&count)
	if count != 1 {
		t.Errorf("expected committed row to be visible, got count %d", count)
	}
}

func TestTransaction_ErrorRollsBack(t *testing.T) {
	d := setupTestDriver(t)
	ctx := context.Background()

	wantErr := gorm.ErrInvalidTransaction
	err := d.Transaction(ctx, sql.LevelDefault, func(txCtx context.Context) error {
		if err := d.DB(txCtx).Create(&widget{Name: "tx-rolled-back"}).Error; err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}

	var count int64
	d.DB(ctx).Model(&widget{}).Where("name = ?", "tx-rolled-back").Count(&count)
	if count != 0 {
		t.Errorf("expected rollback, but row exists (count %d)", count)
	}
}

func TestTransaction_CtxCarriesSameTx(t *testing.T) {
	d := setupTestDriver(t)
	ctx := context.Background()

	var inner *gorm.DB
	err := d.Transaction(ctx, sql.LevelDefault, func(txCtx context.Context) error {
		inner = d.DB(txCtx)
		again := d.DB(txCtx)
		if inner != again {
			t.Error("expected DB(ctx) to return the same *gorm.DB within one transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestPingAndClose(t *testing.T) {
	d := setupTestDriver(t)
	ctx := context.Background()

	if err := d.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
