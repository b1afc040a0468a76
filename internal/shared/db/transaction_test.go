package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&row{}))
	return gdb
}

func count(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&row{}).Count(&n).Error)
	return n
}

func TestRunInTransaction_CommitAndRollback(t *testing.T) {
	gdb := newTestDB(t)
	tm := NewTransactionManager(gdb)
	ctx := context.Background()

	err := tm.RunInTransaction(ctx, func(ctx context.Context) error {
		return GetTxFromContext(ctx, gdb).Create(&row{Name: "kept"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count(t, gdb))

	boom := errors.New("boom")
	err = tm.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, GetTxFromContext(ctx, gdb).Create(&row{Name: "dropped"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), count(t, gdb))
}

func TestRunInTransaction_NestedJoinsOuter(t *testing.T) {
	gdb := newTestDB(t)
	tm := NewTransactionManager(gdb)

	err := tm.RunInTransaction(context.Background(), func(outer context.Context) error {
		outerTx := GetTxFromContext(outer, gdb)
		return tm.RunInTransaction(outer, func(inner context.Context) error {
			assert.Same(t, outerTx, GetTxFromContext(inner, gdb))
			return nil
		})
	})
	require.NoError(t, err)
}
