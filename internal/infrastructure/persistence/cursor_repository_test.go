package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCursorStore_GetSet(t *testing.T) {
	store := NewGormCursorStore(setupTestDB(t))
	ctx := context.Background()

	value, err := store.Get(ctx, fulfillment.CursorInventoryRow)
	require.NoError(t, err)
	assert.Equal(t, "", value, "missing cursor reads as empty")

	require.NoError(t, store.Set(ctx, fulfillment.CursorInventoryRow, "45"))
	require.NoError(t, store.Set(ctx, fulfillment.CursorInventoryRow, "90"))

	value, err = store.Get(ctx, fulfillment.CursorInventoryRow)
	require.NoError(t, err)
	assert.Equal(t, "90", value)
}

func TestGormCursorStore_CompareAndSet(t *testing.T) {
	store := NewGormCursorStore(setupTestDB(t))
	ctx := context.Background()
	name := fulfillment.CursorInventoryRunning

	t.Run("empty expected matches missing row", func(t *testing.T) {
		ok, err := store.CompareAndSet(ctx, name, "", fulfillment.FlagActive)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty expected does not match existing value", func(t *testing.T) {
		ok, err := store.CompareAndSet(ctx, name, "", fulfillment.FlagStopped)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stale expected value loses", func(t *testing.T) {
		ok, err := store.CompareAndSet(ctx, name, fulfillment.FlagStopped, fulfillment.FlagActive)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("matching expected value wins", func(t *testing.T) {
		ok, err := store.CompareAndSet(ctx, name, fulfillment.FlagActive, fulfillment.FlagStopped)
		require.NoError(t, err)
		assert.True(t, ok)

		value, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, fulfillment.FlagStopped, value)
	})
}

func TestGormCursorStore_SQLShape(t *testing.T) {
	t.Run("set is a single upsert", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "sync_cursors" .* ON CONFLICT \("name"\) DO UPDATE SET`).
			WithArgs(fulfillment.CursorOrderAfter, "100000003", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewGormCursorStore(db).Set(context.Background(), fulfillment.CursorOrderAfter, "100000003"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("compare and set is a conditional update", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "sync_cursors" SET .* WHERE name = \$3 AND value = \$4`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), fulfillment.CursorInventoryToken, "tok-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := NewGormCursorStore(db).CompareAndSet(context.Background(), fulfillment.CursorInventoryToken, "tok-1", "tok-2")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is returned", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "sync_cursors" WHERE name = \$1`).
			WillReturnError(errors.New("connection refused"))

		_, err := NewGormCursorStore(db).Get(context.Background(), fulfillment.CursorInventoryRow)
		assert.Error(t, err)
	})
}
