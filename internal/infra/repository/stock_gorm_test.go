package repository

import (
	"context"
	"testing"

	repo "ecorder/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockDecrement_NotEnough(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewStockGormRepository(gdb)

	//条件付きUPDATEで0行なら在庫不足
	mock.ExpectExec(`UPDATE "stock_records" SET .*quantity - .* WHERE location_id = .* AND variant_id = .* AND quantity >= `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Decrement(context.Background(), 1, 10, 5)
	assert.ErrorIs(t, err, repo.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStockDecrement_OK(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewStockGormRepository(gdb)

	mock.ExpectExec(`UPDATE "stock_records" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.Decrement(context.Background(), 1, 10, 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStockLockForUpdate(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewStockGormRepository(gdb)

	rows := sqlmock.NewRows([]string{"id", "location_id", "variant_id", "quantity"}).
		AddRow(7, 1, 10, 3)
	mock.ExpectQuery(`SELECT \* FROM "stock_records" WHERE location_id = .* FOR UPDATE`).
		WillReturnRows(rows)

	s, err := r.LockForUpdate(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStockLockForUpdate_Missing(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewStockGormRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "stock_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.LockForUpdate(context.Background(), 1, 99)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestStockIncrement_Upsert(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewStockGormRepository(gdb)

	mock.ExpectQuery(`INSERT INTO "stock_records" .* ON CONFLICT \("location_id","variant_id"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	require.NoError(t, r.Increment(context.Background(), 1, 10, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}
