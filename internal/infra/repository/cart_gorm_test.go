package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartListActiveItems_OnlyActiveCart(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewCartGormRepository(gdb)

	rows := sqlmock.NewRows([]string{"id", "cart_id", "variant_id", "quantity"}).
		AddRow(1, 3, 11, 2).
		AddRow(2, 3, 12, 1)
	mock.ExpectQuery(`SELECT .* FROM "cart_items" join carts on carts.id = cart_items.cart_id WHERE carts.user_id = .* AND carts.status = `).
		WithArgs(100, "ACTIVE").
		WillReturnRows(rows)

	items, err := r.ListActiveItemsByUserID(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(11), items[0].VariantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartClearByUserID(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewCartGormRepository(gdb)

	mock.ExpectExec(`DELETE FROM "cart_items" WHERE cart_id IN \(SELECT "id" FROM "carts" WHERE user_id = .* AND status = `).
		WithArgs(100, "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, r.ClearByUserID(context.Background(), 100))
	require.NoError(t, mock.ExpectationsWereMet())
}
