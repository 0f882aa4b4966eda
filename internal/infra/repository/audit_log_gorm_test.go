package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogListByOrderID(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewAuditLogGormRepository(gdb)

	rows := sqlmock.NewRows([]string{"id", "actor_user_id", "action", "resource_type", "resource_id", "order_id"}).
		AddRow(9, 900, "UPDATE_ORDER_ITEM", "order_item", 31, 7).
		AddRow(4, 900, "UPDATE_ORDER_NOTES", "order", 7, 7)
	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE order_id = .* ORDER BY id DESC LIMIT`).
		WillReturnRows(rows)

	logs, err := r.ListByOrderID(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(9), logs[0].ID)
	assert.Equal(t, int64(7), logs[1].OrderID)
	require.NoError(t, mock.ExpectationsWereMet())
}
