package repository

import (
	"context"
	"testing"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentFindByID(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewPaymentGormRepository(gdb)

	rows := sqlmock.NewRows([]string{"id", "order_id", "method", "amount", "status"}).
		AddRow(12, 7, "momo", "28.00", "pending")
	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = .* ORDER BY "payments"."id" LIMIT`).
		WillReturnRows(rows)

	p, err := r.FindByID(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.OrderID)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Equal(t, "28.00", p.Amount.StringFixed(2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentFindByID_NotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewPaymentGormRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
