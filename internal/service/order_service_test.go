package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/models"
	"github.com/AndreyBry/HSEGozon/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderService(t *testing.T) (*OrderService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	st := store.NewOrdersStoreWithBase(store.NewStoreWithDB(sqlx.NewDb(mockDB, "sqlmock")))
	return NewOrderService(st, nil), mock
}

func orderRow(id uuid.UUID, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "amount", "description", "status", "created_at", "updated_at"}).
		AddRow(id, uuid.New(), "150.00", "mechanical keyboard", status, now, now)
}

func TestCreateOrder(t *testing.T) {
	t.Run("persists order and payment message atomically", func(t *testing.T) {
		svc, mock := newOrderService(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO orders").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO outbox_messages").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		order, err := svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString("150.00"), "mechanical keyboard")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusNew, order.Status)
		assert.NotEqual(t, uuid.Nil, order.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing persists when the outbox insert fails", func(t *testing.T) {
		svc, mock := newOrderService(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO orders").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO outbox_messages").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, err := svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString("150.00"), "mechanical keyboard")
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		svc, _ := newOrderService(t)

		_, err := svc.CreateOrder(context.Background(), uuid.New(), decimal.Zero, "mechanical keyboard")
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString("-5"), "mechanical keyboard")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects empty description", func(t *testing.T) {
		svc, _ := newOrderService(t)

		_, err := svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString("150.00"), "")
		assert.ErrorIs(t, err, ErrMissingDescription)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("SUCCESS finishes the order", func(t *testing.T) {
		svc, mock := newOrderService(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(orderRow(id, models.OrderStatusNew))
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(models.OrderStatusFinished, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.UpdateOrderStatus(context.Background(), id, "SUCCESS"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FAILED cancels the order", func(t *testing.T) {
		svc, mock := newOrderService(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(orderRow(id, models.OrderStatusNew))
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(models.OrderStatusCancelled, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.UpdateOrderStatus(context.Background(), id, "FAILED"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing order is a no-op", func(t *testing.T) {
		svc, mock := newOrderService(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		require.NoError(t, svc.UpdateOrderStatus(context.Background(), id, "SUCCESS"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate outcome is a no-op", func(t *testing.T) {
		svc, mock := newOrderService(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(orderRow(id, models.OrderStatusFinished))

		require.NoError(t, svc.UpdateOrderStatus(context.Background(), id, "SUCCESS"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown token is a no-op", func(t *testing.T) {
		svc, mock := newOrderService(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(orderRow(id, models.OrderStatusNew))

		require.NoError(t, svc.UpdateOrderStatus(context.Background(), id, "PENDING"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflicting terminal outcome overwrites", func(t *testing.T) {
		svc, mock := newOrderService(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(orderRow(id, models.OrderStatusFinished))
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(models.OrderStatusCancelled, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.UpdateOrderStatus(context.Background(), id, "FAILED"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMapPaymentStatus(t *testing.T) {
	tests := []struct {
		raw      string
		current  string
		expected string
	}{
		{"SUCCESS", models.OrderStatusNew, models.OrderStatusFinished},
		{"FAILED", models.OrderStatusNew, models.OrderStatusCancelled},
		{"success", models.OrderStatusNew, models.OrderStatusFinished},
		{"failed", models.OrderStatusNew, models.OrderStatusCancelled},
		{"PENDING", models.OrderStatusNew, models.OrderStatusNew},
		{"", models.OrderStatusFinished, models.OrderStatusFinished},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, mapPaymentStatus(tt.raw, tt.current), "raw %q", tt.raw)
	}
}
