package store

import (
	"context"
	"testing"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewStoreWithDB(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestEnqueueOutbox(t *testing.T) {
	st, mock := newMockStore(t)

	msg := &models.OutboxMessage{
		ID:          uuid.New(),
		MessageType: models.MessageTypePaymentStatus,
		Payload:     `{"status":"FAILED"}`,
		Status:      models.OutboxStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO outbox_messages").
		WithArgs(msg.ID, msg.MessageType, msg.Payload, msg.Status, msg.CreatedAt, msg.RetryCount).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.EnqueueOutbox(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingOutbox(t *testing.T) {
	st, mock := newMockStore(t)

	first := uuid.New()
	second := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "message_type", "payload", "status", "created_at", "published_at", "retry_count"}).
		AddRow(first, models.MessageTypeProcessPayment, "{}", models.OutboxStatusPending, now.Add(-time.Minute), nil, 0).
		AddRow(second, models.MessageTypeProcessPayment, "{}", models.OutboxStatusPending, now, nil, 2)

	mock.ExpectQuery("SELECT (.+) FROM outbox_messages").
		WithArgs(models.OutboxStatusPending, 10).
		WillReturnRows(rows)

	messages, err := st.GetPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first, messages[0].ID)
	assert.Equal(t, 2, messages[1].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOutboxPublished(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE outbox_messages").
		WithArgs(models.OutboxStatusPublished, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.MarkOutboxPublished(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOutboxRetry(t *testing.T) {
	t.Run("below ceiling stays pending", func(t *testing.T) {
		st, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery("UPDATE outbox_messages").
			WithArgs(id, 5, models.OutboxStatusFailed).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OutboxStatusPending))

		dead, err := st.MarkOutboxRetry(context.Background(), id, 5)
		require.NoError(t, err)
		assert.False(t, dead)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ceiling flips to failed", func(t *testing.T) {
		st, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery("UPDATE outbox_messages").
			WithArgs(id, 5, models.OutboxStatusFailed).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OutboxStatusFailed))

		dead, err := st.MarkOutboxRetry(context.Background(), id, 5)
		require.NoError(t, err)
		assert.True(t, dead)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
