package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInboxStore struct {
	byMessageID map[string]*models.InboxMessage
	inserted    []*models.InboxMessage
	statuses    map[uuid.UUID][]string
}

func newFakeInboxStore() *fakeInboxStore {
	return &fakeInboxStore{
		byMessageID: make(map[string]*models.InboxMessage),
		statuses:    make(map[uuid.UUID][]string),
	}
}

func (f *fakeInboxStore) GetInboxByMessageID(ctx context.Context, messageID string) (*models.InboxMessage, error) {
	return f.byMessageID[messageID], nil
}

func (f *fakeInboxStore) InsertInbox(ctx context.Context, msg *models.InboxMessage) error {
	f.byMessageID[msg.MessageID] = msg
	f.inserted = append(f.inserted, msg)
	return nil
}

func (f *fakeInboxStore) SetInboxStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.statuses[id] = append(f.statuses[id], status)
	return nil
}

type processedPayment struct {
	messageID string
	orderID   uuid.UUID
	userID    uuid.UUID
	amount    decimal.Decimal
}

type fakeProcessor struct {
	err   error
	calls []processedPayment
}

func (f *fakeProcessor) ProcessPayment(ctx context.Context, messageID string, orderID, userID uuid.UUID, amount decimal.Decimal) error {
	f.calls = append(f.calls, processedPayment{messageID, orderID, userID, amount})
	return f.err
}

func paymentPayload(t *testing.T, msg models.ProcessPaymentMessage) []byte {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	return payload
}

func TestInboxWorkerProcessesNewMessage(t *testing.T) {
	st := newFakeInboxStore()
	proc := &fakeProcessor{}
	w := NewInboxWorker(nil, st, proc, "payments.process-payment")

	msg := models.ProcessPaymentMessage{
		OrderID:   uuid.New(),
		UserID:    uuid.New(),
		Amount:    decimal.RequireFromString("100.00"),
		MessageID: uuid.New().String(),
	}
	transportID := uuid.New().String()

	require.NoError(t, w.handleMessage(context.Background(), paymentPayload(t, msg), transportID))

	require.Len(t, proc.calls, 1)
	assert.Equal(t, msg.MessageID, proc.calls[0].messageID)
	assert.Equal(t, msg.OrderID, proc.calls[0].orderID)
	assert.Equal(t, msg.UserID, proc.calls[0].userID)
	assert.True(t, proc.calls[0].amount.Equal(msg.Amount))

	require.Len(t, st.inserted, 1)
	inbox := st.inserted[0]
	assert.Equal(t, transportID, inbox.MessageID)
	assert.Equal(t, []string{models.InboxStatusProcessing, models.InboxStatusProcessed}, st.statuses[inbox.ID])
}

func TestInboxWorkerSkipsProcessedDuplicate(t *testing.T) {
	st := newFakeInboxStore()
	proc := &fakeProcessor{}
	w := NewInboxWorker(nil, st, proc, "payments.process-payment")

	transportID := uuid.New().String()
	st.byMessageID[transportID] = &models.InboxMessage{
		ID:        uuid.New(),
		MessageID: transportID,
		Status:    models.InboxStatusProcessed,
	}

	require.NoError(t, w.handleMessage(context.Background(), []byte("{}"), transportID))

	assert.Empty(t, proc.calls)
	assert.Empty(t, st.inserted)
}

func TestInboxWorkerRetriesFailedMessage(t *testing.T) {
	st := newFakeInboxStore()
	proc := &fakeProcessor{}
	w := NewInboxWorker(nil, st, proc, "payments.process-payment")

	msg := models.ProcessPaymentMessage{
		OrderID:   uuid.New(),
		UserID:    uuid.New(),
		Amount:    decimal.RequireFromString("100.00"),
		MessageID: uuid.New().String(),
	}
	transportID := uuid.New().String()

	existing := &models.InboxMessage{
		ID:         uuid.New(),
		MessageID:  transportID,
		Status:     models.InboxStatusFailed,
		ReceivedAt: time.Now().UTC(),
	}
	st.byMessageID[transportID] = existing

	require.NoError(t, w.handleMessage(context.Background(), paymentPayload(t, msg), transportID))

	require.Len(t, proc.calls, 1)
	assert.Empty(t, st.inserted, "a known message id must not be re-inserted")
	assert.Equal(t, []string{models.InboxStatusProcessing, models.InboxStatusProcessed}, st.statuses[existing.ID])
}

func TestInboxWorkerMarksFailureAndPropagates(t *testing.T) {
	st := newFakeInboxStore()
	proc := &fakeProcessor{err: errors.New("db down")}
	w := NewInboxWorker(nil, st, proc, "payments.process-payment")

	msg := models.ProcessPaymentMessage{
		OrderID:   uuid.New(),
		UserID:    uuid.New(),
		Amount:    decimal.RequireFromString("100.00"),
		MessageID: uuid.New().String(),
	}
	transportID := uuid.New().String()

	err := w.handleMessage(context.Background(), paymentPayload(t, msg), transportID)
	require.Error(t, err)

	require.Len(t, st.inserted, 1)
	inbox := st.inserted[0]
	assert.Equal(t, []string{models.InboxStatusProcessing, models.InboxStatusFailed}, st.statuses[inbox.ID])
}

func TestInboxWorkerRejectsMalformedPayload(t *testing.T) {
	st := newFakeInboxStore()
	proc := &fakeProcessor{}
	w := NewInboxWorker(nil, st, proc, "payments.process-payment")

	transportID := uuid.New().String()
	err := w.handleMessage(context.Background(), []byte("not json"), transportID)
	require.Error(t, err)

	assert.Empty(t, proc.calls)
	require.Len(t, st.inserted, 1)
	assert.Equal(t, []string{models.InboxStatusProcessing, models.InboxStatusFailed}, st.statuses[st.inserted[0].ID])
}
