package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appliedStatus struct {
	orderID uuid.UUID
	status  string
}

type fakeStatusApplier struct {
	err     error
	applied []appliedStatus
}

func (f *fakeStatusApplier) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) error {
	f.applied = append(f.applied, appliedStatus{orderID, rawStatus})
	return f.err
}

func TestStatusWorkerAppliesOutcome(t *testing.T) {
	applier := &fakeStatusApplier{}
	w := NewStatusWorker(nil, applier, "orders.payment.status")

	msg := models.PaymentStatusMessage{
		OrderID:   uuid.New(),
		Status:    models.PaymentStatusFailed,
		Reason:    "Insufficient balance",
		MessageID: uuid.New().String(),
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)

	require.NoError(t, w.handleMessage(context.Background(), payload, uuid.New().String()))

	require.Len(t, applier.applied, 1)
	assert.Equal(t, msg.OrderID, applier.applied[0].orderID)
	assert.Equal(t, models.PaymentStatusFailed, applier.applied[0].status)
}

func TestStatusWorkerDropsMalformedPayload(t *testing.T) {
	applier := &fakeStatusApplier{}
	w := NewStatusWorker(nil, applier, "orders.payment.status")

	// Malformed payloads are acked, not requeued
	require.NoError(t, w.handleMessage(context.Background(), []byte("not json"), uuid.New().String()))
	assert.Empty(t, applier.applied)
}
