package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/broker"
	"github.com/AndreyBry/HSEGozon/internal/models"
	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStatusApplier applies a payment outcome to an order
type OrderStatusApplier interface {
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) error
}

// StatusWorker consumes PaymentStatus messages on the orders side and closes
// the saga: an order's terminal state always derives from the payment
// outcome, never from the client.
type StatusWorker struct {
	consumer broker.Consumer
	orders   OrderStatusApplier
	queue    string
	logger   *zap.Logger
}

// NewStatusWorker creates the orders-side consumer worker
func NewStatusWorker(consumer broker.Consumer, orders OrderStatusApplier, queue string) *StatusWorker {
	return &StatusWorker{
		consumer: consumer,
		orders:   orders,
		queue:    queue,
		logger:   util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled, restarting on broker failures
func (w *StatusWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting payment status worker", zap.String("queue", w.queue))

	for {
		err := w.consumer.Consume(ctx, w.queue, w.handleMessage)
		if ctx.Err() != nil {
			w.logger.Info("Payment status worker stopped")
			return ctx.Err()
		}
		w.logger.Error("Consumer terminated, restarting", zap.String("queue", w.queue), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(consumeRetryDelay):
		}
	}
}

func (w *StatusWorker) handleMessage(ctx context.Context, payload []byte, messageID string) error {
	var msg models.PaymentStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		// Malformed status messages are acked and dropped: requeueing a
		// payload that can never parse would loop forever.
		w.logger.Warn("Failed to unmarshal payment status message, dropping",
			zap.String("message_id", messageID),
			zap.Error(err))
		return nil
	}

	return w.orders.UpdateOrderStatus(ctx, msg.OrderID, msg.Status)
}
