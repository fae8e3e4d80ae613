package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/broker"
	"github.com/AndreyBry/HSEGozon/internal/models"
	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const consumeRetryDelay = 5 * time.Second

// InboxStore is the slice of the payments store the inbox gate needs
type InboxStore interface {
	GetInboxByMessageID(ctx context.Context, messageID string) (*models.InboxMessage, error)
	InsertInbox(ctx context.Context, msg *models.InboxMessage) error
	SetInboxStatus(ctx context.Context, id uuid.UUID, status string) error
}

// PaymentProcessor applies a deduplicated payment request
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, messageID string, orderID, userID uuid.UUID, amount decimal.Decimal) error
}

// InboxWorker consumes ProcessPayment messages and gates every delivery
// through the inbox table before business logic runs. The transport message
// id is the dedup key; only a PROCESSED row short-circuits redelivery.
type InboxWorker struct {
	consumer broker.Consumer
	store    InboxStore
	payments PaymentProcessor
	queue    string
	logger   *zap.Logger
}

// NewInboxWorker creates the payments-side consumer worker
func NewInboxWorker(consumer broker.Consumer, store InboxStore, payments PaymentProcessor, queue string) *InboxWorker {
	return &InboxWorker{
		consumer: consumer,
		store:    store,
		payments: payments,
		queue:    queue,
		logger:   util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled. A dead broker connection degrades
// the service to stalled, not crashed: the loop keeps retrying.
func (w *InboxWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting inbox worker", zap.String("queue", w.queue))

	for {
		err := w.consumer.Consume(ctx, w.queue, w.handleMessage)
		if ctx.Err() != nil {
			w.logger.Info("Inbox worker stopped")
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

// handleMessage runs the inbox gate for one delivery. Returning an error
// nacks the message with requeue; a FAILED inbox row does not block the
// retry, only PROCESSED is terminal for the dedup check.
func (w *InboxWorker) handleMessage(ctx context.Context, payload []byte, messageID string) error {
	existing, err := w.store.GetInboxByMessageID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to look up inbox message: %w", err)
	}

	if existing != nil && existing.Status == models.InboxStatusProcessed {
		util.InboxDuplicatesTotal.Inc()
		w.logger.Info("Message already processed, skipping", zap.String("message_id", messageID))
		return nil
	}

	inbox := existing
	if inbox == nil {
		inbox = &models.InboxMessage{
			ID:          uuid.New(),
			MessageID:   messageID,
			MessageType: models.MessageTypeProcessPayment,
			Payload:     string(payload),
			Status:      models.InboxStatusPending,
			ReceivedAt:  time.Now().UTC(),
		}
		if err := w.store.InsertInbox(ctx, inbox); err != nil {
			return fmt.Errorf("failed to record inbox message: %w", err)
		}
	}

	if err := w.store.SetInboxStatus(ctx, inbox.ID, models.InboxStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark inbox message processing: %w", err)
	}

	if err := w.process(ctx, payload); err != nil {
		if statusErr := w.store.SetInboxStatus(ctx, inbox.ID, models.InboxStatusFailed); statusErr != nil {
			w.logger.Error("Failed to mark inbox message failed", zap.String("message_id", messageID), zap.Error(statusErr))
		}
		return err
	}

	if err := w.store.SetInboxStatus(ctx, inbox.ID, models.InboxStatusProcessed); err != nil {
		return fmt.Errorf("failed to mark inbox message processed: %w", err)
	}

	util.InboxProcessedTotal.Inc()
	return nil
}

func (w *InboxWorker) process(ctx context.Context, payload []byte) error {
	var msg models.ProcessPaymentMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal payment message: %w", err)
	}

	return w.payments.ProcessPayment(ctx, msg.MessageID, msg.OrderID, msg.UserID, msg.Amount)
}
