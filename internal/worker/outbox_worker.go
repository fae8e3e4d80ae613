package worker

import (
	"context"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/broker"
	"github.com/AndreyBry/HSEGozon/internal/models"
	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	outboxBatchSize  = 10
	outboxMaxRetries = 5
)

// OutboxStore is the slice of the store the outbox worker needs
type OutboxStore interface {
	GetPendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id uuid.UUID) error
	MarkOutboxRetry(ctx context.Context, id uuid.UUID, maxRetries int) (bool, error)
}

// OutboxWorker drains a service's outbox: every interval it fetches the
// oldest pending rows FIFO and publishes each to a fixed exchange/routing
// key. Publish and status update are not atomic with each other; the gap is
// covered by idempotent consumers downstream.
type OutboxWorker struct {
	store      OutboxStore
	publisher  broker.Publisher
	exchange   string
	routingKey string
	interval   time.Duration
	logger     *zap.Logger
}

// NewOutboxWorker creates an outbox worker
func NewOutboxWorker(store OutboxStore, publisher broker.Publisher, exchange, routingKey string, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		store:      store,
		publisher:  publisher,
		exchange:   exchange,
		routingKey: routingKey,
		interval:   interval,
		logger:     util.GetLogger(),
	}
}

// Start runs the polling loop until ctx is cancelled
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting outbox worker",
		zap.String("exchange", w.exchange),
		zap.String("routing_key", w.routingKey),
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Outbox worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch publishes one batch of pending rows. Each message's outcome
// is independent: a publish failure increments that row's retry counter and
// never aborts the rest of the batch.
func (w *OutboxWorker) processBatch(ctx context.Context) {
	messages, err := w.store.GetPendingOutbox(ctx, outboxBatchSize)
	if err != nil {
		w.logger.Error("Failed to fetch pending outbox messages", zap.Error(err))
		return
	}

	for _, msg := range messages {
		if err := w.publisher.Publish(ctx, w.exchange, w.routingKey, msg.MessageType, []byte(msg.Payload)); err != nil {
			w.logger.Error("Failed to publish outbox message",
				zap.String("outbox_id", msg.ID.String()),
				zap.Int("retry_count", msg.RetryCount),
				zap.Error(err))

			failed, retryErr := w.store.MarkOutboxRetry(ctx, msg.ID, outboxMaxRetries)
			if retryErr != nil {
				w.logger.Error("Failed to record outbox retry", zap.String("outbox_id", msg.ID.String()), zap.Error(retryErr))
				continue
			}
			if failed {
				util.OutboxFailedTotal.Inc()
				w.logger.Warn("Outbox message dead after retry ceiling",
					zap.String("outbox_id", msg.ID.String()),
					zap.String("message_type", msg.MessageType))
			}
			continue
		}

		if err := w.store.MarkOutboxPublished(ctx, msg.ID); err != nil {
			// The message went out but the row stays pending, so it will be
			// republished next cycle. Safe: consumers dedupe.
			w.logger.Error("Failed to mark outbox message published",
				zap.String("outbox_id", msg.ID.String()),
				zap.Error(err))
			continue
		}

		util.OutboxPublishedTotal.WithLabelValues(msg.MessageType).Inc()
		w.logger.Info("Outbox message published",
			zap.String("outbox_id", msg.ID.String()),
			zap.String("message_type", msg.MessageType))
	}
}
