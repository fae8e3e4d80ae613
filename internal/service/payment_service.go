package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/models"
	"github.com/AndreyBry/HSEGozon/internal/store"
	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Failure reasons carried in FAILED PaymentStatus messages
const (
	ReasonAccountNotFound     = "Account not found"
	ReasonInsufficientBalance = "Insufficient balance"
	ReasonInternalError       = "Internal error"
)

// PaymentService applies payment requests to accounts on the payments side
type PaymentService struct {
	store  *store.PaymentsStore
	logger *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store *store.PaymentsStore) *PaymentService {
	return &PaymentService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// ProcessPayment debits the user's account for an order exactly once.
//
// The (orderId, messageId) transaction uniqueness is the idempotency fence
// beneath the inbox gate: a duplicate attempt re-emits SUCCESS so a lost
// status reply is repaired, and never touches the account. Business-rule
// failures are terminal outcomes reported through a FAILED status message,
// not errors; only unexpected failures propagate so the transport requeues.
func (s *PaymentService) ProcessPayment(ctx context.Context, messageID string, orderID, userID uuid.UUID, amount decimal.Decimal) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessPayment")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	existing, err := s.store.GetTransactionByOrderAndMessageID(ctx, orderID, messageID)
	if err != nil {
		return fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		util.PaymentsDuplicateTotal.Inc()
		s.logger.Info("Payment already processed, re-emitting status",
			zap.String("order_id", orderID.String()),
			zap.String("message_id", messageID))
		return s.enqueueStatus(ctx, orderID, models.PaymentStatusSuccess, "")
	}

	now := time.Now().UTC()
	debit := &models.Transaction{
		ID:        uuid.New(),
		OrderID:   orderID,
		MessageID: messageID,
		Amount:    amount,
		Type:      models.TransactionTypeDebit,
		CreatedAt: now,
	}

	successOutbox, err := buildStatusOutbox(orderID, models.PaymentStatusSuccess, "")
	if err != nil {
		return err
	}

	err = s.store.DebitAccountTx(ctx, userID, debit, successOutbox)
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		util.PaymentsFailedTotal.WithLabelValues("account_not_found").Inc()
		s.logger.Warn("Account not found",
			zap.String("user_id", userID.String()),
			zap.String("order_id", orderID.String()))
		return s.enqueueStatus(ctx, orderID, models.PaymentStatusFailed, ReasonAccountNotFound)

	case errors.Is(err, store.ErrInsufficientBalance):
		util.PaymentsFailedTotal.WithLabelValues("insufficient_balance").Inc()
		s.logger.Warn("Insufficient balance",
			zap.String("user_id", userID.String()),
			zap.String("order_id", orderID.String()),
			zap.String("amount", amount.StringFixed(2)))
		return s.enqueueStatus(ctx, orderID, models.PaymentStatusFailed, ReasonInsufficientBalance)

	case err != nil:
		// The debit rolled back. The FAILED status below is best-effort: it
		// is not covered by the rolled-back unit, so a crash right here
		// loses it and the order stays NEW.
		util.PaymentsFailedTotal.WithLabelValues("internal_error").Inc()
		s.logger.Error("Error processing payment",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		if emitErr := s.enqueueStatus(ctx, orderID, models.PaymentStatusFailed, ReasonInternalError); emitErr != nil {
			s.logger.Error("Failed to enqueue failure status", zap.String("order_id", orderID.String()), zap.Error(emitErr))
		}
		return err
	}

	util.PaymentsProcessedTotal.Inc()
	s.logger.Info("Payment processed",
		zap.String("order_id", orderID.String()),
		zap.String("user_id", userID.String()),
		zap.String("amount", amount.StringFixed(2)))

	return nil
}

// enqueueStatus writes a PaymentStatus outbox row in its own transaction
func (s *PaymentService) enqueueStatus(ctx context.Context, orderID uuid.UUID, status, reason string) error {
	outbox, err := buildStatusOutbox(orderID, status, reason)
	if err != nil {
		return err
	}
	if err := s.store.EnqueueOutbox(ctx, outbox); err != nil {
		return fmt.Errorf("failed to enqueue payment status: %w", err)
	}
	return nil
}

// buildStatusOutbox builds a pending outbox row carrying a PaymentStatus
// message with a fresh message id.
func buildStatusOutbox(orderID uuid.UUID, status, reason string) (*models.OutboxMessage, error) {
	msg := models.PaymentStatusMessage{
		OrderID:   orderID,
		Status:    status,
		Reason:    reason,
		MessageID: uuid.New().String(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status message: %w", err)
	}

	return &models.OutboxMessage{
		ID:          uuid.New(),
		MessageType: models.MessageTypePaymentStatus,
		Payload:     string(payload),
		Status:      models.OutboxStatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
