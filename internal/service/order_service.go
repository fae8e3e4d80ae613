package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/models"
	"github.com/AndreyBry/HSEGozon/internal/redisclient"
	"github.com/AndreyBry/HSEGozon/internal/store"
	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Validation errors, rejected synchronously with no state mutated
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrMissingDescription = errors.New("description must not be empty")
)

// OrderService handles order business logic for the orders service
type OrderService struct {
	store  *store.OrdersStore
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewOrderService creates a new order service. cache may be nil.
func NewOrderService(store *store.OrdersStore, cache *redisclient.Client) *OrderService {
	return &OrderService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// CreateOrder persists a NEW order together with its ProcessPayment outbox
// row in one atomic unit. The payment-attempt idempotency key is generated
// here, once, and travels with the message from then on.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		return nil, ErrMissingDescription
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Description: description,
		Status:      models.OrderStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	paymentMsg := models.ProcessPaymentMessage{
		OrderID:   order.ID,
		UserID:    userID,
		Amount:    amount,
		MessageID: uuid.New().String(),
	}
	payload, err := json.Marshal(paymentMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment message: %w", err)
	}

	outbox := &models.OutboxMessage{
		ID:          uuid.New(),
		MessageType: models.MessageTypeProcessPayment,
		Payload:     string(payload),
		Status:      models.OutboxStatusPending,
		CreatedAt:   now,
	}

	if err := s.store.CreateOrderWithOutbox(ctx, order, outbox); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created and payment message queued",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("amount", amount.StringFixed(2)))

	return order, nil
}

// GetOrder retrieves a single order, serving from the cache when possible
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.cache != nil {
		if order, err := s.cache.GetOrder(ctx, orderID); err == nil && order != nil {
			return order, nil
		}
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetOrder(ctx, order); err != nil {
			s.logger.Warn("Failed to cache order", zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}

	return order, nil
}

// GetOrdersForUser retrieves a user's orders, newest first
func (s *OrderService) GetOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// UpdateOrderStatus applies a payment outcome to an order. Unknown tokens and
// missing orders are no-ops: the status stream is at-least-once and may carry
// duplicates or arrive after the order has already settled.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		s.logger.Warn("Order not found for status update, skipping",
			zap.String("order_id", orderID.String()),
			zap.String("status", rawStatus))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	newStatus := mapPaymentStatus(rawStatus, order.Status)
	if newStatus == order.Status {
		return nil
	}

	// A terminal order receiving a different terminal status is applied as
	// an overwrite, but loudly: it means the payments side reported two
	// conflicting outcomes for one order.
	if models.IsTerminalOrderStatus(order.Status) {
		s.logger.Warn("Overwriting terminal order status",
			zap.String("order_id", orderID.String()),
			zap.String("from", order.Status),
			zap.String("to", newStatus))
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
			s.logger.Warn("Failed to invalidate cached order", zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(newStatus).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", newStatus))

	return nil
}

// mapPaymentStatus translates a payment outcome token into an order status.
// Anything unrecognized maps to the current status, which callers treat as a
// no-op.
func mapPaymentStatus(rawStatus, current string) string {
	switch strings.ToUpper(rawStatus) {
	case models.PaymentStatusSuccess:
		return models.OrderStatusFinished
	case models.PaymentStatusFailed:
		return models.OrderStatusCancelled
	default:
		return current
	}
}
