package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/google/uuid"
)

// OrdersStore is the orders service's view of its database: orders plus the
// orders-side outbox.
type OrdersStore struct {
	*Store
}

// NewOrdersStore connects to the orders database
func NewOrdersStore(databaseURL string) (*OrdersStore, error) {
	base, err := NewStore(databaseURL)
	if err != nil {
		return nil, err
	}
	return &OrdersStore{Store: base}, nil
}

// NewOrdersStoreWithBase wraps an existing Store, used by tests
func NewOrdersStoreWithBase(base *Store) *OrdersStore {
	return &OrdersStore{Store: base}
}

// CreateOrderWithOutbox persists the order and its payment-request outbox row
// in one transaction: either both rows become visible or neither does.
func (s *OrdersStore) CreateOrderWithOutbox(ctx context.Context, order *models.Order, outbox *models.OutboxMessage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, amount, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID, order.UserID, order.Amount, order.Description, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := insertOutboxTx(ctx, tx, outbox); err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by id
func (s *OrdersStore) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves a user's orders, newest first
func (s *OrdersStore) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// UpdateOrderStatus applies a status transition and stamps updated_at
func (s *OrdersStore) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}
