package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order represents a customer order owned by the orders service
type Order struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Order statuses. NEW is initial, FINISHED and CANCELLED are terminal.
const (
	OrderStatusNew       = "NEW"
	OrderStatusFinished  = "FINISHED"
	OrderStatusCancelled = "CANCELLED"
)

// IsTerminalOrderStatus reports whether an order accepts no further transitions
func IsTerminalOrderStatus(status string) bool {
	return status == OrderStatusFinished || status == OrderStatusCancelled
}

// Account represents a user balance owned by the payments service.
// One account per user; the balance never goes below zero.
type Account struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only ledger entry. The (order_id, message_id)
// pair is unique and acts as the idempotency fence for payment application.
type Transaction struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	AccountID uuid.UUID       `db:"account_id" json:"account_id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	MessageID string          `db:"message_id" json:"message_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Type      string          `db:"type" json:"type"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Transaction types
const (
	TransactionTypeDebit  = "DEBIT"
	TransactionTypeCredit = "CREDIT"
)

// OutboxMessage is a to-be-published broker message persisted in the same
// transaction as the domain change it announces. Each service owns its own
// outbox table.
type OutboxMessage struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	MessageType string     `db:"message_type" json:"message_type"`
	Payload     string     `db:"payload" json:"payload"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	RetryCount  int        `db:"retry_count" json:"retry_count"`
}

// Outbox message statuses. FAILED is terminal after the retry ceiling.
const (
	OutboxStatusPending   = "PENDING"
	OutboxStatusPublished = "PUBLISHED"
	OutboxStatusFailed    = "FAILED"
)

// InboxMessage records an inbound broker message by its transport message id
// before processing, deduplicating redeliveries on the payments side.
type InboxMessage struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	MessageID   string     `db:"message_id" json:"message_id"`
	MessageType string     `db:"message_type" json:"message_type"`
	Payload     string     `db:"payload" json:"payload"`
	Status      string     `db:"status" json:"status"`
	ReceivedAt  time.Time  `db:"received_at" json:"received_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// Inbox message statuses. Only PROCESSED short-circuits redeliveries;
// a FAILED row is re-attempted on the next delivery.
const (
	InboxStatusPending    = "PENDING"
	InboxStatusProcessing = "PROCESSING"
	InboxStatusProcessed  = "PROCESSED"
	InboxStatusFailed     = "FAILED"
)
