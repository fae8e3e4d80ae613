package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Message types carried in outbox rows and broker message properties
const (
	MessageTypeProcessPayment = "ProcessPayment"
	MessageTypePaymentStatus  = "PaymentStatus"
)

// Payment status tokens carried in PaymentStatusMessage
const (
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// ProcessPaymentMessage asks the payments service to debit an account for an
// order. MessageId is the idempotency key for the payment attempt and is
// generated once, when the order is created.
type ProcessPaymentMessage struct {
	OrderID   uuid.UUID       `json:"orderId"`
	UserID    uuid.UUID       `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	MessageID string          `json:"messageId"`
}

// PaymentStatusMessage reports the terminal outcome of a payment attempt back
// to the orders service. Reason is set only for FAILED outcomes.
type PaymentStatusMessage struct {
	OrderID   uuid.UUID `json:"orderId"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	MessageID string    `json:"messageId"`
}
