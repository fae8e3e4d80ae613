package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions applied",
	}, []string{"status"})

	AccountsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accounts_created_total",
		Help: "Total number of accounts created",
	})

	AccountTopUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "account_topups_total",
		Help: "Total number of account top-ups",
	})

	PaymentsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Total number of payments debited successfully",
	})

	PaymentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of failed payment attempts",
	}, []string{"reason"})

	PaymentsDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_duplicate_total",
		Help: "Total number of payment messages skipped by the idempotency fence",
	})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment processing",
		Buckets: prometheus.DefBuckets,
	})

	MessagesPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_messages_published_total",
		Help: "Total number of messages published to the broker",
	}, []string{"exchange", "message_type"})

	OutboxPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_messages_published_total",
		Help: "Total number of outbox messages published",
	}, []string{"message_type"})

	OutboxFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_messages_failed_total",
		Help: "Total number of outbox messages marked failed after the retry ceiling",
	})

	InboxDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inbox_duplicate_messages_total",
		Help: "Total number of inbound messages deduplicated by the inbox",
	})

	InboxProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inbox_messages_processed_total",
		Help: "Total number of inbound messages processed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
