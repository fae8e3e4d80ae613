package store

import (
	"context"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// insertOutboxTx writes an outbox row inside an open transaction. The outbox
// pattern depends on this running in the same transaction as the domain
// change the message announces.
func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, msg *models.OutboxMessage) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (id, message_type, payload, status, created_at, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.MessageType, msg.Payload, msg.Status, msg.CreatedAt, msg.RetryCount)
	return err
}

// EnqueueOutbox writes an outbox row in its own transaction. Used only for
// the best-effort FAILED status emitted after a rolled-back payment unit;
// everything else goes through insertOutboxTx.
func (s *Store) EnqueueOutbox(ctx context.Context, msg *models.OutboxMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox_messages (id, message_type, payload, status, created_at, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.MessageType, msg.Payload, msg.Status, msg.CreatedAt, msg.RetryCount)
	return err
}

// GetPendingOutbox fetches up to limit oldest pending rows, FIFO by creation
func (s *Store) GetPendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	var messages []models.OutboxMessage
	err := s.db.SelectContext(ctx, &messages, `
		SELECT * FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		models.OutboxStatusPending, limit)
	return messages, err
}

// MarkOutboxPublished marks a row published and stamps published_at
func (s *Store) MarkOutboxPublished(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $1, published_at = NOW()
		WHERE id = $2`,
		models.OutboxStatusPublished, id)
	return err
}

// MarkOutboxRetry increments the retry counter and flips the row to FAILED
// once the ceiling is reached. Reports whether the row is now dead.
func (s *Store) MarkOutboxRetry(ctx context.Context, id uuid.UUID, maxRetries int) (bool, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `
		UPDATE outbox_messages
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $1
		RETURNING status`,
		id, maxRetries, models.OutboxStatusFailed)
	if err != nil {
		return false, err
	}
	return status == models.OutboxStatusFailed, nil
}
