package store

import (
	"context"
	"database/sql"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/google/uuid"
)

// GetInboxByMessageID looks up an inbound message by its transport message
// id. Returns (nil, nil) when the id has never been seen.
func (s *PaymentsStore) GetInboxByMessageID(ctx context.Context, messageID string) (*models.InboxMessage, error) {
	var msg models.InboxMessage
	err := s.db.GetContext(ctx, &msg,
		"SELECT * FROM inbox_messages WHERE message_id = $1", messageID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// InsertInbox records the first sighting of a message id, before processing
func (s *PaymentsStore) InsertInbox(ctx context.Context, msg *models.InboxMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbox_messages (id, message_id, message_type, payload, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.MessageID, msg.MessageType, msg.Payload, msg.Status, msg.ReceivedAt)
	return err
}

// SetInboxStatus updates an inbox row's status, stamping processed_at when
// the row reaches PROCESSED.
func (s *PaymentsStore) SetInboxStatus(ctx context.Context, id uuid.UUID, status string) error {
	var err error
	if status == models.InboxStatusProcessed {
		_, err = s.db.ExecContext(ctx,
			"UPDATE inbox_messages SET status = $1, processed_at = NOW() WHERE id = $2", status, id)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE inbox_messages SET status = $1 WHERE id = $2", status, id)
	}
	return err
}
