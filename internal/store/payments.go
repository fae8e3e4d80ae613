package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/google/uuid"
)

// PaymentsStore is the payments service's view of its database: accounts,
// the transaction ledger, the inbox and the payments-side outbox.
type PaymentsStore struct {
	*Store
}

// NewPaymentsStore connects to the payments database
func NewPaymentsStore(databaseURL string) (*PaymentsStore, error) {
	base, err := NewStore(databaseURL)
	if err != nil {
		return nil, err
	}
	return &PaymentsStore{Store: base}, nil
}

// NewPaymentsStoreWithBase wraps an existing Store, used by tests
func NewPaymentsStoreWithBase(base *Store) *PaymentsStore {
	return &PaymentsStore{Store: base}
}

// CreateAccount inserts a new account row
func (s *PaymentsStore) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.UserID, account.Balance, account.CreatedAt, account.UpdatedAt)
	return err
}

// GetAccountByUserID retrieves a user's account
func (s *PaymentsStore) GetAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := s.db.GetContext(ctx, &account, "SELECT * FROM accounts WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetTransactionByOrderAndMessageID looks up the idempotency fence. Returns
// (nil, nil) when no transaction with that (orderId, messageId) pair exists.
func (s *PaymentsStore) GetTransactionByOrderAndMessageID(ctx context.Context, orderID uuid.UUID, messageID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn,
		"SELECT * FROM transactions WHERE order_id = $1 AND message_id = $2", orderID, messageID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// DebitAccountTx debits an account under a row lock and records the debit
// transaction and the status outbox row in the same database transaction.
// Returns ErrAccountNotFound or ErrInsufficientBalance with nothing mutated.
func (s *PaymentsStore) DebitAccountTx(ctx context.Context, userID uuid.UUID, debit *models.Transaction, outbox *models.OutboxMessage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var account models.Account
	err = tx.GetContext(ctx, &account,
		"SELECT * FROM accounts WHERE user_id = $1 FOR UPDATE", userID)
	if err == sql.ErrNoRows {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}

	if account.Balance.LessThan(debit.Amount) {
		return ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2",
		debit.Amount, account.ID)
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}

	debit.AccountID = account.ID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, order_id, message_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		debit.ID, debit.AccountID, debit.OrderID, debit.MessageID, debit.Amount, debit.Type, debit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := insertOutboxTx(ctx, tx, outbox); err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}

	return tx.Commit()
}

// CreditAccountTx credits an account under the same row-locking discipline as
// a debit and records the credit transaction. Returns the updated account.
func (s *PaymentsStore) CreditAccountTx(ctx context.Context, userID uuid.UUID, credit *models.Transaction) (*models.Account, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var account models.Account
	err = tx.GetContext(ctx, &account,
		"SELECT * FROM accounts WHERE user_id = $1 FOR UPDATE", userID)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	err = tx.GetContext(ctx, &account.UpdatedAt,
		"UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at",
		credit.Amount, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}

	credit.AccountID = account.ID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, order_id, message_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		credit.ID, credit.AccountID, credit.OrderID, credit.MessageID, credit.Amount, credit.Type, credit.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Add(credit.Amount)
	return &account, nil
}
