package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/models"
	"github.com/AndreyBry/HSEGozon/internal/store"
	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountService manages user accounts on the payments side
type AccountService struct {
	store  *store.PaymentsStore
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(store *store.PaymentsStore) *AccountService {
	return &AccountService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateAccount creates a zero-balance account for a user. Idempotent:
// re-creating an existing user's account returns the existing one unchanged.
func (s *AccountService) CreateAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	existing, err := s.store.GetAccountByUserID(ctx, userID)
	if err == nil {
		s.logger.Info("Account already exists", zap.String("user_id", userID.String()))
		return existing, nil
	}
	if err != store.ErrAccountNotFound {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	util.AccountsCreatedTotal.Inc()
	s.logger.Info("Account created", zap.String("user_id", userID.String()), zap.String("account_id", account.ID.String()))
	return account, nil
}

// TopUpAccount credits a user's account under the same row-locking
// discipline as a debit. The credit transaction carries a fresh message id
// and the zero UUID as its order sentinel, since no order is involved.
func (s *AccountService) TopUpAccount(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Account, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	credit := &models.Transaction{
		ID:        uuid.New(),
		OrderID:   uuid.Nil,
		MessageID: uuid.New().String(),
		Amount:    amount,
		Type:      models.TransactionTypeCredit,
		CreatedAt: time.Now().UTC(),
	}

	account, err := s.store.CreditAccountTx(ctx, userID, credit)
	if err != nil {
		return nil, err
	}

	util.AccountTopUpsTotal.Inc()
	s.logger.Info("Account topped up",
		zap.String("user_id", userID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", account.Balance.StringFixed(2)))

	return account, nil
}

// GetAccount retrieves a user's account
func (s *AccountService) GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return s.store.GetAccountByUserID(ctx, userID)
}
