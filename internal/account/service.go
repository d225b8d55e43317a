// Package account owns account lifecycle: opening and listing. Balance
// mutation is the ledger's job.
package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/events"
	"github.com/crestbank/corebank/internal/storage"
	"github.com/crestbank/corebank/pkg/logger"
)

type Service struct {
	store     storage.LedgerStore
	publisher events.Publisher
}

func NewService(store storage.LedgerStore, publisher events.Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Open creates an ACTIVE account with a zero balance for the user.
func (s *Service) Open(ctx context.Context, userID string, accountType domain.AccountType) (*domain.Account, error) {
	now := time.Now().UTC()
	account := &domain.Account{
		ID:        "acc-" + uuid.NewString(),
		UserID:    userID,
		Number:    domain.GenerateAccountNumber(),
		Type:      accountType,
		Status:    domain.AccountStatusActive,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.publish(events.AccountEventsStream, events.AccountOpened, events.AccountOpenedEvent{
		AccountID:     account.ID,
		AccountNumber: account.Number,
		UserID:        account.UserID,
		AccountType:   string(account.Type),
	})
	return account, nil
}

// List returns the caller's accounts, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.store.ListAccountsByUser(ctx, userID)
}

func (s *Service) publish(stream, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		logger.Log.Warn("failed to publish account event", logger.Error(err))
	}
}
