// Package storage defines the durable-store contracts the ledger and auth
// layers depend on. Implementations must commit an account balance change and
// its journal entry in one atomic unit.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestbank/corebank/internal/domain"
)

// Mutation is one version-checked balance change plus its journal entry.
// The store applies it only if the account's current version equals
// ExpectedVersion; otherwise it returns domain.ErrConcurrencyConflict and
// nothing is written.
type Mutation struct {
	AccountID       string
	ExpectedVersion int64
	NewBalance      decimal.Decimal
	Entry           domain.JournalEntry
}

// EntryQuery pages journal entries in reverse chronological order.
// Before/BeforeID form the restartable paging key; From/To optionally bound
// the range by creation time.
type EntryQuery struct {
	AccountID string
	Limit     int
	Before    time.Time
	BeforeID  string
	From      time.Time
	To        time.Time
}

// LedgerStore is the transactional surface the ledger mutates through.
type LedgerStore interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error)

	// ApplyMutation commits the balance change and journal entry atomically.
	ApplyMutation(ctx context.Context, m Mutation) error

	// ApplyTransfer commits both sides of a transfer in one atomic unit:
	// either both balances and both entries land, or nothing does.
	ApplyTransfer(ctx context.Context, debit, credit Mutation) error

	// FindEntryByKey returns the journal entry previously recorded under an
	// idempotency key, or (nil, nil) when the key is unseen.
	FindEntryByKey(ctx context.Context, key string) (*domain.JournalEntry, error)

	ListEntries(ctx context.Context, q EntryQuery) ([]domain.JournalEntry, error)
}

// UserStore persists users and their credential records.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateSecret overwrites the stored credential hash.
	UpdateSecret(ctx context.Context, userID, secretHash string) error

	// SetResetToken records an outstanding password-reset token; ClearResetToken
	// removes it after use. GetResetToken returns the stored token and expiry.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	GetResetToken(ctx context.Context, userID string) (string, time.Time, error)
	ClearResetToken(ctx context.Context, userID string) error
}

// CardStore resolves card numbers for card validation.
type CardStore interface {
	GetCardByNumber(ctx context.Context, number string) (*domain.Card, error)
}
