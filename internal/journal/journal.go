// Package journal serves statement reads from the append-only audit trail.
// It never mutates; the ledger is the only writer.
package journal

import (
	"context"
	"time"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Query pages an account's history in reverse chronological order. Before and
// BeforeID together form the restartable paging key; From/To optionally bound
// the statement period.
type Query struct {
	Limit    int
	Before   time.Time
	BeforeID string
	From     time.Time
	To       time.Time
}

type Service struct {
	store storage.LedgerStore
}

func New(store storage.LedgerStore) *Service {
	return &Service{store: store}
}

// History returns up to Limit entries for the account, newest first.
func (s *Service) History(ctx context.Context, accountID string, q Query) ([]domain.JournalEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.store.ListEntries(ctx, storage.EntryQuery{
		AccountID: accountID,
		Limit:     limit,
		Before:    q.Before,
		BeforeID:  q.BeforeID,
		From:      q.From,
		To:        q.To,
	})
}
