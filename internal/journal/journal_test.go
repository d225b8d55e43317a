package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
	"github.com/crestbank/corebank/internal/storage/memory"
)

func seedEntries(t *testing.T, store *memory.Store, accountID string, n int, start time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateAccount(ctx, &domain.Account{
		ID:     accountID,
		Status: domain.AccountStatusActive,
	}))

	balance := decimal.Zero
	for i := 0; i < n; i++ {
		amount := decimal.NewFromInt(1)
		balance = balance.Add(amount)
		require.NoError(t, store.ApplyMutation(ctx, storage.Mutation{
			AccountID:       accountID,
			ExpectedVersion: int64(i),
			NewBalance:      balance,
			Entry: domain.JournalEntry{
				ID:           fmt.Sprintf("txn-%03d", i),
				AccountID:    accountID,
				Kind:         domain.EntryDeposit,
				Amount:       amount,
				BalanceAfter: balance,
				Status:       domain.EntryCompleted,
				CreatedAt:    start.Add(time.Duration(i) * time.Minute),
			},
		}))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	store := memory.New()
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	seedEntries(t, store, "acc-1", 5, start)

	entries, err := New(store).History(context.Background(), "acc-1", Query{})
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i := 1; i < len(entries); i++ {
		assert.True(t, !entries[i].CreatedAt.After(entries[i-1].CreatedAt),
			"entries must be in reverse chronological order")
	}
	assert.Equal(t, "txn-004", entries[0].ID)
}

func TestHistoryDefaultAndMaxPageSize(t *testing.T) {
	store := memory.New()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(t, store, "acc-1", 150, start)
	svc := New(store)
	ctx := context.Background()

	entries, err := svc.History(ctx, "acc-1", Query{})
	require.NoError(t, err)
	assert.Len(t, entries, 20)

	entries, err = svc.History(ctx, "acc-1", Query{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, entries, 100)
}

func TestHistoryPagingIsGapless(t *testing.T) {
	store := memory.New()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(t, store, "acc-1", 25, start)
	svc := New(store)
	ctx := context.Background()

	var seen []string
	q := Query{Limit: 10}
	for {
		entries, err := svc.History(ctx, "acc-1", q)
		require.NoError(t, err)
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			seen = append(seen, e.ID)
		}
		last := entries[len(entries)-1]
		q.Before = last.CreatedAt
		q.BeforeID = last.ID
	}

	assert.Len(t, seen, 25)
	unique := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 25, "no entry may appear twice across pages")
}

func TestHistoryPeriodFilter(t *testing.T) {
	store := memory.New()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(t, store, "acc-1", 10, start)

	entries, err := New(store).History(context.Background(), "acc-1", Query{
		From: start.Add(2 * time.Minute),
		To:   start.Add(5 * time.Minute),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestHistoryOtherAccountInvisible(t *testing.T) {
	store := memory.New()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(t, store, "acc-1", 3, start)
	seedEntries(t, store, "acc-2", 3, start)

	entries, err := New(store).History(context.Background(), "acc-1", Query{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "acc-1", e.AccountID)
	}
}
