// Package ledger owns account balances and the invariants on them. All
// mutations commit their journal entry in the same atomic unit as the balance
// change, and mutations on one account are strictly serialized.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
)

const defaultMaxRetries = 3

// Ledger serializes mutations per account with an in-process mutex map and
// relies on the store's version check to catch cross-process races; conflicted
// commits are retried a bounded number of times.
type Ledger struct {
	store      storage.LedgerStore
	maxRetries int

	muMap map[string]*sync.Mutex
	mapMu sync.Mutex

	now func() time.Time
}

func New(store storage.LedgerStore, maxRetries int) *Ledger {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Ledger{
		store:      store,
		maxRetries: maxRetries,
		muMap:      make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

// MutationRequest describes a single-account credit or debit.
type MutationRequest struct {
	AccountID      string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// TransferRequest moves Amount from SourceID to DestID all-or-nothing.
type TransferRequest struct {
	SourceID       string
	DestID         string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// TransferResult carries both sides of a committed transfer.
type TransferResult struct {
	Out *domain.JournalEntry
	In  *domain.JournalEntry
}

// accountLock returns the mutex serializing mutations on one account. The map
// holds one mutex per account ever touched by this process and is not pruned.
func (l *Ledger) accountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, ok := l.muMap[accountID]; !ok {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// Credit increases the account balance and appends a COMPLETED deposit entry.
func (l *Ledger) Credit(ctx context.Context, req MutationRequest) (*domain.JournalEntry, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	mu := l.accountLock(req.AccountID)
	mu.Lock()
	defer mu.Unlock()

	if entry, err := l.replay(ctx, req.IdempotencyKey, req.AccountID, domain.EntryDeposit, req.Amount); entry != nil || err != nil {
		return entry, err
	}

	description := req.Description
	if description == "" {
		description = "ATM Deposit"
	}
	return l.mutate(ctx, req.AccountID, func(account *domain.Account) (decimal.Decimal, *domain.JournalEntry, error) {
		newBalance := account.Balance.Add(req.Amount)
		return newBalance, l.newEntry(account.ID, domain.EntryDeposit, req.Amount, newBalance, description, req.IdempotencyKey), nil
	})
}

// Debit decreases the account balance, failing with ErrInsufficientFunds when
// the balance would go negative.
func (l *Ledger) Debit(ctx context.Context, req MutationRequest) (*domain.JournalEntry, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	mu := l.accountLock(req.AccountID)
	mu.Lock()
	defer mu.Unlock()

	if entry, err := l.replay(ctx, req.IdempotencyKey, req.AccountID, domain.EntryWithdrawal, req.Amount.Neg()); entry != nil || err != nil {
		return entry, err
	}

	description := req.Description
	if description == "" {
		description = "ATM Withdrawal"
	}
	return l.mutate(ctx, req.AccountID, func(account *domain.Account) (decimal.Decimal, *domain.JournalEntry, error) {
		if account.Balance.Cmp(req.Amount) < 0 {
			return decimal.Zero, nil, domain.ErrInsufficientFunds
		}
		newBalance := account.Balance.Sub(req.Amount)
		return newBalance, l.newEntry(account.ID, domain.EntryWithdrawal, req.Amount.Neg(), newBalance, description, req.IdempotencyKey), nil
	})
}

// mutate runs the version-checked commit loop for one account. The compute
// callback sees a freshly loaded account on every attempt.
func (l *Ledger) mutate(ctx context.Context, accountID string, compute func(*domain.Account) (decimal.Decimal, *domain.JournalEntry, error)) (*domain.JournalEntry, error) {
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		account, err := l.store.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if account.Status != domain.AccountStatusActive {
			return nil, domain.ErrAccountNotActive
		}

		newBalance, entry, err := compute(account)
		if err != nil {
			return nil, err
		}

		err = l.store.ApplyMutation(ctx, storage.Mutation{
			AccountID:       account.ID,
			ExpectedVersion: account.Version,
			NewBalance:      newBalance,
			Entry:           *entry,
		})
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			continue
		}
		if errors.Is(err, domain.ErrDuplicateRequest) && entry.IdempotencyKey != "" {
			prior, rerr := l.replay(ctx, entry.IdempotencyKey, entry.AccountID, entry.Kind, entry.Amount)
			if rerr != nil {
				return nil, rerr
			}
			if prior == nil {
				return nil, keyReuseError(entry.IdempotencyKey)
			}
			return prior, nil
		}
		if err != nil {
			return nil, err
		}
		return entry, nil
	}
	return nil, fmt.Errorf("%w: retries exhausted", domain.ErrConcurrencyConflict)
}

// Transfer debits the source and credits the destination in one atomic unit,
// appending TRANSFER_OUT and TRANSFER_IN entries. Locks are taken in account
// ID order so two opposing transfers cannot deadlock.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.SourceID == req.DestID {
		return nil, domain.ErrSameAccount
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	first, second := l.accountLock(req.SourceID), l.accountLock(req.DestID)
	if req.SourceID > req.DestID {
		first, second = second, first
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	if result, err := l.replayTransfer(ctx, req); result != nil || err != nil {
		return result, err
	}

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		source, err := l.store.GetAccount(ctx, req.SourceID)
		if err != nil {
			return nil, err
		}
		dest, err := l.store.GetAccount(ctx, req.DestID)
		if err != nil {
			return nil, err
		}
		if source.Status != domain.AccountStatusActive || dest.Status != domain.AccountStatusActive {
			return nil, domain.ErrAccountNotActive
		}
		if source.Balance.Cmp(req.Amount) < 0 {
			return nil, domain.ErrInsufficientFunds
		}

		sourceBalance := source.Balance.Sub(req.Amount)
		destBalance := dest.Balance.Add(req.Amount)

		out := l.newEntry(source.ID, domain.EntryTransferOut, req.Amount.Neg(), sourceBalance,
			fmt.Sprintf("Transfer to %s", dest.Number), req.IdempotencyKey)
		inKey := ""
		if req.IdempotencyKey != "" {
			inKey = req.IdempotencyKey + ":in"
		}
		in := l.newEntry(dest.ID, domain.EntryTransferIn, req.Amount, destBalance,
			fmt.Sprintf("Transfer from %s", source.Number), inKey)

		err = l.store.ApplyTransfer(ctx,
			storage.Mutation{AccountID: source.ID, ExpectedVersion: source.Version, NewBalance: sourceBalance, Entry: *out},
			storage.Mutation{AccountID: dest.ID, ExpectedVersion: dest.Version, NewBalance: destBalance, Entry: *in},
		)
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			continue
		}
		if errors.Is(err, domain.ErrDuplicateRequest) && req.IdempotencyKey != "" {
			result, rerr := l.replayTransfer(ctx, req)
			if rerr != nil {
				return nil, rerr
			}
			if result == nil {
				// The duplicate came from a leg key colliding with an
				// unrelated entry, not from a prior run of this transfer.
				return nil, keyReuseError(req.IdempotencyKey)
			}
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		return &TransferResult{Out: out, In: in}, nil
	}
	return nil, fmt.Errorf("%w: retries exhausted", domain.ErrConcurrencyConflict)
}

// BalanceOf returns the current committed balance.
func (l *Ledger) BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// replay returns the entry previously committed under key, if any, so retried
// requests observe the original outcome instead of applying twice. The found
// entry must match the requested operation; a key carried by some other entry
// is a conflict, never a replay.
func (l *Ledger) replay(ctx context.Context, key, accountID string, kind domain.EntryKind, amount decimal.Decimal) (*domain.JournalEntry, error) {
	if key == "" {
		return nil, nil
	}
	entry, err := l.store.FindEntryByKey(ctx, key)
	if err != nil || entry == nil {
		return entry, err
	}
	if entry.AccountID != accountID || entry.Kind != kind || !entry.Amount.Equal(amount) {
		return nil, keyReuseError(key)
	}
	return entry, nil
}

// replayTransfer returns both legs of a transfer previously committed under
// the request's key. Both legs must exist and match the request, otherwise the
// key belongs to a different operation and the caller gets a conflict.
func (l *Ledger) replayTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.IdempotencyKey == "" {
		return nil, nil
	}
	out, err := l.store.FindEntryByKey(ctx, req.IdempotencyKey)
	if err != nil || out == nil {
		return nil, err
	}
	if out.AccountID != req.SourceID || out.Kind != domain.EntryTransferOut || !out.Amount.Equal(req.Amount.Neg()) {
		return nil, keyReuseError(req.IdempotencyKey)
	}
	in, err := l.store.FindEntryByKey(ctx, req.IdempotencyKey+":in")
	if err != nil {
		return nil, err
	}
	if in == nil || in.AccountID != req.DestID || in.Kind != domain.EntryTransferIn || !in.Amount.Equal(req.Amount) {
		return nil, keyReuseError(req.IdempotencyKey)
	}
	return &TransferResult{Out: out, In: in}, nil
}

func keyReuseError(key string) error {
	return fmt.Errorf("%w: idempotency key %q already belongs to a different operation", domain.ErrDuplicateRequest, key)
}

func (l *Ledger) newEntry(accountID string, kind domain.EntryKind, amount, balanceAfter decimal.Decimal, description, key string) *domain.JournalEntry {
	return &domain.JournalEntry{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Kind:           kind,
		Amount:         amount,
		BalanceAfter:   balanceAfter,
		Description:    description,
		Status:         domain.EntryCompleted,
		IdempotencyKey: key,
		CreatedAt:      l.now().UTC(),
	}
}
