// Package orchestrator coordinates a validated, authenticated request across
// the rate limiter, the ledger and the event bus. Handlers stay thin: every
// policy decision between "token is valid" and "balance changed" lives here.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/events"
	"github.com/crestbank/corebank/internal/journal"
	"github.com/crestbank/corebank/internal/ledger"
	"github.com/crestbank/corebank/internal/ratelimit"
	"github.com/crestbank/corebank/pkg/logger"
)

const defaultTimeout = 5 * time.Second

type ledgerAPI interface {
	Credit(ctx context.Context, req ledger.MutationRequest) (*domain.JournalEntry, error)
	Debit(ctx context.Context, req ledger.MutationRequest) (*domain.JournalEntry, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error)
	BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error)
}

type historyAPI interface {
	History(ctx context.Context, accountID string, q journal.Query) ([]domain.JournalEntry, error)
}

type limiterAPI interface {
	Check(ctx context.Context, key string, class ratelimit.Class) error
}

type accountReader interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// Orchestrator runs the full policy pipeline for account operations:
// throttle, authorize ownership, execute against the ledger under a deadline,
// then publish the outcome best effort.
type Orchestrator struct {
	ledger    ledgerAPI
	journal   historyAPI
	limiter   limiterAPI
	accounts  accountReader
	publisher events.Publisher
	timeout   time.Duration
}

func New(l ledgerAPI, j historyAPI, limiter limiterAPI, accounts accountReader, publisher events.Publisher, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Orchestrator{
		ledger:    l,
		journal:   j,
		limiter:   limiter,
		accounts:  accounts,
		publisher: publisher,
		timeout:   timeout,
	}
}

// MoveRequest is a deposit or withdrawal on one owned account.
type MoveRequest struct {
	Subject        string
	AccountID      string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// TransferRequest moves funds between two accounts; the source must belong to
// the subject, the destination only has to exist and be active.
type TransferRequest struct {
	Subject        string
	SourceID       string
	DestID         string
	Amount         decimal.Decimal
	IdempotencyKey string
}

func (o *Orchestrator) Deposit(ctx context.Context, req MoveRequest) (*domain.JournalEntry, error) {
	if err := o.admit(ctx, req.Subject, req.AccountID); err != nil {
		return nil, err
	}
	entry, err := o.execute(ctx, func(ctx context.Context) (*domain.JournalEntry, error) {
		return o.ledger.Credit(ctx, ledger.MutationRequest{
			AccountID:      req.AccountID,
			Amount:         req.Amount,
			Description:    req.Description,
			IdempotencyKey: req.IdempotencyKey,
		})
	})
	if err != nil {
		return nil, err
	}
	o.publishEntry(entry)
	return entry, nil
}

func (o *Orchestrator) Withdraw(ctx context.Context, req MoveRequest) (*domain.JournalEntry, error) {
	if err := o.admit(ctx, req.Subject, req.AccountID); err != nil {
		return nil, err
	}
	entry, err := o.execute(ctx, func(ctx context.Context) (*domain.JournalEntry, error) {
		return o.ledger.Debit(ctx, ledger.MutationRequest{
			AccountID:      req.AccountID,
			Amount:         req.Amount,
			Description:    req.Description,
			IdempotencyKey: req.IdempotencyKey,
		})
	})
	if err != nil {
		return nil, err
	}
	o.publishEntry(entry)
	return entry, nil
}

func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (*ledger.TransferResult, error) {
	if err := o.admit(ctx, req.Subject, req.SourceID); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	result, err := o.ledger.Transfer(opCtx, ledger.TransferRequest{
		SourceID:       req.SourceID,
		DestID:         req.DestID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, mapDeadline(err)
	}
	o.publishEntry(result.Out)
	o.publishEntry(result.In)
	return result, nil
}

// Balance returns the committed balance of an owned account. Reads are not
// throttled; only the ownership check applies.
func (o *Orchestrator) Balance(ctx context.Context, subject, accountID string) (decimal.Decimal, error) {
	if err := o.authorize(ctx, subject, accountID); err != nil {
		return decimal.Zero, err
	}
	return o.ledger.BalanceOf(ctx, accountID)
}

// History pages the journal of an owned account, newest first.
func (o *Orchestrator) History(ctx context.Context, subject, accountID string, q journal.Query) ([]domain.JournalEntry, error) {
	if err := o.authorize(ctx, subject, accountID); err != nil {
		return nil, err
	}
	return o.journal.History(ctx, accountID, q)
}

// admit is the write-path gate: throttle first so an attacker probing foreign
// accounts burns their own budget, then check ownership.
func (o *Orchestrator) admit(ctx context.Context, subject, accountID string) error {
	if err := o.limiter.Check(ctx, subject, ratelimit.ClassMutation); err != nil {
		return err
	}
	return o.authorize(ctx, subject, accountID)
}

func (o *Orchestrator) authorize(ctx context.Context, subject, accountID string) error {
	account, err := o.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.UserID != subject {
		return domain.ErrForbidden
	}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, op func(context.Context) (*domain.JournalEntry, error)) (*domain.JournalEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	entry, err := op(opCtx)
	if err != nil {
		return nil, mapDeadline(err)
	}
	return entry, nil
}

func mapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: operation timed out", domain.ErrStorageUnavailable)
	}
	return err
}

// publishEntry emits a transaction event without affecting the response; the
// mutation is already committed by the time this runs.
func (o *Orchestrator) publishEntry(entry *domain.JournalEntry) {
	if o.publisher == nil || entry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := o.publisher.Publish(ctx, events.TransactionEventsStream, events.TransactionCompleted, events.TransactionCompletedEvent{
		EntryID:      entry.ID,
		AccountID:    entry.AccountID,
		Kind:         string(entry.Kind),
		Amount:       entry.Amount.StringFixed(domain.MoneyScale),
		BalanceAfter: entry.BalanceAfter.StringFixed(domain.MoneyScale),
		CompletedAt:  entry.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		logger.Log.Warn("failed to publish transaction event",
			logger.String("entryId", entry.ID),
			logger.Error(err),
		)
	}
}
