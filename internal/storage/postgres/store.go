// Package postgres implements the storage contracts on PostgreSQL. A balance
// change and its journal entry always commit in one transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ---- LedgerStore ----

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, account_number, account_type, status, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.UserID, account.Number, string(account.Type),
		string(account.Status), account.Balance, account.Version,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, account_type, status, balance, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	var account domain.Account
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.UserID, &account.Number, &account.Type,
		&account.Status, &account.Balance, &account.Version,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, account_type, status, balance, version, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID, &account.UserID, &account.Number, &account.Type,
			&account.Status, &account.Balance, &account.Version,
			&account.CreatedAt, &account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) ApplyMutation(ctx context.Context, m storage.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.applyTx(ctx, tx, m); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) ApplyTransfer(ctx context.Context, debit, credit storage.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.applyTx(ctx, tx, debit); err != nil {
		return err
	}
	if err = s.applyTx(ctx, tx, credit); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// applyTx performs the version-checked balance update plus journal insert
// inside the caller's transaction.
func (s *Store) applyTx(ctx context.Context, tx *sql.Tx, m storage.Mutation) error {
	update := `
		UPDATE accounts
		SET balance = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4
	`
	result, err := tx.ExecContext(ctx, update, m.AccountID, m.NewBalance, m.Entry.CreatedAt, m.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		// The account was loaded moments ago, so a missed update means the
		// version moved underneath us.
		return domain.ErrConcurrencyConflict
	}

	insert := `
		INSERT INTO journal_entries (id, account_id, kind, amount, balance_after, description, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, insert,
		m.Entry.ID, m.Entry.AccountID, string(m.Entry.Kind),
		m.Entry.Amount, m.Entry.BalanceAfter, nullString(m.Entry.Description),
		string(m.Entry.Status), nullString(m.Entry.IdempotencyKey), m.Entry.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateRequest
		}
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

func (s *Store) FindEntryByKey(ctx context.Context, key string) (*domain.JournalEntry, error) {
	query := `
		SELECT id, account_id, kind, amount, balance_after, description, status, idempotency_key, created_at
		FROM journal_entries
		WHERE idempotency_key = $1
	`
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

func (s *Store) ListEntries(ctx context.Context, q storage.EntryQuery) ([]domain.JournalEntry, error) {
	query := `
		SELECT id, account_id, kind, amount, balance_after, description, status, idempotency_key, created_at
		FROM journal_entries
		WHERE account_id = $1
	`
	args := []any{q.AccountID}
	if !q.Before.IsZero() {
		args = append(args, q.Before, q.BeforeID)
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.JournalEntry, error) {
	var entry domain.JournalEntry
	var description, idempotencyKey sql.NullString
	err := row.Scan(
		&entry.ID, &entry.AccountID, &entry.Kind, &entry.Amount,
		&entry.BalanceAfter, &description, &entry.Status, &idempotencyKey,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan journal entry: %w", err)
	}
	entry.Description = description.String
	entry.IdempotencyKey = idempotencyKey.String
	return &entry, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ storage.LedgerStore = (*Store)(nil)
