// Package memory is an in-memory implementation of the storage contracts.
// It honours the same version-check semantics as the postgres store and is
// what the ledger and service tests run against.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
)

type resetRecord struct {
	token     string
	expiresAt time.Time
}

type Store struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	entries  []domain.JournalEntry
	byKey    map[string]int // idempotency key -> index into entries
	users    map[string]*domain.User
	resets   map[string]resetRecord
	cards    map[string]*domain.Card // keyed by card number
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		byKey:    make(map[string]int),
		users:    make(map[string]*domain.User),
		resets:   make(map[string]resetRecord),
		cards:    make(map[string]*domain.Card),
	}
}

// ---- LedgerStore ----

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Account
	for _, account := range s.accounts {
		if account.UserID == userID {
			out = append(out, *account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ApplyMutation(ctx context.Context, m storage.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLocked(m)
}

func (s *Store) ApplyTransfer(ctx context.Context, debit, credit storage.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate both sides before touching anything so a late conflict cannot
	// leave a half-applied transfer. Key uniqueness is part of the check: a
	// duplicate on the second leg must not commit the first.
	for _, m := range []storage.Mutation{debit, credit} {
		account, ok := s.accounts[m.AccountID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if account.Version != m.ExpectedVersion {
			return domain.ErrConcurrencyConflict
		}
		if m.Entry.IdempotencyKey != "" {
			if _, exists := s.byKey[m.Entry.IdempotencyKey]; exists {
				return domain.ErrDuplicateRequest
			}
		}
	}
	if err := s.applyLocked(debit); err != nil {
		return err
	}
	return s.applyLocked(credit)
}

func (s *Store) applyLocked(m storage.Mutation) error {
	account, ok := s.accounts[m.AccountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if account.Version != m.ExpectedVersion {
		return domain.ErrConcurrencyConflict
	}
	if m.Entry.IdempotencyKey != "" {
		if _, exists := s.byKey[m.Entry.IdempotencyKey]; exists {
			return domain.ErrDuplicateRequest
		}
	}

	account.Balance = m.NewBalance
	account.Version++
	account.UpdatedAt = m.Entry.CreatedAt

	s.entries = append(s.entries, m.Entry)
	if m.Entry.IdempotencyKey != "" {
		s.byKey[m.Entry.IdempotencyKey] = len(s.entries) - 1
	}
	return nil
}

func (s *Store) FindEntryByKey(ctx context.Context, key string) (*domain.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	cp := s.entries[idx]
	return &cp, nil
}

func (s *Store) ListEntries(ctx context.Context, q storage.EntryQuery) ([]domain.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.JournalEntry
	for _, e := range s.entries {
		if e.AccountID != q.AccountID {
			continue
		}
		if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.CreatedAt.After(q.To) {
			continue
		}
		if !q.Before.IsZero() {
			if e.CreatedAt.After(q.Before) {
				continue
			}
			if e.CreatedAt.Equal(q.Before) && e.ID >= q.BeforeID {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ---- UserStore ----

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.ErrUsernameTaken
		}
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) UpdateSecret(ctx context.Context, userID, secretHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.SecretHash = secretHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	s.resets[userID] = resetRecord{token: token, expiresAt: expiresAt}
	return nil
}

func (s *Store) GetResetToken(ctx context.Context, userID string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.resets[userID]
	if !ok {
		return "", time.Time{}, domain.ErrUserNotFound
	}
	return rec.token, rec.expiresAt, nil
}

func (s *Store) ClearResetToken(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.resets, userID)
	return nil
}

// ---- CardStore ----

func (s *Store) AddCard(card *domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *card
	s.cards[card.Number] = &cp
}

func (s *Store) GetCardByNumber(ctx context.Context, number string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[number]
	if !ok {
		return nil, domain.ErrInvalidCard
	}
	cp := *card
	return &cp, nil
}

var (
	_ storage.LedgerStore = (*Store)(nil)
	_ storage.UserStore   = (*Store)(nil)
	_ storage.CardStore   = (*Store)(nil)
)
