package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
)

// ---- UserStore ----

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, full_name, email, phone_number, secret_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.FullName, user.Email,
		nullString(user.PhoneNumber), user.SecretHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "username") {
				return domain.ErrUsernameTaken
			}
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, full_name, email, phone_number, secret_hash, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, column)

	var user domain.User
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.FullName, &user.Email,
		&phone, &user.SecretHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.PhoneNumber = phone.String
	return &user, nil
}

func (s *Store) UpdateSecret(ctx context.Context, userID, secretHash string) error {
	query := `UPDATE users SET secret_hash = $2, updated_at = NOW() WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, userID, secretHash)
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_token_expires = $3 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) GetResetToken(ctx context.Context, userID string) (string, time.Time, error) {
	query := `SELECT reset_token, reset_token_expires FROM users WHERE id = $1`
	var token sql.NullString
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&token, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !token.Valid) {
		return "", time.Time{}, domain.ErrUserNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to get reset token: %w", err)
	}
	return token.String, expiresAt.Time, nil
}

func (s *Store) ClearResetToken(ctx context.Context, userID string) error {
	query := `UPDATE users SET reset_token = NULL, reset_token_expires = NULL WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// ---- CardStore ----

func (s *Store) GetCardByNumber(ctx context.Context, number string) (*domain.Card, error) {
	query := `
		SELECT id, account_id, card_number, pin_hash, status, created_at
		FROM cards
		WHERE card_number = $1
	`
	var card domain.Card
	err := s.db.QueryRowContext(ctx, query, number).Scan(
		&card.ID, &card.AccountID, &card.Number, &card.PINHash,
		&card.Status, &card.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidCard
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

var (
	_ storage.UserStore = (*Store)(nil)
	_ storage.CardStore = (*Store)(nil)
)
