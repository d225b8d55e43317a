package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
)

const resetPurpose = "reset"

type resetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// ResetManager issues and redeems single-use password-reset tokens. The token
// is a purpose-tagged JWT additionally recorded against the user, so a token
// is valid only while it is the outstanding one and only once.
type ResetManager struct {
	users    storage.UserStore
	verifier *Verifier
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewResetManager(users storage.UserStore, verifier *Verifier, secret []byte, ttl time.Duration) *ResetManager {
	return &ResetManager{
		users:    users,
		verifier: verifier,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Request creates a reset token for the account registered under email.
// Delivery is out of band; the caller decides how to hand it to the user.
func (m *ResetManager) Request(ctx context.Context, email string) (string, error) {
	user, err := m.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := resetClaims{
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	if err := m.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// Confirm redeems a reset token and installs the new secret, revoking all
// existing sessions for the identity.
func (m *ResetManager) Confirm(ctx context.Context, token, newSecret string) error {
	claims := &resetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ErrExpiredToken
		}
		return domain.ErrMalformedToken
	}
	if !parsed.Valid || claims.Purpose != resetPurpose || claims.Subject == "" {
		return domain.ErrMalformedToken
	}

	stored, expiresAt, err := m.users.GetResetToken(ctx, claims.Subject)
	if err != nil {
		return domain.ErrMalformedToken
	}
	if stored != token {
		return domain.ErrRevokedToken
	}
	if m.now().UTC().After(expiresAt) {
		return domain.ErrExpiredToken
	}

	if err := m.verifier.SetSecret(ctx, claims.Subject, newSecret); err != nil {
		return err
	}
	return m.users.ClearResetToken(ctx, claims.Subject)
}
