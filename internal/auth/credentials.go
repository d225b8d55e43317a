// Package auth covers credential verification, session tokens and the
// password-reset lifecycle. Plaintext secrets never leave this package and are
// never logged or stored.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/storage"
)

// HashSecret hashes a PIN/password with bcrypt.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret reports whether secret matches hash. bcrypt's comparison is
// constant-time over the digest.
func CheckSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// Verifier checks presented credentials against stored hashes and owns
// credential changes. Changing a secret revokes all sessions for the identity
// under a distributed lock, so the overwrite and the revocation act as one
// critical section across instances.
type Verifier struct {
	users  storage.UserStore
	issuer *Issuer
	locker *redsync.Redsync
}

func NewVerifier(users storage.UserStore, issuer *Issuer, locker *redsync.Redsync) *Verifier {
	return &Verifier{users: users, issuer: issuer, locker: locker}
}

// Verify returns the matching user when the presented secret is correct, and
// a uniform ErrUnauthorized otherwise so callers cannot distinguish unknown
// identities from wrong secrets.
func (v *Verifier) Verify(ctx context.Context, username, secret string) (*domain.User, error) {
	user, err := v.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !CheckSecret(secret, user.SecretHash) {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

// SetSecret overwrites the credential hash and revokes every outstanding
// session for the identity.
func (v *Verifier) SetSecret(ctx context.Context, userID, newSecret string) error {
	unlock, err := v.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	hash, err := HashSecret(newSecret)
	if err != nil {
		return fmt.Errorf("failed to hash secret: %w", err)
	}
	if err := v.users.UpdateSecret(ctx, userID, hash); err != nil {
		return err
	}
	return v.issuer.Revoke(ctx, userID)
}

func (v *Verifier) lock(ctx context.Context, userID string) (func(), error) {
	if v.locker == nil {
		return func() {}, nil
	}
	mutex := v.locker.NewMutex("lock:credential:"+userID,
		redsync.WithExpiry(8*time.Second),
		redsync.WithTries(3),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: credential lock: %v", domain.ErrStorageUnavailable, err)
	}
	return func() { _, _ = mutex.UnlockContext(ctx) }, nil
}
