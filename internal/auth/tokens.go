package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/crestbank/corebank/internal/domain"
)

const revocationKeyPrefix = "session:revoked:"

// Claims is the JWT payload for a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Session is the issued bearer credential handed back to clients.
type Session struct {
	Token     string
	ExpiresIn time.Duration
}

// Issuer creates and validates self-contained signed session tokens. Expiry is
// carried in the token itself; revocation uses a per-subject watermark in
// redis, and tokens issued at or before the watermark are rejected.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration, client *redis.Client) *Issuer {
	return &Issuer{
		secret: secret,
		ttl:    ttl,
		redis:  client,
		now:    time.Now,
	}
}

// Issue signs a fresh token for the subject.
func (i *Issuer) Issue(ctx context.Context, subject string) (*Session, error) {
	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{Token: signed, ExpiresIn: i.ttl}, nil
}

// Validate checks signature, expiry and revocation, returning the subject.
func (i *Issuer) Validate(ctx context.Context, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrExpiredToken
		}
		return "", domain.ErrMalformedToken
	}
	if !token.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return "", domain.ErrMalformedToken
	}

	revoked, err := i.revokedSince(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if !revoked.IsZero() && !claims.IssuedAt.Time.After(revoked) {
		return "", domain.ErrRevokedToken
	}
	return claims.Subject, nil
}

// Revoke invalidates every token issued to the subject so far. The watermark
// only needs to outlive the longest possible token lifetime.
func (i *Issuer) Revoke(ctx context.Context, subject string) error {
	key := revocationKeyPrefix + subject
	watermark := strconv.FormatInt(i.now().UTC().UnixNano(), 10)
	if err := i.redis.Set(ctx, key, watermark, i.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record revocation: %w", err)
	}
	return nil
}

func (i *Issuer) revokedSince(ctx context.Context, subject string) (time.Time, error) {
	val, err := i.redis.Get(ctx, revocationKeyPrefix+subject).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos).UTC(), nil
}
