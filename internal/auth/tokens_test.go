package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/corebank/internal/domain"
)

func newTestIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewIssuer([]byte("test-signing-secret"), ttl, client)
}

func TestIssueAndValidate(t *testing.T) {
	issuer := newTestIssuer(t, 30*time.Minute)
	ctx := context.Background()

	session, err := issuer.Issue(ctx, "usr-123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, 30*time.Minute, session.ExpiresIn)

	subject, err := issuer.Validate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "usr-123", subject)
}

func TestValidateExpiredToken(t *testing.T) {
	issuer := newTestIssuer(t, 30*time.Minute)
	ctx := context.Background()

	issued := time.Now().Add(-2 * time.Hour)
	issuer.now = func() time.Time { return issued }
	session, err := issuer.Issue(ctx, "usr-123")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestValidateMalformedToken(t *testing.T) {
	issuer := newTestIssuer(t, 30*time.Minute)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "aaa.bbb.ccc"} {
		_, err := issuer.Validate(ctx, token)
		assert.ErrorIs(t, err, domain.ErrMalformedToken)
	}
}

func TestValidateRejectsWrongSignature(t *testing.T) {
	issuer := newTestIssuer(t, 30*time.Minute)
	other := newTestIssuer(t, 30*time.Minute)
	other.secret = []byte("a-different-secret")
	ctx := context.Background()

	session, err := other.Issue(ctx, "usr-123")
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}

func TestRevokeInvalidatesEarlierTokens(t *testing.T) {
	issuer := newTestIssuer(t, 30*time.Minute)
	ctx := context.Background()

	base := time.Now()
	issuer.now = func() time.Time { return base }
	session, err := issuer.Issue(ctx, "usr-123")
	require.NoError(t, err)

	issuer.now = func() time.Time { return base.Add(2 * time.Second) }
	require.NoError(t, issuer.Revoke(ctx, "usr-123"))

	_, err = issuer.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrRevokedToken)

	// A token issued after the revocation is accepted again.
	issuer.now = func() time.Time { return base.Add(5 * time.Second) }
	fresh, err := issuer.Issue(ctx, "usr-123")
	require.NoError(t, err)
	subject, err := issuer.Validate(ctx, fresh.Token)
	require.NoError(t, err)
	assert.Equal(t, "usr-123", subject)
}

func TestRevokeIsScopedToSubject(t *testing.T) {
	issuer := newTestIssuer(t, 30*time.Minute)
	ctx := context.Background()

	base := time.Now()
	issuer.now = func() time.Time { return base }
	alice, err := issuer.Issue(ctx, "usr-alice")
	require.NoError(t, err)
	bob, err := issuer.Issue(ctx, "usr-bob")
	require.NoError(t, err)

	issuer.now = func() time.Time { return base.Add(2 * time.Second) }
	require.NoError(t, issuer.Revoke(ctx, "usr-alice"))

	_, err = issuer.Validate(ctx, alice.Token)
	assert.ErrorIs(t, err, domain.ErrRevokedToken)

	subject, err := issuer.Validate(ctx, bob.Token)
	require.NoError(t, err)
	assert.Equal(t, "usr-bob", subject)
}
