package auth

import (
	"context"
	"testing"
	"time"

	"brokerage-sim-go/internal/errs"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokens(t *testing.T) (*TokenManager, *time.Time) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	revoker := NewMemoryRevoker()
	revoker.now = func() time.Time { return now }

	m, err := NewTokenManager([]byte("test-secret"), time.Hour, revoker)
	require.NoError(t, err)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestNewTokenManager_Validation(t *testing.T) {
	_, err := NewTokenManager(nil, time.Hour, NewMemoryRevoker())
	assert.Error(t, err)

	_, err = NewTokenManager([]byte("s"), 0, NewMemoryRevoker())
	assert.Error(t, err)
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m, _ := setupTokens(t)

	token, issued, err := m.Issue(42)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenManager_Expired(t *testing.T) {
	m, now := setupTokens(t)

	token, _, err := m.Issue(1)
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	_, err = m.Verify(context.Background(), token)
	assert.ErrorIs(t, err, errs.ErrAuthFailure)
}

func TestTokenManager_Revoked(t *testing.T) {
	m, _ := setupTokens(t)
	ctx := context.Background()

	token, _, err := m.Issue(1)
	require.NoError(t, err)
	claims, err := m.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, claims))
	_, err = m.Verify(ctx, token)
	assert.ErrorIs(t, err, errs.ErrAuthFailure)

	// A fresh login is unaffected.
	other, _, err := m.Issue(1)
	require.NoError(t, err)
	_, err = m.Verify(ctx, other)
	assert.NoError(t, err)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	m, now := setupTokens(t)
	ctx := context.Background()

	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "abc",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = m.Verify(ctx, wrongSecret)
	assert.ErrorIs(t, err, errs.ErrAuthFailure)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = m.Verify(ctx, wrongAlg)
	assert.ErrorIs(t, err, errs.ErrAuthFailure)

	noExpiry := &Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ID: "abc"}}
	unbounded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExpiry).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = m.Verify(ctx, unbounded)
	assert.ErrorIs(t, err, errs.ErrAuthFailure)

	_, err = m.Verify(ctx, "not-a-token")
	assert.ErrorIs(t, err, errs.ErrAuthFailure)
}
