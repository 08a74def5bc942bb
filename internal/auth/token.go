package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brokerage-sim-go/internal/errs"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identifies the user a session token was issued to.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager issues, verifies and revokes signed session tokens.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// NewTokenManager creates a token manager signing with secret.
func NewTokenManager(secret []byte, ttl time.Duration, revoker Revoker) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenManager{secret: secret, ttl: ttl, revoker: revoker, now: time.Now}, nil
}

// Issue signs a new token for userID.
func (m *TokenManager) Issue(userID uint) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature, expiry and revocation state of a token.
// Every rejection is an AuthFailure.
func (m *TokenManager) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, errs.Wrap(errs.AuthFailure, err, "invalid or expired session")
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, errs.New(errs.AuthFailure, "invalid session")
	}

	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, errs.Wrap(errs.StorageUnavailable, err, "could not check session")
	}
	if revoked {
		return nil, errs.New(errs.AuthFailure, "session has been logged out")
	}
	return claims, nil
}

// Revoke invalidates a verified token until its expiry.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if err := m.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return errs.Wrap(errs.StorageUnavailable, err, "could not log out")
	}
	return nil
}
