package auth

import (
	"context"

	"brokerage-sim-go/internal/errs"
)

// Key type for context values
type contextKey string

const (
	userIDKey contextKey = "userID"
	claimsKey contextKey = "claims"
)

// WithSession adds the authenticated session to the context.
func WithSession(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, userIDKey, claims.UserID)
}

// UserIDFrom extracts the authenticated user id from the context.
func UserIDFrom(ctx context.Context) (uint, error) {
	userID, ok := ctx.Value(userIDKey).(uint)
	if !ok || userID == 0 {
		return 0, errs.New(errs.AuthFailure, "not logged in")
	}
	return userID, nil
}

// ClaimsFrom extracts the session claims from the context.
func ClaimsFrom(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return nil, errs.New(errs.AuthFailure, "not logged in")
	}
	return claims, nil
}
