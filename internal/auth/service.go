// Package auth registers users, checks their passwords and manages the signed
// tokens that identify them on later requests.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Users is the account storage the service needs.
type Users interface {
	CreateUser(ctx context.Context, username, hash string, cash decimal.Decimal) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	UserID    uint
	ExpiresAt time.Time
}

// Service handles registration, login and logout.
type Service struct {
	users       Users
	tokens      *TokenManager
	initialCash decimal.Decimal
	cost        int
	logger      *zap.Logger
}

// NewService creates an auth service. New accounts open with initialCash.
func NewService(users Users, tokens *TokenManager, initialCash decimal.Decimal, logger *zap.Logger) *Service {
	return &Service{
		users:       users,
		tokens:      tokens,
		initialCash: initialCash,
		cost:        bcrypt.DefaultCost,
		logger:      logger.Named("auth"),
	}
}

// Tokens returns the token manager used to verify sessions.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, username, password, confirmation string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.New(errs.InvalidInput, "must provide a username")
	}

	_, err := s.users.FindUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, errs.New(errs.DuplicateUsername, "username %q is already taken", username)
	case !errors.Is(err, errs.ErrAuthFailure):
		return nil, err
	}

	if password == "" || confirmation == "" {
		return nil, errs.New(errs.InvalidInput, "must provide a password and confirmation")
	}
	if password != confirmation {
		return nil, errs.New(errs.InvalidInput, "password doesn't match confirmation")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "password cannot be used")
	}

	// CreateUser still reports DuplicateUsername if a concurrent registration won.
	return s.users.CreateUser(ctx, username, string(hash), s.initialCash)
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.New(errs.InvalidInput, "must provide username")
	}
	if password == "" {
		return nil, errs.New(errs.InvalidInput, "must provide password")
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrAuthFailure) {
			return nil, errs.New(errs.AuthFailure, "invalid username and/or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)); err != nil {
		s.logger.Info("Failed login attempt", zap.String("username", username))
		return nil, errs.New(errs.AuthFailure, "invalid username and/or password")
	}

	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", zap.Uint("user_id", user.ID))
	return &Session{Token: token, UserID: user.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Logout revokes the session carried by ctx.
func (s *Service) Logout(ctx context.Context) error {
	claims, err := ClaimsFrom(ctx)
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.Uint("user_id", claims.UserID))
	return nil
}
