package ledger

import (
	"context"
	"errors"

	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateUser registers a new account with the given password hash and opening cash.
func (s *Store) CreateUser(ctx context.Context, username, hash string, cash decimal.Decimal) (*models.User, error) {
	user := models.User{Username: username, Hash: hash, Cash: cash}

	err := s.db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errs.New(errs.DuplicateUsername, "username %q is already taken", username)
	}
	if err != nil {
		s.logger.Error("Failed to create user", zap.String("username", username), zap.Error(err))
		return nil, errs.Wrap(errs.StorageUnavailable, err, "could not create user")
	}

	s.logger.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", username))
	return &user, nil
}

// FindUserByUsername looks a user up for login.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("username = ?", username))
}

// FindUser looks a user up by id.
func (s *Store) FindUser(ctx context.Context, id uint) (*models.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) findUser(q *gorm.DB) (*models.User, error) {
	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.AuthFailure, "unknown user")
		}
		return nil, errs.Wrap(errs.StorageUnavailable, err, "could not read user")
	}
	return &user, nil
}
