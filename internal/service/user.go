package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
	"vpnstore/internal/repository"
)

// UserService handles user records and balance top-ups
type UserService struct {
	store    repository.Store
	notifier chat.Notifier
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, notifier chat.Notifier, logger *zap.Logger) *UserService {
	return &UserService{store: store, notifier: notifier, logger: logger}
}

// EnsureUser creates user record if doesn't exist
func (s *UserService) EnsureUser(ctx context.Context, id int64, username string) error {
	return s.store.Users().EnsureUser(ctx, id, username)
}

// GetUser returns the user
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.store.Users().GetUser(ctx, id)
}

// TopUp credits amount to the user's balance on behalf of an admin
func (s *UserService) TopUp(ctx context.Context, adminID, userID, amount int64) (*domain.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	var user *domain.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Credit(ctx, userID, amount); err != nil {
			return err
		}
		if err := tx.BalanceLogs().LogBalance(ctx, &domain.BalanceLog{
			UserID:    userID,
			Amount:    amount,
			Kind:      domain.BalanceKindTopUp,
			Reference: fmt.Sprintf("admin:%d", adminID),
		}); err != nil {
			return fmt.Errorf("log balance: %w", err)
		}
		var err error
		user, err = tx.Users().GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Balance topped up",
		zap.Int64("admin_id", adminID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
	)
	text := format.Escape("Your balance was topped up by "+format.Rupiah(amount)+". New balance: ") + format.Bold(format.Rupiah(user.Saldo))
	if err := s.notifier.Send(ctx, userID, chat.Message{Text: text}); err != nil {
		s.logger.Warn("Failed to notify user", zap.Int64("user_id", userID), zap.Error(err))
	}
	return user, nil
}
