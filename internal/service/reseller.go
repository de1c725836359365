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

// ResellerService manages reseller roles and levels
type ResellerService struct {
	users    repository.UserRepository
	notifier chat.Notifier
	logger   *zap.Logger
}

// NewResellerService creates a new reseller service
func NewResellerService(users repository.UserRepository, notifier chat.Notifier, logger *zap.Logger) *ResellerService {
	return &ResellerService{users: users, notifier: notifier, logger: logger}
}

// Promote makes the user a reseller at the level their commission earns
func (s *ResellerService) Promote(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.IsReseller() {
		return user, fmt.Errorf("%w: user %d is already a reseller", domain.ErrInvalidInput, userID)
	}

	level := domain.LevelFor(user.TotalCommission)
	if err := s.users.SetRole(ctx, userID, domain.RoleReseller, level); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	user.Role = domain.RoleReseller
	user.Level = level

	s.logger.Info("User promoted to reseller", zap.Int64("user_id", userID), zap.String("level", string(level)))
	s.tell(ctx, userID, "🎉 "+format.Escape("You are now a reseller at level ")+format.Bold(string(level)))
	return user, nil
}

// SetLevel changes a reseller's level
func (s *ResellerService) SetLevel(ctx context.Context, userID int64, level domain.ResellerLevel) (*domain.User, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown level %q", domain.ErrInvalidInput, level)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsReseller() {
		return nil, fmt.Errorf("%w: user %d is not a reseller", domain.ErrInvalidInput, userID)
	}
	if err := s.users.SetLevel(ctx, userID, level); err != nil {
		return nil, fmt.Errorf("set level: %w", err)
	}
	user.Level = level

	s.logger.Info("Reseller level changed", zap.Int64("user_id", userID), zap.String("level", string(level)))
	s.tell(ctx, userID, format.Escape("Your reseller level is now ")+format.Bold(string(level)))
	return user, nil
}

func (s *ResellerService) tell(ctx context.Context, userID int64, text string) {
	if err := s.notifier.Send(ctx, userID, chat.Message{Text: text}); err != nil {
		s.logger.Warn("Failed to notify user", zap.Int64("user_id", userID), zap.Error(err))
	}
}
