package service

import (
	"context"

	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/config"
)

// Settings exposes the live app configuration
type Settings interface {
	Current() *config.AppConfig
}

// StaticSettings serves a fixed configuration
type StaticSettings config.AppConfig

// Current implements Settings
func (s StaticSettings) Current() *config.AppConfig {
	cfg := config.AppConfig(s)
	return &cfg
}

// notifyGroup posts msg to the operational group, logging failures
func notifyGroup(ctx context.Context, n chat.Notifier, settings Settings, logger *zap.Logger, msg chat.Message) {
	cfg := settings.Current()
	if cfg == nil || cfg.GroupID == 0 {
		return
	}
	if err := n.Send(ctx, cfg.GroupID, msg); err != nil {
		logger.Warn("Failed to notify group", zap.Int64("group_id", cfg.GroupID), zap.Error(err))
	}
}

// notifyAdmins sends msg to every configured admin, logging failures
func notifyAdmins(ctx context.Context, n chat.Notifier, settings Settings, logger *zap.Logger, msg chat.Message) {
	cfg := settings.Current()
	if cfg == nil {
		return
	}
	for _, id := range cfg.AdminIDs {
		if err := n.Send(ctx, id, msg); err != nil {
			logger.Warn("Failed to notify admin", zap.Int64("admin_id", id), zap.Error(err))
		}
	}
}
