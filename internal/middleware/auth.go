package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/service"
)

// UserRegistrar records users the first time they talk to the bot
type UserRegistrar interface {
	EnsureUser(ctx context.Context, id int64, username string) error
}

const (
	errorText     = "Something went wrong. Please try again later."
	forbiddenText = "This action is for admins only."
)

// EnsureUser creates the sender's user record before any handler runs
func EnsureUser(users UserRegistrar, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := users.EnsureUser(ctx, sender.ID, sender.Username); err != nil {
				logger.Error("Failed to ensure user exists in middleware",
					zap.Int64("user_id", sender.ID),
					zap.Error(err),
				)
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: errorText, ShowAlert: true})
				}
				return c.Send(errorText)
			}

			return next(c)
		}
	}
}

// AdminOnly lets only configured admins through
func AdminOnly(settings service.Settings, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || !settings.Current().IsAdmin(sender.ID) {
				var id int64
				if sender != nil {
					id = sender.ID
				}
				logger.Warn("Rejected non-admin", zap.Int64("user_id", id))
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: forbiddenText, ShowAlert: true})
				}
				return c.Send(forbiddenText)
			}
			return next(c)
		}
	}
}
