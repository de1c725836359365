package middleware

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Recover turns a handler panic into a logged error so one bad update
// cannot stop the poller
func Recover(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var userID int64
					if sender := c.Sender(); sender != nil {
						userID = sender.ID
					}
					logger.Error("Panic recovered in handler",
						zap.Any("panic", r),
						zap.Int64("user_id", userID),
						zap.ByteString("stack", debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}
