package middleware

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

const (
	limiterIdle  = 10 * time.Minute
	limiterSweep = 1024
)

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter throttles updates per user with a token bucket
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu    sync.Mutex
	users map[int64]*userLimiter
}

// NewLimiter allows perSecond updates per user with the given burst
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		now:   time.Now,
		users: make(map[int64]*userLimiter),
	}
}

// Allow reports whether userID may send another update now
func (l *Limiter) Allow(userID int64) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		if len(l.users) >= limiterSweep {
			l.sweep(now)
		}
		u = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.users[userID] = u
	}
	u.lastSeen = now
	return u.limiter.AllowN(now, 1)
}

// sweep drops limiters of users idle long enough to have a full bucket again
func (l *Limiter) sweep(now time.Time) {
	for id, u := range l.users {
		if now.Sub(u.lastSeen) > limiterIdle {
			delete(l.users, id)
		}
	}
}

// RateLimit drops updates from users above the limiter's rate. Limited
// callbacks are answered so the client stops spinning.
func RateLimit(l *Limiter, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || l.Allow(sender.ID) {
				return next(c)
			}

			logger.Warn("Rate limit exceeded", zap.Int64("user_id", sender.ID))
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: "Slow down a little."})
			}
			return nil
		}
	}
}
