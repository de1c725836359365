package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vpnstore/internal/chat"
	"vpnstore/internal/metrics"
	"vpnstore/internal/repository"
)

// Tally is the outcome of a broadcast
type Tally struct {
	Total  int
	Sent   int
	Failed int
}

// BroadcastService sends one message to every registered user
type BroadcastService struct {
	users    repository.UserRepository
	notifier chat.Notifier
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewBroadcastService creates a broadcast service sending at most perSecond messages per second
func NewBroadcastService(users repository.UserRepository, notifier chat.Notifier, perSecond float64, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		users:    users,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:   logger,
	}
}

// Broadcast delivers msg to every user. A failed delivery is counted and
// the loop moves on; only cancellation of ctx stops it early.
func (s *BroadcastService) Broadcast(ctx context.Context, msg chat.Message) (Tally, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("list users: %w", err)
	}

	tally := Tally{Total: len(ids)}
	defer func() { metrics.AddBroadcast(tally.Sent, tally.Failed) }()

	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("Broadcast interrupted",
				zap.Int("sent", tally.Sent),
				zap.Int("failed", tally.Failed),
				zap.Error(err),
			)
			return tally, err
		}
		if err := s.notifier.Send(ctx, id, msg); err != nil {
			tally.Failed++
			s.logger.Debug("Broadcast delivery failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		tally.Sent++
	}

	s.logger.Info("Broadcast finished",
		zap.Int("total", tally.Total),
		zap.Int("sent", tally.Sent),
		zap.Int("failed", tally.Failed),
	)
	return tally, nil
}
