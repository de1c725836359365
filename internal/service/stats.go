package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vpnstore/internal/repository"
)

// Stats is the admin dashboard summary
type Stats struct {
	Users           int
	Servers         int
	ActiveAccounts  int
	PendingDeposits int
	Sessions        int
}

// StatsService handles statistics and cleanup
type StatsService struct {
	store    repository.Store
	sessions func() int
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService creates a new stats service. sessions reports the
// number of conversations in progress.
func NewStatsService(store repository.Store, sessions func() int, logger *zap.Logger) *StatsService {
	return &StatsService{
		store:    store,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary collects the counters shown on the admin panel
func (s *StatsService) Summary(ctx context.Context) (Stats, error) {
	var st Stats
	var err error

	if st.Users, err = s.store.Users().CountUsers(ctx); err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	servers, err := s.store.Servers().ListServers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list servers: %w", err)
	}
	st.Servers = len(servers)
	if st.ActiveAccounts, err = s.store.Accounts().CountAccounts(ctx); err != nil {
		return Stats{}, fmt.Errorf("count accounts: %w", err)
	}
	if st.PendingDeposits, err = s.store.Deposits().CountPendingDeposits(ctx); err != nil {
		return Stats{}, fmt.Errorf("count deposits: %w", err)
	}
	if s.sessions != nil {
		st.Sessions = s.sessions()
	}
	return st, nil
}

// CleanupOldData expires pending deposits nobody paid within a day
func (s *StatsService) CleanupOldData(ctx context.Context) error {
	const retention = 24 * time.Hour

	s.logger.Info("Starting cleanup of stale deposits", zap.Duration("retention", retention))

	n, err := s.store.Deposits().ExpireStale(ctx, s.now().Add(-retention))
	if err != nil {
		s.logger.Error("Failed to expire stale deposits", zap.Error(err))
		return err
	}

	s.logger.Info("Cleanup completed successfully", zap.Int64("expired", n))
	return nil
}
