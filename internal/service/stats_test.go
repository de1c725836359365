package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vpnstore/internal/domain"
	"vpnstore/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestStatsService_CleanupOldData(t *testing.T) {
	tests := []struct {
		name          string
		mockError     error
		expectedError bool
	}{
		{
			name:          "successful cleanup",
			mockError:     nil,
			expectedError: false,
		},
		{
			name:          "database error",
			mockError:     fmt.Errorf("db error"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
			store := testutil.NewMockStore()
			store.DepositRepo.On("ExpireStale", mock.Anything, now.Add(-24*time.Hour)).Return(int64(2), tt.mockError)

			logger := testutil.NewTestLogger()
			service := NewStatsService(store, nil, logger)
			service.now = func() time.Time { return now }

			err := service.CleanupOldData(context.Background())

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			store.AssertExpectations(t)
		})
	}
}

func TestStatsService_Summary(t *testing.T) {
	store := testutil.NewMockStore()
	store.UserRepo.On("CountUsers", mock.Anything).Return(12, nil)
	store.ServerRepo.On("ListServers", mock.Anything).Return([]domain.Server{{ID: 1}, {ID: 2}}, nil)
	store.AccountRepo.On("CountAccounts", mock.Anything).Return(30, nil)
	store.DepositRepo.On("CountPendingDeposits", mock.Anything).Return(4, nil)

	service := NewStatsService(store, func() int { return 3 }, testutil.NewTestLogger())

	st, err := service.Summary(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, Stats{Users: 12, Servers: 2, ActiveAccounts: 30, PendingDeposits: 4, Sessions: 3}, st)
	store.AssertExpectations(t)
}
