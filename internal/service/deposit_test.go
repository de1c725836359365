package service

import (
	"context"
	"testing"
	"time"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDepositService(store *testutil.MockStore, notifier *testutil.MockNotifier) *DepositService {
	svc := NewDepositService(store, notifier, testSettings, testutil.NewTestLogger())
	svc.now = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "0b4f8c2e-1111-2222-3333-444455556666" }
	return svc
}

func TestDepositService_Create(t *testing.T) {
	tests := []struct {
		name        string
		amount      int64
		method      domain.DepositMethod
		expectedErr error
		wantQR      bool
	}{
		{name: "below minimum", amount: 9999, method: domain.MethodGateway, expectedErr: domain.ErrInvalidInput},
		{name: "gateway", amount: 10000, method: domain.MethodGateway},
		{name: "static qris renders code", amount: 50000, method: domain.MethodStaticQRIS, wantQR: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStore()
			if tt.expectedErr == nil {
				store.DepositRepo.On("CreateDeposit", mock.Anything, mock.MatchedBy(func(d *domain.Deposit) bool {
					return d.Amount == tt.amount && d.Status == domain.DepositPending && d.Reference == "DEP-0B4F8C2E1111"
				})).Return(nil)
			}
			svc := newDepositService(store, new(testutil.MockNotifier))

			d, png, err := svc.Create(context.Background(), 7, tt.amount, tt.method)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.method, d.Method)
			if tt.wantQR {
				require.NotEmpty(t, png)
				assert.Equal(t, []byte("\x89PNG"), png[:4])
			} else {
				assert.Empty(t, png)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestDepositService_Approve(t *testing.T) {
	open := func(status domain.DepositStatus) *domain.Deposit {
		return &domain.Deposit{ID: "dep-1", UserID: 7, Amount: 25000, Method: domain.MethodStaticQRIS, Status: status}
	}

	t.Run("credits open deposit once", func(t *testing.T) {
		store := testutil.NewMockStore()
		notifier := new(testutil.MockNotifier)
		store.DepositRepo.On("GetDeposit", mock.Anything, "dep-1").Return(open(domain.DepositAwaitingVerification), nil)
		store.DepositRepo.On("TransitionDeposit", mock.Anything, "dep-1", domain.DepositApproved).Return(true, nil)
		store.UserRepo.On("Credit", mock.Anything, int64(7), int64(25000)).Return(nil).Once()
		store.BalanceRepo.On("LogBalance", mock.Anything, &domain.BalanceLog{
			UserID: 7, Amount: 25000, Kind: domain.BalanceKindDeposit, Reference: "dep-1",
		}).Return(nil)
		notifier.On("Send", mock.Anything, int64(7), mock.Anything).Return(nil)

		d, err := newDepositService(store, notifier).Approve(context.Background(), 1000, "dep-1")

		require.NoError(t, err)
		assert.Equal(t, domain.DepositApproved, d.Status)
		store.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("settled deposit is not credited again", func(t *testing.T) {
		store := testutil.NewMockStore()
		notifier := new(testutil.MockNotifier)
		store.DepositRepo.On("GetDeposit", mock.Anything, "dep-1").Return(open(domain.DepositApproved), nil)
		store.DepositRepo.On("TransitionDeposit", mock.Anything, "dep-1", domain.DepositApproved).Return(false, nil)

		_, err := newDepositService(store, notifier).Approve(context.Background(), 1000, "dep-1")

		var settled *domain.DepositSettledError
		require.ErrorAs(t, err, &settled)
		assert.Equal(t, domain.DepositApproved, settled.Status)
		store.UserRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reject of rejected reports current status", func(t *testing.T) {
		store := testutil.NewMockStore()
		store.DepositRepo.On("GetDeposit", mock.Anything, "dep-1").Return(open(domain.DepositRejected), nil)
		store.DepositRepo.On("TransitionDeposit", mock.Anything, "dep-1", domain.DepositRejected).Return(false, nil)

		_, err := newDepositService(store, new(testutil.MockNotifier)).Reject(context.Background(), 1000, "dep-1")

		var settled *domain.DepositSettledError
		require.ErrorAs(t, err, &settled)
		assert.Equal(t, domain.DepositRejected, settled.Status)
	})

	t.Run("non admin is refused", func(t *testing.T) {
		store := testutil.NewMockStore()

		_, err := newDepositService(store, new(testutil.MockNotifier)).Approve(context.Background(), 7, "dep-1")

		assert.ErrorIs(t, err, domain.ErrForbidden)
		store.AssertExpectations(t)
	})
}

func TestDepositService_SubmitProof(t *testing.T) {
	store := testutil.NewMockStore()
	notifier := new(testutil.MockNotifier)
	store.DepositRepo.On("GetDeposit", mock.Anything, "dep-1").Return(&domain.Deposit{
		ID: "dep-1", UserID: 7, Amount: 25000, Method: domain.MethodStaticQRIS,
		Status: domain.DepositPending, Reference: "DEP-1",
	}, nil)
	store.DepositRepo.On("AttachProof", mock.Anything, "dep-1", "photo-1").Return(nil)
	notifier.On("Send", mock.Anything, int64(1000), mock.MatchedBy(func(m chat.Message) bool {
		return m.PhotoFileID == "photo-1" && len(m.Buttons) == 1 && m.Buttons[0][0].Data == "dep:approve:dep-1"
	})).Return(nil)

	err := newDepositService(store, notifier).SubmitProof(context.Background(), 7, "dep-1", "photo-1")

	require.NoError(t, err)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestDepositService_Settle(t *testing.T) {
	pending := func() *domain.Deposit {
		return &domain.Deposit{ID: "dep-1", UserID: 7, Amount: 25000, Method: domain.MethodGateway, Status: domain.DepositPending, Reference: "REF-1"}
	}

	t.Run("pending status is a no-op", func(t *testing.T) {
		store := testutil.NewMockStore()
		store.DepositRepo.On("GetDepositByReference", mock.Anything, "REF-1").Return(pending(), nil)

		d, err := newDepositService(store, new(testutil.MockNotifier)).Settle(context.Background(), Notification{Reference: "REF-1", Status: "pending"})

		require.NoError(t, err)
		assert.Equal(t, domain.DepositPending, d.Status)
		store.AssertExpectations(t)
	})

	t.Run("amount mismatch refused", func(t *testing.T) {
		store := testutil.NewMockStore()
		store.DepositRepo.On("GetDepositByReference", mock.Anything, "REF-1").Return(pending(), nil)

		_, err := newDepositService(store, new(testutil.MockNotifier)).Settle(context.Background(), Notification{Reference: "REF-1", Status: "paid", Amount: 100})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		store.DepositRepo.AssertNotCalled(t, "TransitionDeposit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expire", func(t *testing.T) {
		store := testutil.NewMockStore()
		notifier := new(testutil.MockNotifier)
		store.DepositRepo.On("GetDepositByReference", mock.Anything, "REF-1").Return(pending(), nil)
		store.DepositRepo.On("GetDeposit", mock.Anything, "dep-1").Return(pending(), nil)
		store.DepositRepo.On("TransitionDeposit", mock.Anything, "dep-1", domain.DepositExpired).Return(true, nil)
		notifier.On("Send", mock.Anything, int64(7), mock.Anything).Return(nil)

		d, err := newDepositService(store, notifier).Settle(context.Background(), Notification{Reference: "REF-1", Status: "expire"})

		require.NoError(t, err)
		assert.Equal(t, domain.DepositExpired, d.Status)
		store.UserRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGatewayStatus(t *testing.T) {
	tests := []struct {
		in       string
		expected domain.DepositStatus
		ok       bool
	}{
		{"settlement", domain.DepositApproved, true},
		{"PAID", domain.DepositApproved, true},
		{"expire", domain.DepositExpired, true},
		{"deny", domain.DepositRejected, true},
		{"pending", "", false},
		{"weird", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			status, ok := GatewayStatus(tt.in)
			assert.Equal(t, tt.expected, status)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
