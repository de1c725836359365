package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpnstore/internal/domain"
	"vpnstore/internal/repository"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(Static(db)), mock
}

func TestUserRepo_GetUser(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	columns := []string{"id", "username", "saldo", "role", "reseller_level", "total_commission", "created_at"}

	tests := []struct {
		name        string
		userID      int64
		mockRows    *sqlmock.Rows
		mockError   error
		expected    *domain.User
		expectedErr error
	}{
		{
			name:     "reseller",
			userID:   123,
			mockRows: sqlmock.NewRows(columns).AddRow(123, "alice", 50000, "reseller", "gold", 60000, created),
			expected: &domain.User{
				ID: 123, Username: "alice", Saldo: 50000, Role: domain.RoleReseller,
				Level: domain.LevelGold, TotalCommission: 60000, CreatedAt: created,
			},
		},
		{
			name:        "user not exists",
			userID:      789,
			mockError:   sql.ErrNoRows,
			expectedErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			query := "SELECT id, username, saldo, role, reseller_level, total_commission, created_at FROM users WHERE id = \\?"
			if tt.mockError != nil {
				mock.ExpectQuery(query).WithArgs(tt.userID).WillReturnError(tt.mockError)
			} else {
				mock.ExpectQuery(query).WithArgs(tt.userID).WillReturnRows(tt.mockRows)
			}

			user, err := store.Users().GetUser(context.Background(), tt.userID)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, user)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_EnsureUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(int64(123), "alice").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Users().EnsureUser(context.Background(), 123, "alice")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Debit(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{name: "balance covers amount", affected: 1},
		{name: "balance too low", affected: 0, expectedErr: domain.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectExec("UPDATE users SET saldo = saldo - \\? WHERE id = \\? AND saldo >= \\?").
				WithArgs(int64(10000), int64(1), int64(10000)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := store.Users().Debit(context.Background(), 1, 10000)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_Credit_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE users SET saldo = saldo \\+ \\?").
		WithArgs(int64(5000), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Users().Credit(context.Background(), 9, 5000)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_AddCommission(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE users SET total_commission = total_commission \\+ \\?").
		WithArgs(int64(3000), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"total_commission"}).AddRow(51000))

	total, err := store.Users().AddCommission(context.Background(), 5, 3000)

	assert.NoError(t, err)
	assert.Equal(t, int64(51000), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ListUserIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))

	ids, err := store.Users().ListUserIDs(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE users SET saldo = saldo - \\?").
			WithArgs(int64(100), int64(1), int64(100)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO balance_logs").
			WithArgs(int64(1), int64(-100), domain.BalanceKindPurchase, "inv-1").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := store.WithTx(context.Background(), func(tx repository.Store) error {
			if err := tx.Users().Debit(context.Background(), 1, 100); err != nil {
				return err
			}
			return tx.BalanceLogs().LogBalance(context.Background(), &domain.BalanceLog{
				UserID: 1, Amount: -100, Kind: domain.BalanceKindPurchase, Reference: "inv-1",
			})
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		store, mock := newMockStore(t)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithTx(context.Background(), func(tx repository.Store) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
