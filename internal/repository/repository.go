package repository

import (
	"context"
	"time"

	"vpnstore/internal/domain"
)

// UserRepository defines user data operations
type UserRepository interface {
	EnsureUser(ctx context.Context, id int64, username string) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int, error)
	// Debit subtracts amount only when the balance covers it.
	Debit(ctx context.Context, id int64, amount int64) error
	Credit(ctx context.Context, id int64, amount int64) error
	SetRole(ctx context.Context, id int64, role domain.Role, level domain.ResellerLevel) error
	SetLevel(ctx context.Context, id int64, level domain.ResellerLevel) error
	// AddCommission adds to the cumulative commission and returns the new total.
	AddCommission(ctx context.Context, id int64, amount int64) (int64, error)
}

// ServerRepository defines server inventory operations
type ServerRepository interface {
	CreateServer(ctx context.Context, s *domain.Server) (int64, error)
	GetServer(ctx context.Context, id int64) (*domain.Server, error)
	ListServers(ctx context.Context) ([]domain.Server, error)
	UpdateServerField(ctx context.Context, id int64, field domain.ServerField, value int64) error
	IncrementAccounts(ctx context.Context, id int64, n int) error
	DeleteServer(ctx context.Context, id int64) error
}

// AccountRepository defines active account operations
type AccountRepository interface {
	AccountExists(ctx context.Context, username string, protocol domain.Protocol) (bool, error)
	GetAccount(ctx context.Context, username string, protocol domain.Protocol) (*domain.ActiveAccount, error)
	// SaveAccount inserts the account or, when it already exists, moves its expiry.
	SaveAccount(ctx context.Context, a *domain.ActiveAccount) error
	CountAccounts(ctx context.Context) (int, error)
}

// InvoiceRepository stores completed purchases
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, inv *domain.Invoice) error
}

// DepositRepository defines deposit operations
type DepositRepository interface {
	CreateDeposit(ctx context.Context, d *domain.Deposit) error
	GetDeposit(ctx context.Context, id string) (*domain.Deposit, error)
	GetDepositByReference(ctx context.Context, reference string) (*domain.Deposit, error)
	AttachProof(ctx context.Context, id string, fileID string) error
	// TransitionDeposit moves an open deposit to status. It reports false
	// when the deposit was no longer open.
	TransitionDeposit(ctx context.Context, id string, status domain.DepositStatus) (bool, error)
	CountPendingDeposits(ctx context.Context) (int, error)
	// ExpireStale expires pending deposits created before cutoff.
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// SaleRepository records reseller commissions
type SaleRepository interface {
	RecordSale(ctx context.Context, sale *domain.ResellerSale) error
}

// TrialRepository tracks trial accounts
type TrialRepository interface {
	LastTrial(ctx context.Context, userID int64, protocol domain.Protocol) (time.Time, bool, error)
	LogTrial(ctx context.Context, userID int64, protocol domain.Protocol, username string) error
}

// BalanceLogRepository stores balance audit entries
type BalanceLogRepository interface {
	LogBalance(ctx context.Context, entry *domain.BalanceLog) error
}

// Store groups the repositories and is the transaction boundary
type Store interface {
	Users() UserRepository
	Servers() ServerRepository
	Accounts() AccountRepository
	Invoices() InvoiceRepository
	Deposits() DepositRepository
	Sales() SaleRepository
	Trials() TrialRepository
	BalanceLogs() BalanceLogRepository

	// WithTx runs fn inside one database transaction. fn must use the
	// store it receives; returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
