package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/provisioner"
	"vpnstore/internal/repository"
)

// MockStore is a repository.Store whose repositories are testify mocks.
// WithTx runs the callback against the same mocks; set TxErr to make the
// transaction fail after the callback succeeded.
type MockStore struct {
	UserRepo    *MockUserRepository
	ServerRepo  *MockServerRepository
	AccountRepo *MockAccountRepository
	InvoiceRepo *MockInvoiceRepository
	DepositRepo *MockDepositRepository
	SaleRepo    *MockSaleRepository
	TrialRepo   *MockTrialRepository
	BalanceRepo *MockBalanceLogRepository

	TxErr error
}

// NewMockStore creates a store with fresh mocks
func NewMockStore() *MockStore {
	return &MockStore{
		UserRepo:    new(MockUserRepository),
		ServerRepo:  new(MockServerRepository),
		AccountRepo: new(MockAccountRepository),
		InvoiceRepo: new(MockInvoiceRepository),
		DepositRepo: new(MockDepositRepository),
		SaleRepo:    new(MockSaleRepository),
		TrialRepo:   new(MockTrialRepository),
		BalanceRepo: new(MockBalanceLogRepository),
	}
}

func (m *MockStore) Users() repository.UserRepository             { return m.UserRepo }
func (m *MockStore) Servers() repository.ServerRepository         { return m.ServerRepo }
func (m *MockStore) Accounts() repository.AccountRepository       { return m.AccountRepo }
func (m *MockStore) Invoices() repository.InvoiceRepository       { return m.InvoiceRepo }
func (m *MockStore) Deposits() repository.DepositRepository       { return m.DepositRepo }
func (m *MockStore) Sales() repository.SaleRepository             { return m.SaleRepo }
func (m *MockStore) Trials() repository.TrialRepository           { return m.TrialRepo }
func (m *MockStore) BalanceLogs() repository.BalanceLogRepository { return m.BalanceRepo }

func (m *MockStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := fn(m); err != nil {
		return err
	}
	return m.TxErr
}

// AssertExpectations asserts every repository mock
func (m *MockStore) AssertExpectations(t mock.TestingT) {
	m.UserRepo.AssertExpectations(t)
	m.ServerRepo.AssertExpectations(t)
	m.AccountRepo.AssertExpectations(t)
	m.InvoiceRepo.AssertExpectations(t)
	m.DepositRepo.AssertExpectations(t)
	m.SaleRepo.AssertExpectations(t)
	m.TrialRepo.AssertExpectations(t)
	m.BalanceRepo.AssertExpectations(t)
}

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) EnsureUser(ctx context.Context, id int64, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

func (m *MockUserRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUserRepository) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) Debit(ctx context.Context, id int64, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockUserRepository) Credit(ctx context.Context, id int64, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockUserRepository) SetRole(ctx context.Context, id int64, role domain.Role, level domain.ResellerLevel) error {
	args := m.Called(ctx, id, role, level)
	return args.Error(0)
}

func (m *MockUserRepository) SetLevel(ctx context.Context, id int64, level domain.ResellerLevel) error {
	args := m.Called(ctx, id, level)
	return args.Error(0)
}

func (m *MockUserRepository) AddCommission(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

// MockServerRepository is a mock for ServerRepository
type MockServerRepository struct {
	mock.Mock
}

func (m *MockServerRepository) CreateServer(ctx context.Context, s *domain.Server) (int64, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockServerRepository) GetServer(ctx context.Context, id int64) (*domain.Server, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Server), args.Error(1)
}

func (m *MockServerRepository) ListServers(ctx context.Context) ([]domain.Server, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Server), args.Error(1)
}

func (m *MockServerRepository) UpdateServerField(ctx context.Context, id int64, field domain.ServerField, value int64) error {
	args := m.Called(ctx, id, field, value)
	return args.Error(0)
}

func (m *MockServerRepository) IncrementAccounts(ctx context.Context, id int64, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockServerRepository) DeleteServer(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAccountRepository is a mock for AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) AccountExists(ctx context.Context, username string, protocol domain.Protocol) (bool, error) {
	args := m.Called(ctx, username, protocol)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) GetAccount(ctx context.Context, username string, protocol domain.Protocol) (*domain.ActiveAccount, error) {
	args := m.Called(ctx, username, protocol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActiveAccount), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, a *domain.ActiveAccount) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAccountRepository) CountAccounts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockInvoiceRepository is a mock for InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

// MockDepositRepository is a mock for DepositRepository
type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDepositRepository) GetDeposit(ctx context.Context, id string) (*domain.Deposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deposit), args.Error(1)
}

func (m *MockDepositRepository) GetDepositByReference(ctx context.Context, reference string) (*domain.Deposit, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deposit), args.Error(1)
}

func (m *MockDepositRepository) AttachProof(ctx context.Context, id string, fileID string) error {
	args := m.Called(ctx, id, fileID)
	return args.Error(0)
}

func (m *MockDepositRepository) TransitionDeposit(ctx context.Context, id string, status domain.DepositStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockDepositRepository) CountPendingDeposits(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockDepositRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockSaleRepository is a mock for SaleRepository
type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) RecordSale(ctx context.Context, sale *domain.ResellerSale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

// MockTrialRepository is a mock for TrialRepository
type MockTrialRepository struct {
	mock.Mock
}

func (m *MockTrialRepository) LastTrial(ctx context.Context, userID int64, protocol domain.Protocol) (time.Time, bool, error) {
	args := m.Called(ctx, userID, protocol)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockTrialRepository) LogTrial(ctx context.Context, userID int64, protocol domain.Protocol, username string) error {
	args := m.Called(ctx, userID, protocol, username)
	return args.Error(0)
}

// MockBalanceLogRepository is a mock for BalanceLogRepository
type MockBalanceLogRepository struct {
	mock.Mock
}

func (m *MockBalanceLogRepository) LogBalance(ctx context.Context, entry *domain.BalanceLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockProvisioner is a mock for provisioner.ProtocolProvisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Create(ctx context.Context, req provisioner.Request) (*provisioner.Account, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioner.Account), args.Error(1)
}

func (m *MockProvisioner) Renew(ctx context.Context, req provisioner.Request) (*provisioner.Account, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioner.Account), args.Error(1)
}

func (m *MockProvisioner) Delete(ctx context.Context, server domain.Server, protocol domain.Protocol, username string) error {
	args := m.Called(ctx, server, protocol, username)
	return args.Error(0)
}

// MockNotifier is a mock for chat.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, chatID int64, msg chat.Message) error {
	args := m.Called(ctx, chatID, msg)
	return args.Error(0)
}
