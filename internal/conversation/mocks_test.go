package conversation

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"vpnstore/internal/chat"
	"vpnstore/internal/config"
	"vpnstore/internal/domain"
	"vpnstore/internal/service"
	"vpnstore/internal/session"
	"vpnstore/internal/testutil"
)

const (
	testAdminID = int64(1000)
	testUserID  = int64(42)
)

var testSettings = service.StaticSettings(config.AppConfig{
	AdminIDs:   config.IDList{testAdminID},
	GroupID:    -100,
	MinDeposit: 10000,
})

type MockPurchases struct{ mock.Mock }

func (m *MockPurchases) Quote(ctx context.Context, userID, serverID int64, protocol domain.Protocol, days int) (domain.Quote, error) {
	args := m.Called(ctx, userID, serverID, protocol, days)
	return args.Get(0).(domain.Quote), args.Error(1)
}

func (m *MockPurchases) CheckUsername(ctx context.Context, action domain.Action, protocol domain.Protocol, username string) error {
	args := m.Called(ctx, action, protocol, username)
	return args.Error(0)
}

func (m *MockPurchases) Commit(ctx context.Context, o service.Order) (*service.Receipt, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Receipt), args.Error(1)
}

type MockServers struct{ mock.Mock }

func (m *MockServers) Get(ctx context.Context, id int64) (*domain.Server, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Server), args.Error(1)
}

func (m *MockServers) Add(ctx context.Context, draft domain.ServerDraft, maxAccounts int64) (*domain.Server, error) {
	args := m.Called(ctx, draft, maxAccounts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Server), args.Error(1)
}

func (m *MockServers) UpdateField(ctx context.Context, id int64, field domain.ServerField, value int64) error {
	args := m.Called(ctx, id, field, value)
	return args.Error(0)
}

type MockUsers struct{ mock.Mock }

func (m *MockUsers) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUsers) TopUp(ctx context.Context, adminID, userID, amount int64) (*domain.User, error) {
	args := m.Called(ctx, adminID, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockResellers struct{ mock.Mock }

func (m *MockResellers) Promote(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockResellers) SetLevel(ctx context.Context, userID int64, level domain.ResellerLevel) (*domain.User, error) {
	args := m.Called(ctx, userID, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockDeposits struct{ mock.Mock }

func (m *MockDeposits) MinDeposit() int64 {
	return m.Called().Get(0).(int64)
}

func (m *MockDeposits) ValidateAmount(amount int64) error {
	return m.Called(amount).Error(0)
}

func (m *MockDeposits) Create(ctx context.Context, userID, amount int64, method domain.DepositMethod) (*domain.Deposit, []byte, error) {
	args := m.Called(ctx, userID, amount, method)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	png, _ := args.Get(1).([]byte)
	return args.Get(0).(*domain.Deposit), png, args.Error(2)
}

func (m *MockDeposits) SubmitProof(ctx context.Context, userID int64, depositID, fileID string) error {
	return m.Called(ctx, userID, depositID, fileID).Error(0)
}

type MockBroadcaster struct{ mock.Mock }

func (m *MockBroadcaster) Broadcast(ctx context.Context, msg chat.Message) (service.Tally, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(service.Tally), args.Error(1)
}

type MockRestorer struct{ mock.Mock }

func (m *MockRestorer) RestoreFrom(ctx context.Context, r io.Reader) error {
	data, _ := io.ReadAll(r)
	return m.Called(ctx, string(data)).Error(0)
}

type MockFiles struct{ mock.Mock }

func (m *MockFiles) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// fixture wires an engine to fresh mocks
type fixture struct {
	sessions    *session.Store
	purchases   *MockPurchases
	servers     *MockServers
	users       *MockUsers
	resellers   *MockResellers
	deposits    *MockDeposits
	broadcaster *MockBroadcaster
	restorer    *MockRestorer
	files       *MockFiles
	notifier    *testutil.MockNotifier
	engine      *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	f := &fixture{
		sessions:    session.NewStore(),
		purchases:   new(MockPurchases),
		servers:     new(MockServers),
		users:       new(MockUsers),
		resellers:   new(MockResellers),
		deposits:    new(MockDeposits),
		broadcaster: new(MockBroadcaster),
		restorer:    new(MockRestorer),
		files:       new(MockFiles),
		notifier:    new(testutil.MockNotifier),
	}
	f.engine = New(f.sessions, Deps{
		Purchases:   f.purchases,
		Servers:     f.servers,
		Users:       f.users,
		Resellers:   f.resellers,
		Deposits:    f.deposits,
		Broadcaster: f.broadcaster,
		Restorer:    f.restorer,
		Files:       f.files,
		Notifier:    f.notifier,
		Settings:    testSettings,
	}, testutil.NewTestLogger(), opts...)
	f.engine.spawn = func(fn func()) { fn() }
	t.Cleanup(func() {
		for _, id := range []int64{testUserID, testAdminID} {
			f.engine.Cancel(id)
		}
	})
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.purchases.AssertExpectations(t)
	f.servers.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.resellers.AssertExpectations(t)
	f.deposits.AssertExpectations(t)
	f.broadcaster.AssertExpectations(t)
	f.restorer.AssertExpectations(t)
	f.files.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func (f *fixture) text(chatID int64, text string) Result {
	return f.engine.Handle(context.Background(), Input{Kind: InputText, ChatID: chatID, UserID: chatID, Text: text})
}

func (f *fixture) press(chatID int64, data string) Result {
	return f.engine.Handle(context.Background(), Input{Kind: InputCallback, ChatID: chatID, UserID: chatID, Text: data})
}

func (f *fixture) photo(chatID int64, fileID string) Result {
	return f.engine.Handle(context.Background(), Input{Kind: InputPhoto, ChatID: chatID, UserID: chatID, FileID: fileID})
}

func (f *fixture) session(chatID int64) (domain.Session, bool) {
	return f.sessions.Get(chatID)
}

// waitGone waits until the chat's session expired
func (f *fixture) waitGone(chatID int64, within time.Duration) bool {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if _, ok := f.sessions.Get(chatID); !ok {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
