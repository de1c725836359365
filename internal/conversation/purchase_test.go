package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vpnstore/internal/domain"
	"vpnstore/internal/service"
	"vpnstore/internal/testutil"
)

func beginPurchase(t *testing.T, f *fixture, action domain.Action, protocol domain.Protocol) {
	t.Helper()
	f.servers.On("Get", mock.Anything, int64(5)).Return(testutil.NewTestServer(5, 300), nil).Once()
	replies, err := f.engine.BeginPurchase(context.Background(), testUserID, action, protocol, 5)
	require.NoError(t, err)
	require.Len(t, replies, 1)
}

func TestPurchase_SSHCreateHappyPath(t *testing.T) {
	f := newFixture(t)
	beginPurchase(t, f, domain.ActionCreate, domain.ProtocolSSH)

	f.purchases.On("CheckUsername", mock.Anything, domain.ActionCreate, domain.ProtocolSSH, "bob").Return(nil)
	res := f.text(testUserID, " bob ")
	require.True(t, res.Handled)
	sess, _ := f.session(testUserID)
	assert.Equal(t, domain.PhasePassword, sess.Phase)
	assert.Equal(t, "bob", sess.Username)

	res = f.text(testUserID, "secret1")
	require.True(t, res.Handled)
	sess, _ = f.session(testUserID)
	assert.Equal(t, domain.PhaseDuration, sess.Phase)
	require.Len(t, res.Replies, 1)
	assert.NotEmpty(t, res.Replies[0].Buttons)

	quote := domain.Quote{BasePrice: 300, Days: 30, UnitPrice: 300, Total: 9000}
	f.purchases.On("Quote", mock.Anything, testUserID, int64(5), domain.ProtocolSSH, 30).Return(quote, nil)
	f.users.On("GetUser", mock.Anything, testUserID).Return(testutil.NewTestUser(testUserID, 9000), nil)
	res = f.press(testUserID, "dur:30")
	require.True(t, res.Handled)
	assert.True(t, res.Replies[0].Edit)
	sess, _ = f.session(testUserID)
	assert.Equal(t, domain.PhasePaymentConfirm, sess.Phase)

	order := service.Order{
		UserID: testUserID, Action: domain.ActionCreate, Protocol: domain.ProtocolSSH,
		ServerID: 5, Username: "bob", Password: "secret1", Days: 30,
	}
	rec := &service.Receipt{
		Invoice: domain.Invoice{ID: "inv-1", Protocol: domain.ProtocolSSH, Action: domain.ActionCreate, Username: "bob", Days: 30},
		Quote:   quote,
	}
	f.purchases.On("Commit", mock.Anything, order).Return(rec, nil)
	res = f.press(testUserID, "pay:confirm")
	require.True(t, res.Handled)
	assert.Contains(t, res.Replies[0].Text, "`inv-1`")

	_, ok := f.session(testUserID)
	assert.False(t, ok, "a committed purchase ends the flow")
	f.assertExpectations(t)
}

func TestPurchase_DuplicateUsernameAtCommitKeepsSelection(t *testing.T) {
	f := newFixture(t)
	beginPurchase(t, f, domain.ActionCreate, domain.ProtocolSSH)

	f.purchases.On("CheckUsername", mock.Anything, domain.ActionCreate, domain.ProtocolSSH, mock.Anything).Return(nil)
	f.purchases.On("Quote", mock.Anything, testUserID, int64(5), domain.ProtocolSSH, 7).
		Return(domain.Quote{Days: 7, Total: 2100}, nil)
	f.users.On("GetUser", mock.Anything, testUserID).Return(testutil.NewTestUser(testUserID, 5000), nil)

	f.text(testUserID, "bob")
	f.text(testUserID, "secret1")
	f.press(testUserID, "dur:7")

	f.purchases.On("Commit", mock.Anything, mock.MatchedBy(func(o service.Order) bool { return o.Username == "bob" })).
		Return(nil, domain.ErrUsernameTaken).Once()
	res := f.press(testUserID, "pay:confirm")
	require.True(t, res.Handled)
	assert.Equal(t, ErrorText(domain.ErrUsernameTaken), res.Replies[0].Text)

	sess, ok := f.session(testUserID)
	require.True(t, ok, "the flow survives a duplicate username")
	assert.Equal(t, domain.PhaseUsername, sess.Phase)
	assert.Empty(t, sess.Username)
	assert.Empty(t, sess.Password)
	assert.Equal(t, 7, sess.Days)
	assert.Equal(t, int64(5), sess.ServerID)
	assert.Equal(t, domain.ActionCreate, sess.Action)
	assert.Equal(t, domain.ProtocolSSH, sess.Protocol)

	f.text(testUserID, "bob2")
	res = f.text(testUserID, "secret2")
	require.True(t, res.Handled)
	sess, _ = f.session(testUserID)
	assert.Equal(t, domain.PhasePaymentConfirm, sess.Phase, "duration is not asked again")
	assert.Equal(t, "bob2", sess.Username)
	f.purchases.AssertNumberOfCalls(t, "Quote", 2)
}

func TestPurchase_BundleRenewNamesMissingMembers(t *testing.T) {
	f := newFixture(t)
	beginPurchase(t, f, domain.ActionRenew, domain.ProtocolBundle)
	before, _ := f.session(testUserID)

	incomplete := &domain.AccountIncompleteError{
		Username: "carol",
		Missing:  []domain.Protocol{domain.ProtocolVLess, domain.ProtocolTrojan},
	}
	f.purchases.On("CheckUsername", mock.Anything, domain.ActionRenew, domain.ProtocolBundle, "carol").Return(incomplete)

	res := f.text(testUserID, "carol")
	require.True(t, res.Handled)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0].Text, "VLESS, TROJAN")
	assert.NotContains(t, res.Replies[0].Text, "VMESS")

	after, _ := f.session(testUserID)
	assert.Equal(t, before, after, "the user may send another username")
}

func TestPurchase_UsernameValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		handled bool
		stays   bool
	}{
		{name: "invalid format", err: domain.ErrInvalidInput, handled: true, stays: true},
		{name: "taken", err: domain.ErrUsernameTaken, handled: true, stays: true},
		{name: "missing on renew", err: domain.ErrNotFound, handled: true, stays: true},
		{name: "database down", err: errors.New("disk I/O error"), handled: true, stays: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			beginPurchase(t, f, domain.ActionCreate, domain.ProtocolVMess)
			before, _ := f.session(testUserID)
			f.purchases.On("CheckUsername", mock.Anything, domain.ActionCreate, domain.ProtocolVMess, "x").Return(tt.err)

			res := f.text(testUserID, "x")
			assert.Equal(t, tt.handled, res.Handled)

			after, ok := f.session(testUserID)
			assert.Equal(t, tt.stays, ok)
			if tt.stays {
				assert.Equal(t, before.Step, after.Step)
			}
		})
	}
}

func TestPurchase_InsufficientBalanceEndsFlow(t *testing.T) {
	f := newFixture(t)
	beginPurchase(t, f, domain.ActionCreate, domain.ProtocolVMess)

	f.purchases.On("CheckUsername", mock.Anything, domain.ActionCreate, domain.ProtocolVMess, "dave").Return(nil)
	f.purchases.On("Quote", mock.Anything, testUserID, int64(5), domain.ProtocolVMess, 30).
		Return(domain.Quote{Days: 30, Total: 9000}, nil)
	f.users.On("GetUser", mock.Anything, testUserID).Return(testutil.NewTestUser(testUserID, 8999), nil)
	f.purchases.On("Commit", mock.Anything, mock.Anything).Return(nil, domain.ErrInsufficientBalance)

	f.text(testUserID, "dave")
	f.press(testUserID, "dur:30")
	res := f.press(testUserID, "pay:confirm")

	require.True(t, res.Handled)
	assert.Equal(t, ErrorText(domain.ErrInsufficientBalance), res.Replies[0].Text)
	_, ok := f.session(testUserID)
	assert.False(t, ok)
}

func TestPurchase_DurationButtons(t *testing.T) {
	f := newFixture(t)
	beginPurchase(t, f, domain.ActionCreate, domain.ProtocolTrojan)
	f.purchases.On("CheckUsername", mock.Anything, domain.ActionCreate, domain.ProtocolTrojan, "erin").Return(nil)
	f.text(testUserID, "erin")
	before, _ := f.session(testUserID)

	res := f.text(testUserID, "30")
	require.True(t, res.Handled)
	assert.NotEmpty(t, res.Replies[0].Buttons, "typed durations are re-prompted with the buttons")

	res = f.press(testUserID, "dur:2")
	require.True(t, res.Handled)
	assert.True(t, res.Replies[0].Unchanged)

	after, _ := f.session(testUserID)
	assert.Equal(t, before, after)
}

func TestPurchase_CancelAtConfirm(t *testing.T) {
	f := newFixture(t)
	beginPurchase(t, f, domain.ActionRenew, domain.ProtocolVLess)
	f.purchases.On("CheckUsername", mock.Anything, domain.ActionRenew, domain.ProtocolVLess, "fay").Return(nil)
	f.purchases.On("Quote", mock.Anything, testUserID, int64(5), domain.ProtocolVLess, 1).Return(domain.Quote{Days: 1, Total: 300}, nil)
	f.users.On("GetUser", mock.Anything, testUserID).Return(testutil.NewTestUser(testUserID, 300), nil)

	f.text(testUserID, "fay")
	f.press(testUserID, "dur:1")
	res := f.press(testUserID, "pay:cancel")

	require.True(t, res.Handled)
	assert.Equal(t, cancelledText, res.Replies[0].Text)
	_, ok := f.session(testUserID)
	assert.False(t, ok)
	f.purchases.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestPurchase_FullServerRefusedUpFront(t *testing.T) {
	f := newFixture(t)
	full := testutil.NewTestServer(5, 300)
	full.TotalAccounts = full.MaxAccounts
	f.servers.On("Get", mock.Anything, int64(5)).Return(full, nil)

	_, err := f.engine.BeginPurchase(context.Background(), testUserID, domain.ActionCreate, domain.ProtocolSSH, 5)
	assert.ErrorIs(t, err, domain.ErrServerFull)
	_, ok := f.session(testUserID)
	assert.False(t, ok)

	_, err = f.engine.BeginPurchase(context.Background(), testUserID, domain.ActionRenew, domain.ProtocolSSH, 5)
	assert.NoError(t, err, "renewals do not take a new slot")
}
