package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
)

func TestEngine_NoSessionIsNotHandled(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   Input
	}{
		{"text", Input{Kind: InputText, ChatID: testUserID, Text: "hello"}},
		{"photo", Input{Kind: InputPhoto, ChatID: testUserID, FileID: "file-1"}},
		{"keypad", Input{Kind: InputCallback, ChatID: testUserID, Text: "kp:d:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.engine.Handle(context.Background(), tt.in)
			assert.False(t, res.Handled)
			assert.Empty(t, res.Replies)
		})
	}
	f.assertExpectations(t)
}

func TestEngine_ForeignCallbackPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.servers.On("Get", mock.Anything, int64(5)).Return(&domain.Server{ID: 5, Name: "SG-1"}, nil)

	_, err := f.engine.BeginPurchase(context.Background(), testUserID, domain.ActionCreate, domain.ProtocolVMess, 5)
	require.NoError(t, err)
	before, _ := f.session(testUserID)

	res := f.press(testUserID, "buy:create:ssh")
	assert.False(t, res.Handled, "menu buttons belong to the stateless handlers")

	after, ok := f.session(testUserID)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestEngine_Cancel(t *testing.T) {
	f := newFixture(t)
	f.deposits.On("MinDeposit").Return(int64(10000))

	assert.False(t, f.engine.Cancel(testUserID))

	_, err := f.engine.BeginDeposit(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, f.engine.Cancel(testUserID))

	_, ok := f.session(testUserID)
	assert.False(t, ok)
	assert.False(t, f.text(testUserID, "50000").Handled)
}

func TestEngine_ExpiryNotifiesUser(t *testing.T) {
	f := newFixture(t, WithIdleTimeouts(time.Hour, 20*time.Millisecond))

	notified := make(chan chat.Message, 1)
	f.notifier.On("Send", mock.Anything, testAdminID, mock.Anything).
		Run(func(args mock.Arguments) { notified <- args.Get(2).(chat.Message) }).
		Return(nil).Once()

	_, err := f.engine.BeginBroadcast(context.Background(), testAdminID, testAdminID)
	require.NoError(t, err)

	select {
	case msg := <-notified:
		assert.Equal(t, expiredText, msg.Text)
	case <-time.After(time.Second):
		t.Fatal("expiry notice not sent")
	}
	_, ok := f.session(testAdminID)
	assert.False(t, ok)
}

func TestEngine_StepRearmsIdleTimer(t *testing.T) {
	f := newFixture(t, WithIdleTimeouts(80*time.Millisecond, time.Hour))
	f.deposits.On("MinDeposit").Return(int64(10000))
	f.deposits.On("ValidateAmount", int64(50000)).Return(nil)
	f.notifier.On("Send", mock.Anything, testUserID, mock.Anything).Return(nil).Maybe()

	_, err := f.engine.BeginDeposit(context.Background(), testUserID)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.True(t, f.text(testUserID, "50000").Handled)

	time.Sleep(50 * time.Millisecond)
	sess, ok := f.session(testUserID)
	require.True(t, ok, "the first step's timer must not expire the advanced flow")
	assert.Equal(t, domain.PhaseMethod, sess.Phase)

	assert.True(t, f.waitGone(testUserID, time.Second))
}

func TestEngine_RejectedInputDoesNotRearm(t *testing.T) {
	f := newFixture(t, WithIdleTimeouts(60*time.Millisecond, time.Hour))
	f.deposits.On("MinDeposit").Return(int64(10000))
	f.deposits.On("ValidateAmount", int64(500)).Return(domain.ErrInvalidInput)
	f.notifier.On("Send", mock.Anything, testUserID, mock.Anything).Return(nil).Maybe()

	_, err := f.engine.BeginDeposit(context.Background(), testUserID)
	require.NoError(t, err)
	first, _ := f.session(testUserID)

	time.Sleep(30 * time.Millisecond)
	res := f.text(testUserID, "500")
	require.True(t, res.Handled)
	require.Len(t, res.Replies, 1)

	sess, _ := f.session(testUserID)
	assert.Equal(t, first.Step, sess.Step)
	assert.True(t, f.waitGone(testUserID, 60*time.Millisecond), "the original deadline still applies")
}

func TestEngine_StaleTimerKeepsNewerFlow(t *testing.T) {
	f := newFixture(t, WithIdleTimeouts(time.Hour, 30*time.Millisecond))
	f.deposits.On("MinDeposit").Return(int64(10000))

	_, err := f.engine.BeginPromote(context.Background(), testAdminID, testAdminID)
	require.NoError(t, err)
	old, _ := f.session(testAdminID)

	// a stale timer captured before the newer flow began
	stale := f.sessions.Arm(old, 10*time.Millisecond, nil)
	defer stale.Stop()

	_, err = f.engine.BeginDeposit(context.Background(), testAdminID)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	sess, ok := f.session(testAdminID)
	require.True(t, ok)
	assert.Equal(t, domain.FlowDeposit, sess.Flow)
	assert.Greater(t, sess.Generation, old.Generation)
}

func TestEngine_ProofAfterSilentExpiryIsIgnored(t *testing.T) {
	f := newFixture(t, WithIdleTimeouts(30*time.Millisecond, time.Hour))
	f.deposits.On("ValidateAmount", int64(25000)).Return(nil)
	f.deposits.On("Create", mock.Anything, testUserID, int64(25000), domain.MethodStaticQRIS).
		Return(&domain.Deposit{ID: "dep-1", Amount: 25000, Reference: "DEP-1"}, []byte("png"), nil)

	f.sessions.Begin(testUserID, domain.FlowDeposit, domain.PhaseAmount, nil)
	require.True(t, f.text(testUserID, "25000").Handled)
	require.True(t, f.press(testUserID, "dep:qris").Handled)

	sess, ok := f.session(testUserID)
	require.True(t, ok)
	require.Equal(t, domain.PhaseProofUpload, sess.Phase)

	require.True(t, f.waitGone(testUserID, time.Second))

	res := f.photo(testUserID, "late-photo")
	assert.False(t, res.Handled)
	f.deposits.AssertNotCalled(t, "SubmitProof", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_PhotoOutsideProofPhaseIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.deposits.On("MinDeposit").Return(int64(10000))

	_, err := f.engine.BeginDeposit(context.Background(), testUserID)
	require.NoError(t, err)

	assert.False(t, f.photo(testUserID, "photo").Handled)
	f.deposits.AssertNotCalled(t, "SubmitProof", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_AdminFlowsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	begins := map[string]func() ([]Reply, error){
		"edit field": func() ([]Reply, error) {
			return f.engine.BeginEditField(ctx, testUserID, testUserID, 1, domain.FieldPrice)
		},
		"top up":     func() ([]Reply, error) { return f.engine.BeginTopUp(ctx, testUserID, testUserID) },
		"add server": func() ([]Reply, error) { return f.engine.BeginAddServer(ctx, testUserID, testUserID) },
		"broadcast":  func() ([]Reply, error) { return f.engine.BeginBroadcast(ctx, testUserID, testUserID) },
		"promote":    func() ([]Reply, error) { return f.engine.BeginPromote(ctx, testUserID, testUserID) },
		"set level":  func() ([]Reply, error) { return f.engine.BeginSetLevel(ctx, testUserID, testUserID) },
		"restore":    func() ([]Reply, error) { return f.engine.BeginRestore(ctx, testUserID, testUserID) },
	}

	for name, begin := range begins {
		t.Run(name, func(t *testing.T) {
			_, err := begin()
			assert.ErrorIs(t, err, domain.ErrForbidden)
			_, ok := f.session(testUserID)
			assert.False(t, ok)
		})
	}
}
