// Package conversation drives the multi-step chat flows: it routes each
// inbound event of a chat with an active session to the step handler for
// the session's (flow, phase) and keeps the flow's idle timer armed.
package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/metrics"
	"vpnstore/internal/session"
)

// Idle windows after which an untouched flow is dropped.
const (
	DefaultLongIdle  = 5 * time.Minute
	DefaultShortIdle = 30 * time.Second
)

// InputKind is the kind of inbound event
type InputKind int

const (
	InputText InputKind = iota
	InputPhoto
	InputDocument
	InputCallback
)

// Input is one inbound event. Text holds the message text or the callback data.
type Input struct {
	Kind     InputKind
	ChatID   int64
	UserID   int64
	Username string
	Text     string
	FileID   string
	FileName string
}

// Reply is a message the transport should deliver in answer to an input.
// Edit replaces the message the callback came from; Unchanged means the
// on-screen message already shows this content and must not be redrawn.
// Alert is shown as the callback answer.
type Reply struct {
	chat.Message
	Edit      bool
	Unchanged bool
	Alert     string
}

// Result tells the transport whether a flow consumed the input
type Result struct {
	Handled bool
	Replies []Reply
}

// errNotMine marks an input the current phase does not accept; the
// stateless handlers get a chance at it.
var errNotMine = errors.New("input does not belong to the flow")

type stepFunc func(ctx context.Context, sess *domain.Session, in Input) (*domain.Session, []Reply, error)

type route struct {
	flow  domain.FlowKind
	phase domain.Phase
}

type armed struct {
	timer      *time.Timer
	generation uint64
	step       uint64
}

type idlePolicy struct {
	after  time.Duration
	notify bool
}

// Engine dispatches inputs to flow steps
type Engine struct {
	sessions *session.Store
	deps     Deps
	logger   *zap.Logger

	routes    map[route]stepFunc
	longIdle  time.Duration
	shortIdle time.Duration
	spawn     func(func())

	mu     sync.Mutex
	timers map[int64]armed
}

// Option configures an Engine
type Option func(*Engine)

// WithIdleTimeouts overrides the long and short idle windows
func WithIdleTimeouts(long, short time.Duration) Option {
	return func(e *Engine) {
		e.longIdle = long
		e.shortIdle = short
	}
}

// New creates a new engine
func New(sessions *session.Store, deps Deps, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		sessions:  sessions,
		deps:      deps,
		logger:    logger,
		longIdle:  DefaultLongIdle,
		shortIdle: DefaultShortIdle,
		spawn:     func(f func()) { go f() },
		timers:    make(map[int64]armed),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.routes = map[route]stepFunc{
		{domain.FlowPurchase, domain.PhaseUsername}:       e.purchaseUsername,
		{domain.FlowPurchase, domain.PhasePassword}:       e.purchasePassword,
		{domain.FlowPurchase, domain.PhaseDuration}:       e.purchaseDuration,
		{domain.FlowPurchase, domain.PhasePaymentConfirm}: e.purchaseConfirm,

		{domain.FlowEditField, domain.PhaseKeypad}:        e.keypadStep,
		{domain.FlowTopUp, domain.PhaseTargetUser}:        e.topUpTarget,
		{domain.FlowTopUp, domain.PhaseKeypad}:            e.keypadStep,
		{domain.FlowPromote, domain.PhaseTargetUser}:      e.promoteTarget,
		{domain.FlowSetLevel, domain.PhaseTargetUser}:     e.setLevelTarget,
		{domain.FlowSetLevel, domain.PhaseLevelChoice}:    e.setLevelChoice,
		{domain.FlowBroadcast, domain.PhaseBroadcastText}: e.broadcastText,
		{domain.FlowRestore, domain.PhaseRestoreUpload}:   e.restoreUpload,

		{domain.FlowDeposit, domain.PhaseAmount}:      e.depositAmount,
		{domain.FlowDeposit, domain.PhaseMethod}:      e.depositMethod,
		{domain.FlowDeposit, domain.PhaseProofUpload}: e.depositProof,
	}
	for _, phase := range draftPhases {
		e.routes[route{domain.FlowAddServer, phase}] = e.addServerStep
	}
	return e
}

// Handle routes in to the chat's active flow. Result.Handled is false when
// the chat has no flow or the current phase does not take this input.
func (e *Engine) Handle(ctx context.Context, in Input) Result {
	var (
		before  domain.Session
		replies []Reply
	)
	next, err := e.sessions.Update(in.ChatID, func(cur *domain.Session, ok bool) (*domain.Session, error) {
		if !ok {
			return nil, errNotMine
		}
		step, found := e.routes[route{cur.Flow, cur.Phase}]
		if !found {
			e.logger.Error("No step registered for session",
				zap.Int64("chat_id", in.ChatID),
				zap.String("flow", string(cur.Flow)),
				zap.String("phase", string(cur.Phase)),
			)
			return nil, errNotMine
		}
		before = *cur
		next, out, err := step(ctx, cur, in)
		if err != nil {
			return nil, err
		}
		replies = out
		return next, nil
	})
	if errors.Is(err, errNotMine) {
		return Result{}
	}
	if err != nil {
		e.logger.Error("Flow step failed",
			zap.Int64("chat_id", in.ChatID),
			zap.String("flow", string(before.Flow)),
			zap.String("phase", string(before.Phase)),
			zap.Error(err),
		)
		return Result{Handled: true, Replies: []Reply{textReply(ErrorText(err))}}
	}

	metrics.IncFlowStep(string(before.Flow), string(before.Phase))
	switch {
	case next == nil:
		e.disarm(in.ChatID, before.Generation)
	case next.Step != before.Step:
		e.arm(*next)
	}
	metrics.SetActiveSessions(e.sessions.Len())
	return Result{Handled: true, Replies: replies}
}

// Cancel ends the chat's flow. It reports whether one was active.
func (e *Engine) Cancel(chatID int64) bool {
	var ended domain.Session
	_, err := e.sessions.Update(chatID, func(cur *domain.Session, ok bool) (*domain.Session, error) {
		if !ok {
			return nil, errNotMine
		}
		ended = *cur
		return nil, nil
	})
	if err != nil {
		return false
	}
	e.disarm(chatID, ended.Generation)
	metrics.SetActiveSessions(e.sessions.Len())
	e.logger.Debug("Flow cancelled",
		zap.Int64("chat_id", chatID),
		zap.String("flow", string(ended.Flow)),
	)
	return true
}

// begin starts a flow, replacing whatever the chat was doing
func (e *Engine) begin(chatID int64, flow domain.FlowKind, phase domain.Phase, init func(*domain.Session)) domain.Session {
	sess := e.sessions.Begin(chatID, flow, phase, init)
	e.arm(sess)
	metrics.SetActiveSessions(e.sessions.Len())
	e.logger.Debug("Flow started",
		zap.Int64("chat_id", chatID),
		zap.String("flow", string(flow)),
		zap.String("phase", string(phase)),
	)
	return sess
}

func (e *Engine) policy(s domain.Session) idlePolicy {
	switch s.Flow {
	case domain.FlowBroadcast, domain.FlowPromote, domain.FlowSetLevel, domain.FlowRestore:
		return idlePolicy{after: e.shortIdle, notify: true}
	case domain.FlowDeposit:
		if s.Phase == domain.PhaseProofUpload {
			return idlePolicy{after: e.longIdle, notify: false}
		}
	}
	return idlePolicy{after: e.longIdle, notify: true}
}

// arm schedules expiry of the session's current step and stops the timer
// of any older step of the same chat.
func (e *Engine) arm(sess domain.Session) {
	p := e.policy(sess)
	t := e.sessions.Arm(sess, p.after, func(expired domain.Session) {
		e.expire(expired, p.notify)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.timers[sess.ChatID]; ok {
		if old.generation > sess.Generation || (old.generation == sess.Generation && old.step > sess.Step) {
			t.Stop()
			return
		}
		old.timer.Stop()
	}
	e.timers[sess.ChatID] = armed{timer: t, generation: sess.Generation, step: sess.Step}
}

func (e *Engine) disarm(chatID int64, generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok := e.timers[chatID]; ok && a.generation == generation {
		a.timer.Stop()
		delete(e.timers, chatID)
	}
}

func (e *Engine) expire(sess domain.Session, notify bool) {
	e.mu.Lock()
	if a, ok := e.timers[sess.ChatID]; ok && a.generation == sess.Generation && a.step == sess.Step {
		delete(e.timers, sess.ChatID)
	}
	e.mu.Unlock()

	metrics.IncFlowExpired(string(sess.Flow))
	metrics.SetActiveSessions(e.sessions.Len())
	e.logger.Info("Flow expired",
		zap.Int64("chat_id", sess.ChatID),
		zap.String("flow", string(sess.Flow)),
		zap.String("phase", string(sess.Phase)),
	)
	if !notify {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.deps.Notifier.Send(ctx, sess.ChatID, chat.Message{Text: expiredText}); err != nil {
		e.logger.Warn("Failed to send expiry notice", zap.Int64("chat_id", sess.ChatID), zap.Error(err))
	}
}

func (e *Engine) isAdmin(userID int64) bool {
	return e.deps.Settings.Current().IsAdmin(userID)
}

// finish ends the flow with the given replies
func finish(replies ...Reply) (*domain.Session, []Reply, error) {
	return nil, replies, nil
}

// stay keeps the session as it is and answers with the replies
func stay(sess *domain.Session, replies ...Reply) (*domain.Session, []Reply, error) {
	return sess, replies, nil
}

// fail logs an unexpected error and ends the flow with a generic failure text
func (e *Engine) fail(sess *domain.Session, err error) (*domain.Session, []Reply, error) {
	e.logger.Error("Flow aborted",
		zap.Int64("chat_id", sess.ChatID),
		zap.String("flow", string(sess.Flow)),
		zap.String("phase", string(sess.Phase)),
		zap.Error(err),
	)
	return finish(textReply(ErrorText(err)))
}
