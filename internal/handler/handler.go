package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/conversation"
	"vpnstore/internal/middleware"
	"vpnstore/internal/service"
)

// requestTimeout bounds one update; purchases wait on provisioning scripts
const requestTimeout = 2 * time.Minute

// Services are the stateless operations reachable from menus
type Services struct {
	Users    *service.UserService
	Servers  *service.ServerService
	Deposits *service.DepositService
	Trials   *service.TrialService
	Backups  *service.BackupService
	Stats    *service.StatsService
}

// Handler manages all bot interactions
type Handler struct {
	bot      *tele.Bot
	engine   *conversation.Engine
	svc      Services
	settings service.Settings
	logger   *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	engine *conversation.Engine,
	svc Services,
	settings service.Settings,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:      bot,
		engine:   engine,
		svc:      svc,
		settings: settings,
		logger:   logger,
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/menu", h.handleStart)
	h.bot.Handle("/saldo", h.handleBalance)
	h.bot.Handle("/cancel", h.handleCancel)
	h.bot.Handle("/admin", h.handleAdmin, middleware.AdminOnly(h.settings, h.logger))

	// Flow input
	h.bot.Handle(tele.OnText, h.handleText)
	h.bot.Handle(tele.OnPhoto, h.handlePhoto)
	h.bot.Handle(tele.OnDocument, h.handleDocument)

	// Callback queries (inline buttons)
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (h *Handler) isAdmin(userID int64) bool {
	return h.settings.Current().IsAdmin(userID)
}

// input builds the engine input common to every update kind
func input(c tele.Context, kind conversation.InputKind) conversation.Input {
	in := conversation.Input{Kind: kind}
	if sender := c.Sender(); sender != nil {
		in.UserID = sender.ID
		in.Username = sender.Username
	}
	if ch := c.Chat(); ch != nil {
		in.ChatID = ch.ID
	} else {
		in.ChatID = in.UserID
	}
	return in
}
