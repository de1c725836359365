package handler

import (
	"context"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/chat"
	"vpnstore/internal/conversation"
	"vpnstore/internal/format"
)

// handleStart handles /start and /menu. Opening the menu abandons any flow.
func (h *Handler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("User opened menu",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	ctx, cancel := h.requestContext()
	defer cancel()

	h.engine.Cancel(c.Chat().ID)

	reply, err := h.menu(ctx, userID)
	if err != nil {
		return h.fail(c, err)
	}
	return h.deliver(c, []conversation.Reply{reply})
}

func (h *Handler) menu(ctx context.Context, userID int64) (conversation.Reply, error) {
	user, err := h.svc.Users.GetUser(ctx, userID)
	if err != nil {
		return conversation.Reply{}, err
	}
	cfg := h.settings.Current()
	return mainMenu(menuView{
		StoreName:    cfg.StoreName,
		User:         user,
		IsAdmin:      cfg.IsAdmin(userID),
		TrialEnabled: cfg.TrialEnabled,
	}), nil
}

// handleBalance handles /saldo
func (h *Handler) handleBalance(c tele.Context) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	user, err := h.svc.Users.GetUser(ctx, c.Sender().ID)
	if err != nil {
		return h.fail(c, err)
	}
	return h.deliver(c, []conversation.Reply{balanceScreen(user)})
}

// handleCancel handles /cancel
func (h *Handler) handleCancel(c tele.Context) error {
	text := "Nothing to cancel."
	if h.engine.Cancel(c.Chat().ID) {
		text = "Cancelled."
	}
	return h.deliver(c, []conversation.Reply{notice(text, backToMenu)})
}

// handleAdmin handles /admin; AdminOnly guards the route
func (h *Handler) handleAdmin(c tele.Context) error {
	h.engine.Cancel(c.Chat().ID)
	return h.deliver(c, []conversation.Reply{adminPanel()})
}

// fail logs err and shows the user what went wrong
func (h *Handler) fail(c tele.Context, err error) error {
	h.logger.Warn("Request failed",
		zap.Int64("user_id", senderID(c)),
		zap.Error(err),
	)
	return h.deliver(c, []conversation.Reply{{Message: chat.Message{Text: conversation.ErrorText(err)}}})
}

var unknownText = format.Escape("I did not understand that. Open /menu to see what I can do.")
