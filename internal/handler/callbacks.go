package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/chat"
	"vpnstore/internal/conversation"
	"vpnstore/internal/domain"
)

const sessionExpiredAlert = "Session expired. Open /menu to start again."

var errBadCallback = fmt.Errorf("%w: this button is no longer valid", domain.ErrInvalidInput)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// splitCallback splits "head:arg1:arg2" into its head and arguments
func splitCallback(data string) (string, []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

func edited(r conversation.Reply) []conversation.Reply {
	r.Edit = true
	return []conversation.Reply{r}
}

// handleCallback handles ALL callback queries. An active flow sees the
// press first; whatever it does not take is a stateless menu action.
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	data := cleanCallbackData(callback.Data)
	h.logger.Debug("Processing callback",
		zap.String("data", data),
		zap.String("id", callback.ID),
		zap.Int64("user_id", senderID(c)),
	)

	ctx, cancel := h.requestContext()
	defer cancel()

	in := input(c, conversation.InputCallback)
	in.Text = data
	if res := h.engine.Handle(ctx, in); res.Handled {
		return h.deliver(c, res.Replies)
	}

	replies, err := h.route(ctx, in, data)
	if err != nil {
		return h.fail(c, err)
	}
	return h.deliver(c, replies)
}

// route dispatches a stateless callback by its head
func (h *Handler) route(ctx context.Context, in conversation.Input, data string) ([]conversation.Reply, error) {
	head, args := splitCallback(data)
	switch head {
	case "menu":
		h.engine.Cancel(in.ChatID)
		reply, err := h.menu(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		return edited(reply), nil
	case "bal":
		user, err := h.svc.Users.GetUser(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		return edited(balanceScreen(user)), nil
	case "buy":
		return h.handleBuy(ctx, args)
	case "srv":
		return h.handleServerPick(ctx, in.ChatID, args)
	case "trial":
		return h.handleTrial(ctx, in.UserID, args)
	case "dep":
		return h.handleDeposit(ctx, in, args)
	case "adm":
		if !h.isAdmin(in.UserID) {
			return nil, domain.ErrForbidden
		}
		return h.handleAdminCallback(ctx, in, args)
	case "kp", "pay", "dur", "lvl", "flow":
		return []conversation.Reply{{Unchanged: true, Alert: sessionExpiredAlert}}, nil
	}

	h.logger.Warn("Unhandled callback", zap.String("data", data), zap.Int64("user_id", in.UserID))
	return []conversation.Reply{{Unchanged: true}}, nil
}

// handleBuy walks buy:<action> → buy:<action>:<protocol> → server list
func (h *Handler) handleBuy(ctx context.Context, args []string) ([]conversation.Reply, error) {
	if len(args) == 0 {
		return nil, errBadCallback
	}
	action, ok := domain.ParseAction(args[0])
	if !ok {
		return nil, errBadCallback
	}
	if len(args) == 1 {
		return edited(protocolMenu(actionTitle(action), "buy:"+string(action), domain.Protocols)), nil
	}
	protocol, ok := domain.ParseProtocol(args[1])
	if !ok {
		return nil, errBadCallback
	}

	servers, err := h.svc.Servers.List(ctx)
	if err != nil {
		return nil, err
	}
	back := chat.Row(chat.Btn("◀️ Back", "buy:"+string(action)))
	if len(servers) == 0 {
		return edited(notice("No servers are available right now.", back)), nil
	}
	title := fmt.Sprintf("🖥 %s: pick a server", protocol.Label())
	return edited(serverList(title, servers, func(s domain.Server) string {
		return fmt.Sprintf("srv:%s:%s:%d", action, protocol, s.ID)
	}, back)), nil
}

// handleServerPick starts the purchase flow from srv:<action>:<protocol>:<id>
func (h *Handler) handleServerPick(ctx context.Context, chatID int64, args []string) ([]conversation.Reply, error) {
	if len(args) != 3 {
		return nil, errBadCallback
	}
	action, okAction := domain.ParseAction(args[0])
	protocol, okProtocol := domain.ParseProtocol(args[1])
	serverID, okID := parseID(args[2])
	if !okAction || !okProtocol || !okID {
		return nil, errBadCallback
	}
	return h.engine.BeginPurchase(ctx, chatID, action, protocol, serverID)
}

// handleTrial walks trial → trial:<protocol> → trial:<protocol>:<id>
func (h *Handler) handleTrial(ctx context.Context, userID int64, args []string) ([]conversation.Reply, error) {
	if len(args) == 0 {
		return edited(protocolMenu("🎁 Which product do you want to try?", "trial", domain.Protocols)), nil
	}
	protocol, ok := domain.ParseProtocol(args[0])
	if !ok {
		return nil, errBadCallback
	}

	if len(args) == 1 {
		servers, err := h.svc.Servers.List(ctx)
		if err != nil {
			return nil, err
		}
		back := chat.Row(chat.Btn("◀️ Back", "trial"))
		if len(servers) == 0 {
			return edited(notice("No servers are available right now.", back)), nil
		}
		return edited(serverList("🎁 Pick a server for your trial", servers, func(s domain.Server) string {
			return fmt.Sprintf("trial:%s:%d", protocol, s.ID)
		}, back)), nil
	}

	serverID, ok := parseID(args[1])
	if !ok {
		return nil, errBadCallback
	}
	rec, err := h.svc.Trials.Create(ctx, userID, serverID, protocol)
	if err != nil {
		return nil, err
	}
	return edited(conversation.Reply{Message: chat.Message{Text: rec.Text(true), Buttons: [][]chat.Button{backToMenu}}}), nil
}

// handleDeposit opens the deposit flow and settles deposits from the admin buttons
func (h *Handler) handleDeposit(ctx context.Context, in conversation.Input, args []string) ([]conversation.Reply, error) {
	if len(args) == 0 {
		return nil, errBadCallback
	}
	switch args[0] {
	case "new":
		return h.engine.BeginDeposit(ctx, in.ChatID)
	case "gateway", "qris":
		return []conversation.Reply{{Unchanged: true, Alert: sessionExpiredAlert}}, nil
	case "approve", "reject":
		if len(args) != 2 {
			return nil, errBadCallback
		}
		if args[0] == "approve" {
			d, err := h.svc.Deposits.Approve(ctx, in.UserID, args[1])
			if err != nil {
				return nil, err
			}
			return []conversation.Reply{notice(fmt.Sprintf("✅ Deposit %s approved. Credited to user %d.", d.Reference, d.UserID), backToAdmin)}, nil
		}
		d, err := h.svc.Deposits.Reject(ctx, in.UserID, args[1])
		if err != nil {
			return nil, err
		}
		return []conversation.Reply{notice(fmt.Sprintf("❌ Deposit %s rejected.", d.Reference), backToAdmin)}, nil
	}
	return nil, errBadCallback
}
