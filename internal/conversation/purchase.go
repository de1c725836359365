package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
	"vpnstore/internal/service"
)

// BeginPurchase starts a create or renew flow for protocol on the server
// and returns the username prompt.
func (e *Engine) BeginPurchase(ctx context.Context, chatID int64, action domain.Action, protocol domain.Protocol, serverID int64) ([]Reply, error) {
	server, err := e.deps.Servers.Get(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}
	if action == domain.ActionCreate && server.Full() {
		return nil, domain.ErrServerFull
	}

	e.begin(chatID, domain.FlowPurchase, domain.PhaseUsername, func(s *domain.Session) {
		s.Action = action
		s.Protocol = protocol
		s.ServerID = serverID
	})
	return []Reply{usernamePrompt(action, protocol, server)}, nil
}

func usernamePrompt(action domain.Action, protocol domain.Protocol, server *domain.Server) Reply {
	verb := "Create"
	ask := "Send the username for the new account."
	if action == domain.ActionRenew {
		verb = "Renew"
		ask = "Send the username of the account to renew."
	}
	text := format.Bold(verb+" "+protocol.Label()) + "\n"
	if server != nil {
		text += format.Flag(server.CountryCode) + " " + format.Escape(server.Name) + "\n"
	}
	text += "\n" + format.Escape(ask+" 3-20 letters, digits or underscore.")
	return promptReply(text, cancelRow("pay:cancel"))
}

func (e *Engine) purchaseUsername(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "pay:cancel" {
		return finish(textReply(cancelledText))
	}
	if in.Kind != InputText {
		return nil, nil, errNotMine
	}

	username := strings.TrimSpace(in.Text)
	if err := e.deps.Purchases.CheckUsername(ctx, s.Action, s.Protocol, username); err != nil {
		var incomplete *domain.AccountIncompleteError
		switch {
		case errors.Is(err, domain.ErrInvalidInput),
			errors.Is(err, domain.ErrUsernameTaken),
			errors.Is(err, domain.ErrNotFound),
			errors.As(err, &incomplete):
			return stay(s, textReply(ErrorText(err)))
		default:
			return e.fail(s, err)
		}
	}

	s.Username = username
	if s.Action == domain.ActionCreate && s.Protocol.NeedsPassword() {
		s.Phase = domain.PhasePassword
		return stay(s, promptReply(format.Escape("Send the password: at least 6 letters or digits."), cancelRow("pay:cancel")))
	}
	return e.afterCredentials(ctx, s, in)
}

func (e *Engine) purchasePassword(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "pay:cancel" {
		return finish(textReply(cancelledText))
	}
	if in.Kind != InputText {
		return nil, nil, errNotMine
	}

	password := strings.TrimSpace(in.Text)
	if err := domain.ValidatePassword(password); err != nil {
		return stay(s, textReply(ErrorText(err)))
	}
	s.Password = password
	return e.afterCredentials(ctx, s, in)
}

// afterCredentials moves on once username (and password) are known. A
// duration picked before a rejected username is kept.
func (e *Engine) afterCredentials(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if s.Days > 0 {
		return e.toConfirm(ctx, s, in.UserID, false)
	}
	s.Phase = domain.PhaseDuration
	return stay(s, promptReply(format.Escape("Choose the duration:"), durationKeyboard()...))
}

func (e *Engine) purchaseDuration(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	switch in.Kind {
	case InputText:
		return stay(s, promptReply(format.Escape("Use the buttons to choose the duration:"), durationKeyboard()...))
	case InputCallback:
	default:
		return nil, nil, errNotMine
	}

	if in.Text == "pay:cancel" {
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	}
	raw, ok := strings.CutPrefix(in.Text, "dur:")
	if !ok {
		return nil, nil, errNotMine
	}
	days, err := strconv.Atoi(raw)
	if err != nil || !domain.ValidDuration(days) {
		return stay(s, Reply{Unchanged: true, Alert: "Unknown duration"})
	}
	s.Days = days
	return e.toConfirm(ctx, s, in.UserID, true)
}

func (e *Engine) toConfirm(ctx context.Context, s *domain.Session, userID int64, edit bool) (*domain.Session, []Reply, error) {
	quote, err := e.deps.Purchases.Quote(ctx, userID, s.ServerID, s.Protocol, s.Days)
	if err != nil {
		return e.fail(s, err)
	}
	user, err := e.deps.Users.GetUser(ctx, userID)
	if err != nil {
		return e.fail(s, err)
	}

	s.Phase = domain.PhasePaymentConfirm
	var b strings.Builder
	b.WriteString(format.Bold("Order summary") + "\n")
	b.WriteString("Product: " + format.Escape(s.Protocol.Label()+" ("+string(s.Action)+")") + "\n")
	b.WriteString("Username: " + format.Code(s.Username) + "\n")
	b.WriteString(format.Escape(fmt.Sprintf("Duration: %d days", s.Days)) + "\n")
	if quote.DiscountPercent > 0 {
		b.WriteString(format.Escape(fmt.Sprintf("Discount: %d%%", quote.DiscountPercent)) + "\n")
	}
	b.WriteString("Total: " + format.Bold(format.Rupiah(quote.Total)) + "\n")
	b.WriteString("Balance: " + format.Escape(format.Rupiah(user.Saldo)))

	reply := promptReply(b.String(),
		chat.Row(chat.Btn("✅ Pay", "pay:confirm"), chat.Btn("❌ Cancel", "pay:cancel")),
	)
	reply.Edit = edit
	return stay(s, reply)
}

func (e *Engine) purchaseConfirm(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	switch in.Kind {
	case InputText:
		return stay(s, textReply(format.Escape("Use the buttons above to pay or cancel.")))
	case InputCallback:
	default:
		return nil, nil, errNotMine
	}

	switch in.Text {
	case "pay:cancel":
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	case "pay:confirm":
	default:
		return nil, nil, errNotMine
	}

	rec, err := e.deps.Purchases.Commit(ctx, service.Order{
		UserID:   in.UserID,
		Action:   s.Action,
		Protocol: s.Protocol,
		ServerID: s.ServerID,
		Username: s.Username,
		Password: s.Password,
		Days:     s.Days,
	})
	switch {
	case err == nil:
		e.logger.Info("Purchase completed",
			zap.Int64("user_id", in.UserID),
			zap.String("invoice_id", rec.Invoice.ID),
		)
		return finish(Reply{Message: chat.Message{Text: rec.Text(true)}, Edit: true})
	case errors.Is(err, domain.ErrUsernameTaken):
		s.ClearCredentials()
		s.Phase = domain.PhaseUsername
		return stay(s, textReply(ErrorText(err)))
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrServerFull):
		return finish(textReply(ErrorText(err)))
	default:
		return e.fail(s, err)
	}
}
