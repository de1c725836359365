package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
)

// BeginEditField opens the keypad for a numeric server field
func (e *Engine) BeginEditField(ctx context.Context, chatID, adminID, serverID int64, field domain.ServerField) ([]Reply, error) {
	if !e.isAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	if _, err := e.deps.Servers.Get(ctx, serverID); err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}

	var reply Reply
	e.begin(chatID, domain.FlowEditField, domain.PhaseKeypad, func(s *domain.Session) {
		s.ServerID = serverID
		s.Field = field
		s.Keypad = domain.NewKeypad(domain.KeypadCapFor(field))
		reply = keypadReply(s, false)
	})
	return []Reply{reply}, nil
}

// BeginTopUp asks which user to credit
func (e *Engine) BeginTopUp(ctx context.Context, chatID, adminID int64) ([]Reply, error) {
	if !e.isAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	e.begin(chatID, domain.FlowTopUp, domain.PhaseTargetUser, nil)
	return []Reply{promptReply(format.Escape("Send the Telegram ID of the user to top up."), cancelRow("kp:cancel"))}, nil
}

// keypadReply draws the keypad and records what was drawn
func keypadReply(s *domain.Session, edit bool) Reply {
	text := keypadText(s)
	s.Rendered = text
	return Reply{Message: chat.Message{Text: text, Buttons: keypadKeyboard()}, Edit: edit}
}

func parseUserID(text string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: send a numeric Telegram ID", domain.ErrInvalidInput)
	}
	return id, nil
}

func (e *Engine) topUpTarget(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "kp:cancel" {
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	}
	if in.Kind != InputText {
		return nil, nil, errNotMine
	}

	id, err := parseUserID(in.Text)
	if err != nil {
		return stay(s, textReply(ErrorText(err)))
	}
	user, err := e.deps.Users.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return stay(s, textReply(format.Escape(fmt.Sprintf("User %d is not registered. Send another ID.", id))))
	}
	if err != nil {
		return e.fail(s, err)
	}

	s.TargetUserID = user.ID
	s.Phase = domain.PhaseKeypad
	s.Keypad = domain.NewKeypad(domain.KeypadCapBalance)
	return stay(s, keypadReply(s, false))
}

func (e *Engine) keypadStep(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	switch in.Kind {
	case InputText:
		return stay(s, textReply(format.Escape("Use the keypad buttons to enter the value.")))
	case InputCallback:
	default:
		return nil, nil, errNotMine
	}

	switch {
	case in.Text == "kp:cancel":
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	case in.Text == "kp:back":
		s.Keypad.Backspace()
	case in.Text == "kp:ok":
		return e.keypadSubmit(ctx, s, in)
	case strings.HasPrefix(in.Text, "kp:d:"):
		if !s.Keypad.Press(strings.TrimPrefix(in.Text, "kp:d:")) {
			reply := Reply{Unchanged: true}
			if len(s.Keypad.Buffer) >= s.Keypad.Max {
				reply.Alert = fmt.Sprintf("At most %d digits", s.Keypad.Max)
			}
			return stay(s, reply)
		}
	default:
		return nil, nil, errNotMine
	}

	if keypadText(s) == s.Rendered {
		return stay(s, Reply{Unchanged: true})
	}
	return stay(s, keypadReply(s, true))
}

func (e *Engine) keypadSubmit(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if s.Keypad.Empty() {
		return stay(s, Reply{Unchanged: true, Alert: "Enter a value first"})
	}
	value, err := s.Keypad.Value()
	if err != nil {
		return stay(s, Reply{Unchanged: true, Alert: "Invalid number"})
	}

	switch s.Flow {
	case domain.FlowTopUp:
		user, err := e.deps.Users.TopUp(ctx, in.UserID, s.TargetUserID, value)
		if errors.Is(err, domain.ErrInvalidInput) {
			return stay(s, Reply{Unchanged: true, Alert: "Amount must be positive"})
		}
		if err != nil {
			return e.fail(s, err)
		}
		text := format.Escape(fmt.Sprintf("✅ Credited %s to user %d. New balance: %s.",
			format.Rupiah(value), user.ID, format.Rupiah(user.Saldo)))
		return finish(Reply{Message: chat.Message{Text: text}, Edit: true})

	default:
		err := e.deps.Servers.UpdateField(ctx, s.ServerID, s.Field, value)
		if errors.Is(err, domain.ErrInvalidInput) {
			return stay(s, Reply{Unchanged: true, Alert: fmt.Sprintf("%s cannot be %d", fieldLabel(s.Field), value)})
		}
		if err != nil {
			return e.fail(s, err)
		}
		text := format.Escape(fmt.Sprintf("✅ Server %d %s set to %d.", s.ServerID, fieldLabel(s.Field), value))
		return finish(Reply{Message: chat.Message{Text: text}, Edit: true})
	}
}
