package conversation

import (
	"errors"
	"fmt"
	"strings"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
)

var (
	expiredText   = "⌛ " + format.Escape("Session timed out. Open /menu to start again.")
	cancelledText = format.Escape("Cancelled.")
	failureText   = format.Escape("Something went wrong. Please try again later.")
)

// ErrorText turns an error into the MarkdownV2 text shown to the user
func ErrorText(err error) string {
	var incomplete *domain.AccountIncompleteError
	var settled *domain.DepositSettledError

	switch {
	case errors.As(err, &incomplete):
		names := make([]string, len(incomplete.Missing))
		for i, p := range incomplete.Missing {
			names[i] = p.Label()
		}
		return format.Escape(fmt.Sprintf("Account %s is incomplete, missing: %s.", incomplete.Username, strings.Join(names, ", ")))
	case errors.As(err, &settled):
		return format.Escape(fmt.Sprintf("Deposit already %s.", settled.Status))
	case errors.Is(err, domain.ErrInsufficientBalance):
		return format.Escape("Insufficient balance. Top up your balance and try again.")
	case errors.Is(err, domain.ErrUsernameTaken):
		return format.Escape("That username is already taken. Send another one.")
	case errors.Is(err, domain.ErrServerFull):
		return format.Escape("This server is full. Pick another one.")
	case errors.Is(err, domain.ErrTrialUsed):
		return format.Escape("You already used a trial of this protocol in the last 24 hours.")
	case errors.Is(err, domain.ErrForbidden):
		return format.Escape("You are not allowed to do that.")
	case errors.Is(err, domain.ErrNotFound):
		return format.Escape("Not found.")
	case errors.Is(err, domain.ErrInvalidInput):
		msg := err.Error()
		if i := strings.Index(msg, domain.ErrInvalidInput.Error()+": "); i >= 0 {
			msg = msg[i+len(domain.ErrInvalidInput.Error())+2:]
		}
		return format.Escape("⚠️ " + capitalize(msg) + ".")
	default:
		return failureText
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func textReply(text string) Reply {
	return Reply{Message: chat.Message{Text: text}}
}

func promptReply(text string, rows ...[]chat.Button) Reply {
	return Reply{Message: chat.Message{Text: text, Buttons: rows}}
}

func cancelRow(data string) []chat.Button {
	return chat.Row(chat.Btn("❌ Cancel", data))
}

func durationKeyboard() [][]chat.Button {
	var rows [][]chat.Button
	var row []chat.Button
	for _, d := range domain.Durations {
		row = append(row, chat.Btn(fmt.Sprintf("%d days", d), fmt.Sprintf("dur:%d", d)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, cancelRow("pay:cancel"))
}

func keypadKeyboard() [][]chat.Button {
	digit := func(d string) chat.Button { return chat.Btn(d, "kp:d:"+d) }
	return [][]chat.Button{
		chat.Row(digit("1"), digit("2"), digit("3")),
		chat.Row(digit("4"), digit("5"), digit("6")),
		chat.Row(digit("7"), digit("8"), digit("9")),
		chat.Row(chat.Btn("⌫", "kp:back"), digit("0"), chat.Btn("✅", "kp:ok")),
		cancelRow("kp:cancel"),
	}
}

func levelKeyboard() [][]chat.Button {
	row := make([]chat.Button, 0, 3)
	for _, l := range []domain.ResellerLevel{domain.LevelSilver, domain.LevelGold, domain.LevelPlatinum} {
		row = append(row, chat.Btn(strings.ToUpper(string(l)), "lvl:"+string(l)))
	}
	return [][]chat.Button{row}
}

func fieldLabel(f domain.ServerField) string {
	switch f {
	case domain.FieldPrice:
		return "price per day"
	case domain.FieldQuota:
		return "quota (GB)"
	case domain.FieldIPLimit:
		return "IP limit"
	case domain.FieldMaxAccounts:
		return "max accounts"
	}
	return string(f)
}

// keypadText draws the keypad screen for the session's accumulator
func keypadText(s *domain.Session) string {
	var title string
	switch s.Flow {
	case domain.FlowTopUp:
		title = fmt.Sprintf("Top up user %d", s.TargetUserID)
	default:
		title = fmt.Sprintf("Server %d: new %s", s.ServerID, fieldLabel(s.Field))
	}
	value := s.Keypad.Buffer
	if value == "" {
		value = "_"
	}
	return format.Bold(title) + "\n\n" + format.Code(value) + "\n" +
		format.Escape(fmt.Sprintf("(max %d digits)", s.Keypad.Max))
}
