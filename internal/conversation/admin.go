package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
)

// draftField is one text step of the add-server chain
type draftField struct {
	prompt string
	apply  func(d *domain.ServerDraft, text string) error
}

// draftPhases is the add-server chain in order; the last phase commits.
var draftPhases = []domain.Phase{
	domain.PhaseServerName,
	domain.PhaseServerDomain,
	domain.PhaseServerCountry,
	domain.PhaseServerAuth,
	domain.PhaseServerPrice,
	domain.PhaseServerQuota,
	domain.PhaseServerIPLimit,
	domain.PhaseServerMaxAccounts,
}

var draftFields = map[domain.Phase]draftField{
	domain.PhaseServerName: {
		prompt: "Send the server name.",
		apply: func(d *domain.ServerDraft, text string) error {
			if text == "" || len(text) > 64 {
				return fmt.Errorf("%w: name must be 1-64 characters", domain.ErrInvalidInput)
			}
			d.Name = text
			return nil
		},
	},
	domain.PhaseServerDomain: {
		prompt: "Send the server domain or IP.",
		apply: func(d *domain.ServerDraft, text string) error {
			if text == "" || strings.ContainsAny(text, " \t/") {
				return fmt.Errorf("%w: domain must be a host name without spaces", domain.ErrInvalidInput)
			}
			d.Domain = strings.ToLower(text)
			return nil
		},
	},
	domain.PhaseServerCountry: {
		prompt: "Send the two-letter country code, e.g. SG.",
		apply: func(d *domain.ServerDraft, text string) error {
			if len(text) != 2 || format.Flag(text) == format.Flag("") {
				return fmt.Errorf("%w: country code must be two letters", domain.ErrInvalidInput)
			}
			d.CountryCode = strings.ToUpper(text)
			return nil
		},
	},
	domain.PhaseServerAuth: {
		prompt: "Send the panel auth token for the server.",
		apply: func(d *domain.ServerDraft, text string) error {
			if text == "" {
				return fmt.Errorf("%w: auth token is required", domain.ErrInvalidInput)
			}
			d.Auth = text
			return nil
		},
	},
	domain.PhaseServerPrice: {
		prompt: "Send the price per day in Rupiah.",
		apply: func(d *domain.ServerDraft, text string) (err error) {
			d.Price, err = parseAmount(text, 1)
			return err
		},
	},
	domain.PhaseServerQuota: {
		prompt: "Send the quota in GB (0 for unlimited).",
		apply: func(d *domain.ServerDraft, text string) (err error) {
			d.QuotaGB, err = parseAmount(text, 0)
			return err
		},
	},
	domain.PhaseServerIPLimit: {
		prompt: "Send the IP limit per account (0 for unlimited).",
		apply: func(d *domain.ServerDraft, text string) (err error) {
			d.IPLimit, err = parseAmount(text, 0)
			return err
		},
	},
	domain.PhaseServerMaxAccounts: {
		prompt: "Send the maximum number of accounts (0 for unlimited).",
	},
}

// parseAmount parses a whole number, tolerating thousands separators
func parseAmount(text string, minimum int64) (int64, error) {
	clean := strings.NewReplacer(".", "", ",", "", " ", "").Replace(text)
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("%w: send a whole number of at least %d", domain.ErrInvalidInput, minimum)
	}
	return n, nil
}

// BeginAddServer starts the add-server chain
func (e *Engine) BeginAddServer(ctx context.Context, chatID, adminID int64) ([]Reply, error) {
	if !e.isAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	first := draftPhases[0]
	e.begin(chatID, domain.FlowAddServer, first, nil)
	return []Reply{promptReply(format.Escape(draftFields[first].prompt), cancelRow("flow:cancel"))}, nil
}

func (e *Engine) addServerStep(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "flow:cancel" {
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	}
	if in.Kind != InputText {
		return nil, nil, errNotMine
	}
	text := strings.TrimSpace(in.Text)

	if s.Phase == domain.PhaseServerMaxAccounts {
		maxAccounts, err := parseAmount(text, 0)
		if err != nil {
			return stay(s, textReply(ErrorText(err)))
		}
		srv, err := e.deps.Servers.Add(ctx, s.Draft, maxAccounts)
		if errors.Is(err, domain.ErrInvalidInput) {
			return finish(textReply(ErrorText(err)))
		}
		if err != nil {
			return e.fail(s, err)
		}
		msg := "✅ " + format.Escape("Server added: ") + format.Flag(srv.CountryCode) + " " +
			format.Bold(srv.Name) + format.Escape(fmt.Sprintf(" (id %d)", srv.ID))
		return finish(textReply(msg))
	}

	field := draftFields[s.Phase]
	draft := s.Draft
	if err := field.apply(&draft, text); err != nil {
		return stay(s, textReply(ErrorText(err)))
	}
	s.Draft = draft
	s.Phase = nextDraftPhase(s.Phase)
	return stay(s, promptReply(format.Escape(draftFields[s.Phase].prompt), cancelRow("flow:cancel")))
}

func nextDraftPhase(p domain.Phase) domain.Phase {
	for i, phase := range draftPhases[:len(draftPhases)-1] {
		if phase == p {
			return draftPhases[i+1]
		}
	}
	return p
}

// BeginPromote asks which user to promote to reseller
func (e *Engine) BeginPromote(ctx context.Context, chatID, adminID int64) ([]Reply, error) {
	if !e.isAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	e.begin(chatID, domain.FlowPromote, domain.PhaseTargetUser, nil)
	return []Reply{promptReply(format.Escape("Send the Telegram ID of the user to promote to reseller."), cancelRow("flow:cancel"))}, nil
}

func (e *Engine) promoteTarget(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "flow:cancel" {
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	}
	if in.Kind != InputText {
		return nil, nil, errNotMine
	}

	id, err := parseUserID(in.Text)
	if err != nil {
		return stay(s, textReply(ErrorText(err)))
	}
	user, err := e.deps.Resellers.Promote(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return stay(s, textReply(format.Escape(fmt.Sprintf("User %d is not registered. Send another ID.", id))))
	case errors.Is(err, domain.ErrInvalidInput):
		return finish(textReply(ErrorText(err)))
	case err != nil:
		return e.fail(s, err)
	}
	return finish(textReply(format.Escape(fmt.Sprintf("✅ User %d is now a %s reseller.", user.ID, user.Level))))
}

// BeginSetLevel asks which reseller's level to change
func (e *Engine) BeginSetLevel(ctx context.Context, chatID, adminID int64) ([]Reply, error) {
	if !e.isAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	e.begin(chatID, domain.FlowSetLevel, domain.PhaseTargetUser, nil)
	return []Reply{promptReply(format.Escape("Send the Telegram ID of the reseller."), cancelRow("flow:cancel"))}, nil
}

func (e *Engine) setLevelTarget(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "flow:cancel" {
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
	if !user.IsReseller() {
		return stay(s, textReply(format.Escape(fmt.Sprintf("User %d is not a reseller. Send another ID.", id))))
	}

	s.TargetUserID = id
	s.Phase = domain.PhaseLevelChoice
	text := format.Escape(fmt.Sprintf("User %d is %s. Choose the new level:", id, user.Level))
	return stay(s, promptReply(text, append(levelKeyboard(), cancelRow("flow:cancel"))...))
}

func (e *Engine) setLevelChoice(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	switch in.Kind {
	case InputText:
		return stay(s, textReply(format.Escape("Use the buttons above to choose the level.")))
	case InputCallback:
	default:
		return nil, nil, errNotMine
	}
	if in.Text == "flow:cancel" {
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	}
	raw, ok := strings.CutPrefix(in.Text, "lvl:")
	if !ok {
		return nil, nil, errNotMine
	}

	user, err := e.deps.Resellers.SetLevel(ctx, s.TargetUserID, domain.ResellerLevel(raw))
	if errors.Is(err, domain.ErrInvalidInput) {
		return stay(s, Reply{Unchanged: true, Alert: "Unknown level"})
	}
	if err != nil {
		return e.fail(s, err)
	}
	text := format.Escape(fmt.Sprintf("✅ User %d is now %s.", user.ID, user.Level))
	return finish(Reply{Message: chat.Message{Text: text}, Edit: true})
}

// BeginBroadcast asks for the text to send to every user
func (e *Engine) BeginBroadcast(ctx context.Context, chatID, adminID int64) ([]Reply, error) {
	if !e.isAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	e.begin(chatID, domain.FlowBroadcast, domain.PhaseBroadcastText, nil)
	return []Reply{promptReply(format.Escape("Send the message to broadcast to every user."), cancelRow("flow:cancel"))}, nil
}

// broadcastText hands the message to the broadcaster in the background
// and reports the tally to the admin once it is done.
func (e *Engine) broadcastText(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "flow:cancel" {
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	}
	if in.Kind != InputText {
		return nil, nil, errNotMine
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return stay(s, textReply(format.Escape("The message is empty. Send the text to broadcast.")))
	}

	msg := chat.Message{Text: format.Escape(text)}
	chatID := s.ChatID
	bg := context.WithoutCancel(ctx)
	e.spawn(func() {
		tally, err := e.deps.Broadcaster.Broadcast(bg, msg)
		if err != nil {
			e.logger.Error("Broadcast failed", zap.Error(err))
		}
		report := format.Escape(fmt.Sprintf("📣 Broadcast finished: %d sent, %d failed, %d total.",
			tally.Sent, tally.Failed, tally.Total))
		sendCtx, cancel := context.WithTimeout(bg, 10*time.Second)
		defer cancel()
		if err := e.deps.Notifier.Send(sendCtx, chatID, chat.Message{Text: report}); err != nil {
			e.logger.Warn("Failed to report broadcast", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	})
	return finish(textReply(format.Escape("📣 Broadcast started.")))
}

// BeginRestore asks for a database file to restore from
func (e *Engine) BeginRestore(ctx context.Context, chatID, adminID int64) ([]Reply, error) {
	if !e.isAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	e.begin(chatID, domain.FlowRestore, domain.PhaseRestoreUpload, nil)
	return []Reply{promptReply(format.Escape("Send the backup .db file to restore."), cancelRow("flow:cancel"))}, nil
}

func (e *Engine) restoreUpload(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	switch {
	case in.Kind == InputCallback && in.Text == "flow:cancel":
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	case in.Kind == InputText:
		return stay(s, textReply(format.Escape("Send the backup as a file, not as text.")))
	case in.Kind != InputDocument:
		return nil, nil, errNotMine
	}

	rc, err := e.deps.Files.Open(ctx, in.FileID)
	if err != nil {
		return e.fail(s, fmt.Errorf("download backup: %w", err))
	}
	defer rc.Close()

	if err := e.deps.Restorer.RestoreFrom(ctx, rc); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return finish(textReply(ErrorText(err)))
		}
		return e.fail(s, err)
	}
	e.logger.Info("Database restored from upload",
		zap.Int64("chat_id", s.ChatID),
		zap.String("file_name", in.FileName),
	)
	return finish(textReply("✅ " + format.Escape("Database restored from "+in.FileName+".")))
}
