package handler

import (
	"context"
	"fmt"
	"io"

	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/chat"
)

// Notifier sends chat messages through the bot API outside of any update
type Notifier struct {
	bot *tele.Bot
}

// NewNotifier creates a notifier for bot
func NewNotifier(bot *tele.Bot) *Notifier {
	return &Notifier{bot: bot}
}

// Send implements chat.Notifier
func (n *Notifier) Send(ctx context.Context, chatID int64, msg chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(tele.ChatID(chatID), content(msg), sendOptions(msg)); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// Files downloads files users sent to the bot
type Files struct {
	bot *tele.Bot
}

// NewFiles creates a file opener for bot
func NewFiles(bot *tele.Bot) *Files {
	return &Files{bot: bot}
}

// Open returns the contents of the file with fileID
func (f *Files) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := f.bot.File(&tele.File{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	return rc, nil
}
