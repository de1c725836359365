package handler

import (
	"bytes"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/chat"
	"vpnstore/internal/conversation"
)

// toMarkup converts chat buttons into an inline keyboard. Buttons carry raw
// callback data so every press reaches OnCallback.
func toMarkup(rows [][]chat.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			r = append(r, tele.InlineButton{Text: b.Text, Data: b.Data})
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

func sendOptions(msg chat.Message) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: toMarkup(msg.Buttons)}
}

// content picks what to send: a photo with the text as caption, or the text
func content(msg chat.Message) interface{} {
	switch {
	case len(msg.PhotoPNG) > 0:
		return &tele.Photo{File: tele.FromReader(bytes.NewReader(msg.PhotoPNG)), Caption: msg.Text}
	case msg.PhotoFileID != "":
		return &tele.Photo{File: tele.File{FileID: msg.PhotoFileID}, Caption: msg.Text}
	}
	return msg.Text
}

func isPhoto(msg chat.Message) bool {
	return len(msg.PhotoPNG) > 0 || msg.PhotoFileID != ""
}

// isNotModified reports the API error for an edit that changes nothing
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// deliver renders replies in order and answers the callback, if any, once
func (h *Handler) deliver(c tele.Context, replies []conversation.Reply) error {
	var alert string
	for _, r := range replies {
		if r.Alert != "" {
			alert = r.Alert
		}
		if r.Unchanged {
			continue
		}
		if err := h.render(c, r); err != nil {
			h.logger.Error("Failed to deliver reply", zap.Int64("user_id", senderID(c)), zap.Error(err))
		}
	}
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: alert})
	}
	return nil
}

// render edits the callback's message when asked to, falling back to a new message
func (h *Handler) render(c tele.Context, r conversation.Reply) error {
	opts := sendOptions(r.Message)
	if r.Edit && c.Callback() != nil && !isPhoto(r.Message) {
		err := c.Edit(r.Text, opts)
		if err == nil {
			return nil
		}
		if handleErr := h.handleEditError(err, c, senderID(c)); handleErr == nil {
			return nil
		}
	}
	return c.Send(content(r.Message), opts)
}

// handleEditError handles errors from c.Edit(): a message that is not
// modified was already edited by another callback and needs nothing more.
// Otherwise the error is returned so the caller sends a new message.
func (h *Handler) handleEditError(err error, c tele.Context, userID int64) error {
	if err == nil {
		return nil
	}
	if isNotModified(err) {
		h.logger.Debug("Message already modified by another callback",
			zap.Int64("user_id", userID),
		)
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", userID),
	)
	return err
}

func senderID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}
