package handler

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/chat"
	"vpnstore/internal/conversation"
)

// handleText feeds free text to the active flow
func (h *Handler) handleText(c tele.Context) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	in := input(c, conversation.InputText)
	in.Text = c.Text()

	res := h.engine.Handle(ctx, in)
	if res.Handled {
		return h.deliver(c, res.Replies)
	}
	return h.deliver(c, []conversation.Reply{{Message: chat.Message{Text: unknownText}}})
}

// handlePhoto feeds photos to the active flow. Photos nobody waits for,
// including late payment proofs, are ignored.
func (h *Handler) handlePhoto(c tele.Context) error {
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	in := input(c, conversation.InputPhoto)
	in.FileID = photo.FileID

	res := h.engine.Handle(ctx, in)
	if !res.Handled {
		h.logger.Debug("Ignored photo outside a flow", zap.Int64("user_id", in.UserID))
		return nil
	}
	return h.deliver(c, res.Replies)
}

// handleDocument feeds documents to the active flow
func (h *Handler) handleDocument(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	in := input(c, conversation.InputDocument)
	in.FileID = doc.FileID
	in.FileName = doc.FileName

	res := h.engine.Handle(ctx, in)
	if !res.Handled {
		h.logger.Debug("Ignored document outside a flow", zap.Int64("user_id", in.UserID))
		return nil
	}
	return h.deliver(c, res.Replies)
}
