package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
)

// BeginDeposit asks the user how much to deposit
func (e *Engine) BeginDeposit(ctx context.Context, chatID int64) ([]Reply, error) {
	e.begin(chatID, domain.FlowDeposit, domain.PhaseAmount, nil)
	text := format.Bold("Deposit") + "\n\n" +
		format.Escape("Send the amount to deposit, minimum "+format.Rupiah(e.deps.Deposits.MinDeposit())+".")
	return []Reply{promptReply(text, cancelRow("flow:cancel"))}, nil
}

func (e *Engine) depositAmount(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	if in.Kind == InputCallback && in.Text == "flow:cancel" {
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	}
	if in.Kind != InputText {
		return nil, nil, errNotMine
	}

	amount, err := parseAmount(strings.TrimPrefix(strings.TrimSpace(in.Text), "Rp"), 1)
	if err == nil {
		err = e.deps.Deposits.ValidateAmount(amount)
	}
	if err != nil {
		return stay(s, textReply(ErrorText(err)))
	}

	s.Amount = amount
	s.Phase = domain.PhaseMethod
	text := format.Escape("Deposit "+format.Rupiah(amount)+". Choose the payment method:")
	return stay(s, promptReply(text,
		chat.Row(chat.Btn("💳 Payment gateway", "dep:gateway")),
		chat.Row(chat.Btn("🔳 QRIS + proof", "dep:qris")),
		cancelRow("flow:cancel"),
	))
}

func (e *Engine) depositMethod(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	switch in.Kind {
	case InputText:
		return stay(s, textReply(format.Escape("Use the buttons above to choose the payment method.")))
	case InputCallback:
	default:
		return nil, nil, errNotMine
	}

	var method domain.DepositMethod
	switch in.Text {
	case "flow:cancel":
		return finish(Reply{Message: chat.Message{Text: cancelledText}, Edit: true})
	case "dep:gateway":
		method = domain.MethodGateway
	case "dep:qris":
		method = domain.MethodStaticQRIS
	default:
		return nil, nil, errNotMine
	}

	d, png, err := e.deps.Deposits.Create(ctx, in.UserID, s.Amount, method)
	if errors.Is(err, domain.ErrInvalidInput) {
		return finish(textReply(ErrorText(err)))
	}
	if err != nil {
		return e.fail(s, err)
	}

	if method == domain.MethodGateway {
		text := format.Bold("Deposit "+format.Rupiah(d.Amount)) + "\n" +
			"Reference: " + format.Code(d.Reference) + "\n\n" +
			format.Escape("Pay with the reference above. Your balance is credited as soon as the payment settles.")
		return finish(Reply{Message: chat.Message{Text: text}, Edit: true})
	}

	s.Phase = domain.PhaseProofUpload
	s.DepositID = d.ID
	caption := format.Bold("Pay exactly "+format.Rupiah(d.Amount)) + "\n" +
		"Reference: " + format.Code(d.Reference) + "\n\n" +
		format.Escape("Scan the QRIS code, then send a photo of the payment receipt within 5 minutes.")
	return stay(s, Reply{Message: chat.Message{Text: caption, PhotoPNG: png}})
}

func (e *Engine) depositProof(ctx context.Context, s *domain.Session, in Input) (*domain.Session, []Reply, error) {
	switch in.Kind {
	case InputText:
		return stay(s, textReply(format.Escape("Send the payment receipt as a photo.")))
	case InputPhoto:
	default:
		return nil, nil, errNotMine
	}

	if err := e.deps.Deposits.SubmitProof(ctx, in.UserID, s.DepositID, in.FileID); err != nil {
		var settled *domain.DepositSettledError
		if errors.As(err, &settled) || errors.Is(err, domain.ErrForbidden) {
			return finish(textReply(ErrorText(err)))
		}
		return e.fail(s, fmt.Errorf("submit proof: %w", err))
	}
	return finish(textReply("🧾 " + format.Escape("Proof received. An admin will verify your payment shortly.")))
}
