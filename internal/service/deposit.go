package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
	"vpnstore/internal/metrics"
	"vpnstore/internal/repository"
)

// DepositService handles balance deposits and their verification
type DepositService struct {
	store    repository.Store
	notifier chat.Notifier
	settings Settings
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewDepositService creates a new deposit service
func NewDepositService(store repository.Store, notifier chat.Notifier, settings Settings, logger *zap.Logger) *DepositService {
	return &DepositService{
		store:    store,
		notifier: notifier,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// MinDeposit returns the smallest accepted deposit
func (s *DepositService) MinDeposit() int64 {
	if cfg := s.settings.Current(); cfg != nil && cfg.MinDeposit > 0 {
		return cfg.MinDeposit
	}
	return 0
}

// ValidateAmount checks a requested deposit amount
func (s *DepositService) ValidateAmount(amount int64) error {
	if minimum := s.MinDeposit(); amount < minimum || amount <= 0 {
		return fmt.Errorf("%w: minimum deposit is %s", domain.ErrInvalidInput, format.Rupiah(minimum))
	}
	return nil
}

// Create opens a pending deposit. For static QRIS it also renders the
// payment code as a PNG.
func (s *DepositService) Create(ctx context.Context, userID, amount int64, method domain.DepositMethod) (*domain.Deposit, []byte, error) {
	if err := s.ValidateAmount(amount); err != nil {
		return nil, nil, err
	}

	d := &domain.Deposit{
		ID:        s.newID(),
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Status:    domain.DepositPending,
		Reference: "DEP-" + strings.ToUpper(strings.ReplaceAll(s.newID(), "-", "")[:12]),
		CreatedAt: s.now(),
	}

	var png []byte
	if method == domain.MethodStaticQRIS {
		cfg := s.settings.Current()
		if cfg == nil || cfg.QRISData == "" {
			return nil, nil, errors.New("qris data is not configured")
		}
		var err error
		png, err = qrcode.Encode(cfg.QRISData, qrcode.Medium, 256)
		if err != nil {
			return nil, nil, fmt.Errorf("render qris: %w", err)
		}
	}

	if err := s.store.Deposits().CreateDeposit(ctx, d); err != nil {
		return nil, nil, fmt.Errorf("create deposit: %w", err)
	}
	metrics.IncDeposit(string(method), string(d.Status))

	s.logger.Info("Deposit created",
		zap.String("deposit_id", d.ID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
		zap.String("method", string(method)),
	)
	return d, png, nil
}

// SubmitProof attaches the payment proof photo and asks the admins to verify
func (s *DepositService) SubmitProof(ctx context.Context, userID int64, depositID, fileID string) error {
	d, err := s.store.Deposits().GetDeposit(ctx, depositID)
	if err != nil {
		return fmt.Errorf("get deposit: %w", err)
	}
	if d.UserID != userID {
		return domain.ErrForbidden
	}
	if !d.Status.Open() {
		return &domain.DepositSettledError{ID: d.ID, Status: d.Status}
	}
	if err := s.store.Deposits().AttachProof(ctx, depositID, fileID); err != nil {
		return fmt.Errorf("attach proof: %w", err)
	}
	metrics.IncDeposit(string(d.Method), string(domain.DepositAwaitingVerification))

	text := format.Bold("Deposit verification") + "\n" +
		"User: " + format.Code(fmt.Sprint(userID)) + "\n" +
		"Amount: " + format.Bold(format.Rupiah(d.Amount)) + "\n" +
		"Reference: " + format.Code(d.Reference)
	notifyAdmins(ctx, s.notifier, s.settings, s.logger, chat.Message{
		Text:        text,
		PhotoFileID: fileID,
		Buttons: [][]chat.Button{chat.Row(
			chat.Btn("✅ Approve", "dep:approve:"+d.ID),
			chat.Btn("❌ Reject", "dep:reject:"+d.ID),
		)},
	})
	return nil
}

// Approve credits an open deposit. Only admins may approve.
func (s *DepositService) Approve(ctx context.Context, adminID int64, depositID string) (*domain.Deposit, error) {
	if !s.settings.Current().IsAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	return s.settle(ctx, depositID, domain.DepositApproved)
}

// Reject closes an open deposit without crediting. Only admins may reject.
func (s *DepositService) Reject(ctx context.Context, adminID int64, depositID string) (*domain.Deposit, error) {
	if !s.settings.Current().IsAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	return s.settle(ctx, depositID, domain.DepositRejected)
}

// GatewayStatus maps a payment gateway status to a deposit status. Pending
// and unknown statuses report ok=false.
func GatewayStatus(status string) (domain.DepositStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "settlement", "success", "paid", "capture":
		return domain.DepositApproved, true
	case "expire", "expired":
		return domain.DepositExpired, true
	case "cancel", "deny", "failed", "failure":
		return domain.DepositRejected, true
	}
	return "", false
}

// Notification is a payment notification delivered by a webhook
type Notification struct {
	Reference string
	Status    string
	// Amount is checked against the deposit when non-zero.
	Amount int64
}

// Settle applies a payment notification to the deposit it references.
// Notifications for pending states leave the deposit untouched.
func (s *DepositService) Settle(ctx context.Context, n Notification) (*domain.Deposit, error) {
	d, err := s.store.Deposits().GetDepositByReference(ctx, n.Reference)
	if err != nil {
		return nil, fmt.Errorf("get deposit: %w", err)
	}

	to, ok := GatewayStatus(n.Status)
	if !ok {
		return d, nil
	}
	if to == domain.DepositApproved && n.Amount != 0 && n.Amount != d.Amount {
		s.logger.Warn("Payment amount mismatch",
			zap.String("deposit_id", d.ID),
			zap.Int64("expected", d.Amount),
			zap.Int64("paid", n.Amount),
		)
		return nil, fmt.Errorf("%w: paid %d, expected %d", domain.ErrInvalidInput, n.Amount, d.Amount)
	}
	return s.settle(ctx, d.ID, to)
}

// settle moves the deposit to status. The transition, the credit and its
// audit entry commit together; a deposit that is no longer open is left
// alone and reported with its current status.
func (s *DepositService) settle(ctx context.Context, depositID string, to domain.DepositStatus) (*domain.Deposit, error) {
	var settled *domain.Deposit
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		d, err := tx.Deposits().GetDeposit(ctx, depositID)
		if err != nil {
			return fmt.Errorf("get deposit: %w", err)
		}

		moved, err := tx.Deposits().TransitionDeposit(ctx, depositID, to)
		if err != nil {
			return fmt.Errorf("transition deposit: %w", err)
		}
		if !moved {
			return &domain.DepositSettledError{ID: d.ID, Status: d.Status}
		}

		if to == domain.DepositApproved {
			if err := tx.Users().Credit(ctx, d.UserID, d.Amount); err != nil {
				return fmt.Errorf("credit user: %w", err)
			}
			if err := tx.BalanceLogs().LogBalance(ctx, &domain.BalanceLog{
				UserID:    d.UserID,
				Amount:    d.Amount,
				Kind:      domain.BalanceKindDeposit,
				Reference: d.ID,
			}); err != nil {
				return fmt.Errorf("log balance: %w", err)
			}
		}

		d.Status = to
		settled = d
		return nil
	})
	if err != nil {
		var settledErr *domain.DepositSettledError
		if !errors.As(err, &settledErr) {
			s.logger.Error("Failed to settle deposit",
				zap.String("deposit_id", depositID),
				zap.String("status", string(to)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	metrics.IncDeposit(string(settled.Method), string(to))
	s.logger.Info("Deposit settled",
		zap.String("deposit_id", settled.ID),
		zap.String("status", string(to)),
	)

	if err := s.notifier.Send(ctx, settled.UserID, chat.Message{Text: settledText(settled)}); err != nil {
		s.logger.Warn("Failed to notify user about deposit", zap.Int64("user_id", settled.UserID), zap.Error(err))
	}
	return settled, nil
}

func settledText(d *domain.Deposit) string {
	switch d.Status {
	case domain.DepositApproved:
		return "✅ " + format.Escape("Deposit of "+format.Rupiah(d.Amount)+" approved. Your balance has been credited.")
	case domain.DepositExpired:
		return format.Escape("Deposit " + d.Reference + " expired.")
	default:
		return "❌ " + format.Escape("Deposit of "+format.Rupiah(d.Amount)+" was rejected.")
	}
}
