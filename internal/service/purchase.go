package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
	"vpnstore/internal/metrics"
	"vpnstore/internal/provisioner"
	"vpnstore/internal/repository"
)

// Order is a fully specified purchase
type Order struct {
	UserID   int64
	Action   domain.Action
	Protocol domain.Protocol
	ServerID int64
	Username string
	Password string
	Days     int
}

// Receipt is the outcome of a committed purchase
type Receipt struct {
	Invoice      domain.Invoice
	Quote        domain.Quote
	Server       domain.Server
	Account      provisioner.Account
	ExpiresAt    time.Time
	Balance      int64
	Level        domain.ResellerLevel
	LevelChanged bool
}

// PurchaseService prices, provisions and records account purchases
type PurchaseService struct {
	store       repository.Store
	provisioner provisioner.ProtocolProvisioner
	notifier    chat.Notifier
	settings    Settings
	logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(
	store repository.Store,
	prov provisioner.ProtocolProvisioner,
	notifier chat.Notifier,
	settings Settings,
	logger *zap.Logger,
) *PurchaseService {
	return &PurchaseService{
		store:       store,
		provisioner: prov,
		notifier:    notifier,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Quote prices days of protocol on a server for the user
func (s *PurchaseService) Quote(ctx context.Context, userID, serverID int64, protocol domain.Protocol, days int) (domain.Quote, error) {
	user, err := s.store.Users().GetUser(ctx, userID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("get user: %w", err)
	}
	server, err := s.store.Servers().GetServer(ctx, serverID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("get server: %w", err)
	}
	return domain.PriceQuote(user, protocol, server.Price, days), nil
}

// CheckUsername validates the username for the action. Create needs it to
// be free under every member protocol, renew needs it to exist under all
// of them.
func (s *PurchaseService) CheckUsername(ctx context.Context, action domain.Action, protocol domain.Protocol, username string) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}

	var missing []domain.Protocol
	for _, p := range protocol.Members() {
		exists, err := s.store.Accounts().AccountExists(ctx, username, p)
		if err != nil {
			return fmt.Errorf("check account: %w", err)
		}
		switch {
		case action == domain.ActionCreate && exists:
			return domain.ErrUsernameTaken
		case action == domain.ActionRenew && !exists:
			missing = append(missing, p)
		}
	}

	if len(missing) == 0 {
		return nil
	}
	if protocol == domain.ProtocolBundle {
		return &domain.AccountIncompleteError{Username: username, Missing: missing}
	}
	return fmt.Errorf("%w: account %s", domain.ErrNotFound, username)
}

// Commit charges the user and provisions the order. Provisioning runs
// first; every database write then happens in one transaction, and a
// created account is deleted again when that transaction fails.
func (s *PurchaseService) Commit(ctx context.Context, o Order) (rec *Receipt, err error) {
	defer func() {
		var total int64
		if rec != nil {
			total = rec.Quote.Total
		}
		metrics.ObservePurchase(string(o.Protocol), string(o.Action), total, err)
	}()

	if !domain.ValidDuration(o.Days) {
		return nil, fmt.Errorf("%w: duration %d", domain.ErrInvalidInput, o.Days)
	}

	user, err := s.store.Users().GetUser(ctx, o.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	server, err := s.store.Servers().GetServer(ctx, o.ServerID)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}

	members := o.Protocol.Members()
	if o.Action == domain.ActionCreate && server.MaxAccounts > 0 &&
		server.TotalAccounts+int64(len(members)) > server.MaxAccounts {
		return nil, domain.ErrServerFull
	}

	quote := domain.PriceQuote(user, o.Protocol, server.Price, o.Days)
	if user.Saldo < quote.Total {
		return nil, domain.ErrInsufficientBalance
	}

	if err := s.CheckUsername(ctx, o.Action, o.Protocol, o.Username); err != nil {
		return nil, err
	}

	req := provisioner.Request{
		Server:   *server,
		Protocol: o.Protocol,
		Username: o.Username,
		Password: o.Password,
		Days:     o.Days,
	}

	var acc *provisioner.Account
	if o.Action == domain.ActionCreate {
		acc, err = s.provisioner.Create(ctx, req)
	} else {
		acc, err = s.provisioner.Renew(ctx, req)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrUsernameTaken) {
			s.logger.Error("Provisioning failed",
				zap.Int64("user_id", o.UserID),
				zap.String("protocol", string(o.Protocol)),
				zap.String("action", string(o.Action)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	now := s.now()
	rec = &Receipt{
		Invoice: domain.Invoice{
			ID:        s.newID(),
			UserID:    user.ID,
			ServerID:  server.ID,
			Protocol:  o.Protocol,
			Action:    o.Action,
			Username:  o.Username,
			Days:      o.Days,
			Amount:    quote.Total,
			CreatedAt: now,
		},
		Quote:   quote,
		Server:  *server,
		Account: *acc,
		Level:   user.Level,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Debit(ctx, user.ID, quote.Total); err != nil {
			return err
		}
		if o.Action == domain.ActionCreate {
			if err := tx.Servers().IncrementAccounts(ctx, server.ID, len(members)); err != nil {
				return fmt.Errorf("increment accounts: %w", err)
			}
		}
		if err := tx.Invoices().CreateInvoice(ctx, &rec.Invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		for _, p := range members {
			expires, err := s.expiry(ctx, tx, o, p, acc, now)
			if err != nil {
				return err
			}
			rec.ExpiresAt = expires
			if err := tx.Accounts().SaveAccount(ctx, &domain.ActiveAccount{
				UserID:    user.ID,
				ServerID:  server.ID,
				Username:  o.Username,
				Protocol:  p,
				ExpiresAt: expires,
			}); err != nil {
				return fmt.Errorf("save account: %w", err)
			}
		}

		if err := tx.BalanceLogs().LogBalance(ctx, &domain.BalanceLog{
			UserID:    user.ID,
			Amount:    -quote.Total,
			Kind:      domain.BalanceKindPurchase,
			Reference: rec.Invoice.ID,
		}); err != nil {
			return fmt.Errorf("log balance: %w", err)
		}

		if user.IsReseller() && quote.Commission > 0 {
			if err := s.creditCommission(ctx, tx, user, rec); err != nil {
				return err
			}
		}

		after, err := tx.Users().GetUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		rec.Balance = after.Saldo
		return nil
	})
	if err != nil {
		if o.Action == domain.ActionCreate {
			s.compensate(ctx, req)
		}
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return nil, err
		}
		s.logger.Error("Failed to record purchase",
			zap.Int64("user_id", o.UserID),
			zap.String("username", o.Username),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	s.logger.Info("Purchase completed",
		zap.String("invoice_id", rec.Invoice.ID),
		zap.Int64("user_id", user.ID),
		zap.String("protocol", string(o.Protocol)),
		zap.String("action", string(o.Action)),
		zap.Int64("total", quote.Total),
	)

	notifyGroup(ctx, s.notifier, s.settings, s.logger, chat.Message{Text: rec.Text(false)})
	if rec.LevelChanged {
		notifyGroup(ctx, s.notifier, s.settings, s.logger, chat.Message{Text: levelUpText(user, rec.Level)})
	}
	return rec, nil
}

func (s *PurchaseService) creditCommission(ctx context.Context, tx repository.Store, user *domain.User, rec *Receipt) error {
	if err := tx.Sales().RecordSale(ctx, &domain.ResellerSale{
		ResellerID: user.ID,
		InvoiceID:  rec.Invoice.ID,
		Username:   rec.Invoice.Username,
		Protocol:   rec.Invoice.Protocol,
		Amount:     rec.Quote.Total,
		Commission: rec.Quote.Commission,
	}); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}

	total, err := tx.Users().AddCommission(ctx, user.ID, rec.Quote.Commission)
	if err != nil {
		return fmt.Errorf("add commission: %w", err)
	}

	// Levels earned by commission only go up; a manual downgrade sticks
	// until the next threshold is crossed again.
	next := domain.LevelFor(total)
	if next.Rank() > user.Level.Rank() {
		if err := tx.Users().SetLevel(ctx, user.ID, next); err != nil {
			return fmt.Errorf("set level: %w", err)
		}
		rec.Level = next
		rec.LevelChanged = true
	}
	return nil
}

// expiry returns the new expiry of the account under protocol p
func (s *PurchaseService) expiry(ctx context.Context, tx repository.Store, o Order, p domain.Protocol, acc *provisioner.Account, now time.Time) (time.Time, error) {
	if !acc.ExpiresAt.IsZero() {
		return acc.ExpiresAt, nil
	}
	base := now
	if o.Action == domain.ActionRenew {
		existing, err := tx.Accounts().GetAccount(ctx, o.Username, p)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return time.Time{}, fmt.Errorf("get account: %w", err)
		}
		if existing != nil && existing.ExpiresAt.After(now) {
			base = existing.ExpiresAt
		}
	}
	return base.AddDate(0, 0, o.Days), nil
}

func (s *PurchaseService) compensate(ctx context.Context, req provisioner.Request) {
	ctx = context.WithoutCancel(ctx)
	if err := s.provisioner.Delete(ctx, req.Server, req.Protocol, req.Username); err != nil {
		s.logger.Error("Failed to delete account after aborted purchase",
			zap.String("username", req.Username),
			zap.String("protocol", string(req.Protocol)),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("Deleted account after aborted purchase",
		zap.String("username", req.Username),
		zap.String("protocol", string(req.Protocol)),
	)
}

// Text renders the invoice. The private variant, sent to the buyer,
// includes the password, connection links and remaining balance.
func (r *Receipt) Text(private bool) string {
	var b strings.Builder
	b.WriteString(format.Bold("INVOICE") + "\n")
	b.WriteString("ID: " + format.Code(r.Invoice.ID) + "\n")
	b.WriteString("Product: " + format.Bold(r.Invoice.Protocol.Label()) + " " + format.Escape("("+string(r.Invoice.Action)+")") + "\n")
	b.WriteString("Server: " + format.Flag(r.Server.CountryCode) + " " + format.Escape(r.Server.Name) + "\n")
	b.WriteString("Username: " + format.Code(r.Invoice.Username) + "\n")
	if private && r.Account.Password != "" {
		b.WriteString("Password: " + format.Code(r.Account.Password) + "\n")
	}
	b.WriteString(format.Escape(fmt.Sprintf("Duration: %d days", r.Invoice.Days)) + "\n")
	if r.Quote.DiscountPercent > 0 {
		b.WriteString(format.Escape(fmt.Sprintf("Discount: %d%%", r.Quote.DiscountPercent)) + "\n")
	}
	b.WriteString("Total: " + format.Bold(format.Rupiah(r.Quote.Total)) + "\n")
	if !r.ExpiresAt.IsZero() {
		b.WriteString("Expires: " + format.Escape(r.ExpiresAt.Format("2006-01-02 15:04")) + "\n")
	}
	if private {
		if r.Account.Domain != "" {
			b.WriteString("Host: " + format.Code(r.Account.Domain) + "\n")
		}
		keys := make([]string, 0, len(r.Account.Links))
		for k := range r.Account.Links {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(format.Escape(k) + ": " + format.Code(r.Account.Links[k]) + "\n")
		}
		b.WriteString("Balance: " + format.Escape(format.Rupiah(r.Balance)) + "\n")
	}
	if r.Quote.Commission > 0 {
		b.WriteString("Commission: " + format.Escape(format.Rupiah(r.Quote.Commission)) + "\n")
	}
	return b.String()
}

func levelUpText(user *domain.User, level domain.ResellerLevel) string {
	name := user.Username
	if name == "" {
		name = fmt.Sprintf("%d", user.ID)
	}
	return format.Escape("Reseller "+name+" reached level ") + format.Bold(strings.ToUpper(string(level)))
}
