package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vpnstore/internal/domain"
)

// InvoiceRepo implements repository.InvoiceRepository
type InvoiceRepo struct {
	s *Store
}

// CreateInvoice inserts an invoice
func (r *InvoiceRepo) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (id, user_id, server_id, protocol, action, username, days, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.s.q().ExecContext(ctx, query,
		inv.ID, inv.UserID, inv.ServerID, inv.Protocol, inv.Action, inv.Username, inv.Days, inv.Amount)
	return err
}

// SaleRepo implements repository.SaleRepository
type SaleRepo struct {
	s *Store
}

// RecordSale inserts a reseller sale
func (r *SaleRepo) RecordSale(ctx context.Context, sale *domain.ResellerSale) error {
	query := `
		INSERT INTO reseller_sales (reseller_id, invoice_id, username, protocol, amount, commission)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.s.q().ExecContext(ctx, query,
		sale.ResellerID, sale.InvoiceID, sale.Username, sale.Protocol, sale.Amount, sale.Commission)
	return err
}

// TrialRepo implements repository.TrialRepository
type TrialRepo struct {
	s *Store
}

// LastTrial returns when the user last took a trial of protocol
func (r *TrialRepo) LastTrial(ctx context.Context, userID int64, protocol domain.Protocol) (time.Time, bool, error) {
	query := `
		SELECT created_at FROM trial_logs
		WHERE user_id = ? AND protocol = ?
		ORDER BY created_at DESC LIMIT 1
	`
	var at time.Time
	err := r.s.q().QueryRowContext(ctx, query, userID, protocol).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// LogTrial records a trial account
func (r *TrialRepo) LogTrial(ctx context.Context, userID int64, protocol domain.Protocol, username string) error {
	query := `INSERT INTO trial_logs (user_id, protocol, username) VALUES (?, ?, ?)`
	_, err := r.s.q().ExecContext(ctx, query, userID, protocol, username)
	return err
}

// BalanceLogRepo implements repository.BalanceLogRepository
type BalanceLogRepo struct {
	s *Store
}

// LogBalance stores a balance movement
func (r *BalanceLogRepo) LogBalance(ctx context.Context, entry *domain.BalanceLog) error {
	query := `INSERT INTO balance_logs (user_id, amount, kind, reference) VALUES (?, ?, ?, ?)`
	_, err := r.s.q().ExecContext(ctx, query, entry.UserID, entry.Amount, entry.Kind, entry.Reference)
	return err
}
