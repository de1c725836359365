package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"vpnstore/internal/domain"
)

// AccountRepo implements repository.AccountRepository
type AccountRepo struct {
	s *Store
}

// AccountExists checks whether username is active under protocol
func (r *AccountRepo) AccountExists(ctx context.Context, username string, protocol domain.Protocol) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM active_accounts WHERE username = ? AND protocol = ?)`
	var exists bool
	err := r.s.q().QueryRowContext(ctx, query, username, protocol).Scan(&exists)
	return exists, err
}

// GetAccount returns the active account for username under protocol
func (r *AccountRepo) GetAccount(ctx context.Context, username string, protocol domain.Protocol) (*domain.ActiveAccount, error) {
	query := `
		SELECT id, user_id, server_id, username, protocol, expires_at, created_at
		FROM active_accounts WHERE username = ? AND protocol = ?
	`
	var a domain.ActiveAccount
	err := r.s.q().QueryRowContext(ctx, query, username, protocol).Scan(
		&a.ID, &a.UserID, &a.ServerID, &a.Username, &a.Protocol, &a.ExpiresAt, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAccount inserts the account or moves the expiry of an existing one
func (r *AccountRepo) SaveAccount(ctx context.Context, a *domain.ActiveAccount) error {
	query := `
		INSERT INTO active_accounts (user_id, server_id, username, protocol, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username, protocol)
		DO UPDATE SET expires_at = excluded.expires_at, server_id = excluded.server_id
	`
	_, err := r.s.q().ExecContext(ctx, query, a.UserID, a.ServerID, a.Username, a.Protocol, a.ExpiresAt.UTC())
	return err
}

// CountAccounts returns the number of active accounts
func (r *AccountRepo) CountAccounts(ctx context.Context) (int, error) {
	var n int
	err := r.s.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM active_accounts`).Scan(&n)
	return n, err
}
