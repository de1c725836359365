package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"vpnstore/internal/domain"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	s *Store
}

// EnsureUser creates the user if not exists and refreshes the username
func (r *UserRepo) EnsureUser(ctx context.Context, id int64, username string) error {
	query := `
		INSERT INTO users (id, username)
		VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET username = excluded.username
	`
	_, err := r.s.q().ExecContext(ctx, query, id, username)
	return err
}

// GetUser returns the user by telegram id
func (r *UserRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, username, saldo, role, reseller_level, total_commission, created_at
		FROM users WHERE id = ?
	`
	var u domain.User
	err := r.s.q().QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Saldo, &u.Role, &u.Level, &u.TotalCommission, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUserIDs returns every registered user id
func (r *UserRepo) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.s.q().QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountUsers returns the number of registered users
func (r *UserRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.s.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// Debit subtracts amount when the balance covers it
func (r *UserRepo) Debit(ctx context.Context, id int64, amount int64) error {
	query := `UPDATE users SET saldo = saldo - ? WHERE id = ? AND saldo >= ?`
	res, err := r.s.q().ExecContext(ctx, query, amount, id, amount)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrInsufficientBalance)
}

// Credit adds amount to the balance
func (r *UserRepo) Credit(ctx context.Context, id int64, amount int64) error {
	res, err := r.s.q().ExecContext(ctx, `UPDATE users SET saldo = saldo + ? WHERE id = ?`, amount, id)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrNotFound)
}

// SetRole changes the role and level together
func (r *UserRepo) SetRole(ctx context.Context, id int64, role domain.Role, level domain.ResellerLevel) error {
	query := `UPDATE users SET role = ?, reseller_level = ? WHERE id = ?`
	res, err := r.s.q().ExecContext(ctx, query, role, level, id)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrNotFound)
}

// SetLevel changes the reseller level
func (r *UserRepo) SetLevel(ctx context.Context, id int64, level domain.ResellerLevel) error {
	res, err := r.s.q().ExecContext(ctx, `UPDATE users SET reseller_level = ? WHERE id = ?`, level, id)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrNotFound)
}

// AddCommission adds to the cumulative commission and returns the new total
func (r *UserRepo) AddCommission(ctx context.Context, id int64, amount int64) (int64, error) {
	query := `
		UPDATE users SET total_commission = total_commission + ?
		WHERE id = ?
		RETURNING total_commission
	`
	var total int64
	err := r.s.q().QueryRowContext(ctx, query, amount, id).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return total, err
}
