package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vpnstore/internal/domain"
)

// ServerRepo implements repository.ServerRepository
type ServerRepo struct {
	s *Store
}

const serverColumns = `id, name, domain, country_code, auth, price, quota_gb, ip_limit,
	max_accounts, total_accounts, created_at`

func scanServer(row interface{ Scan(...any) error }) (domain.Server, error) {
	var s domain.Server
	err := row.Scan(&s.ID, &s.Name, &s.Domain, &s.CountryCode, &s.Auth, &s.Price,
		&s.QuotaGB, &s.IPLimit, &s.MaxAccounts, &s.TotalAccounts, &s.CreatedAt)
	return s, err
}

// CreateServer inserts a server and returns its id
func (r *ServerRepo) CreateServer(ctx context.Context, s *domain.Server) (int64, error) {
	query := `
		INSERT INTO servers (name, domain, country_code, auth, price, quota_gb, ip_limit, max_accounts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.s.q().ExecContext(ctx, query,
		s.Name, s.Domain, s.CountryCode, s.Auth, s.Price, s.QuotaGB, s.IPLimit, s.MaxAccounts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetServer returns a server by id
func (r *ServerRepo) GetServer(ctx context.Context, id int64) (*domain.Server, error) {
	row := r.s.q().QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	s, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListServers returns all servers ordered by id
func (r *ServerRepo) ListServers(ctx context.Context) ([]domain.Server, error) {
	rows, err := r.s.q().QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []domain.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

// UpdateServerField sets one numeric attribute
func (r *ServerRepo) UpdateServerField(ctx context.Context, id int64, field domain.ServerField, value int64) error {
	if _, ok := domain.ParseServerField(string(field)); !ok {
		return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, field)
	}
	query := fmt.Sprintf(`UPDATE servers SET %s = ? WHERE id = ?`, field.Column())
	res, err := r.s.q().ExecContext(ctx, query, value, id)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrNotFound)
}

// IncrementAccounts bumps the server's account counter by n
func (r *ServerRepo) IncrementAccounts(ctx context.Context, id int64, n int) error {
	query := `UPDATE servers SET total_accounts = total_accounts + ? WHERE id = ?`
	res, err := r.s.q().ExecContext(ctx, query, n, id)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrNotFound)
}

// DeleteServer removes a server
func (r *ServerRepo) DeleteServer(ctx context.Context, id int64) error {
	res, err := r.s.q().ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrNotFound)
}
