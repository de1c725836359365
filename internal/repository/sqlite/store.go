// Package sqlite implements the repositories on top of a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"vpnstore/internal/repository"
)

// Conn provides the current connection pool
type Conn interface {
	DB() *sql.DB
}

type staticConn struct {
	db *sql.DB
}

func (c staticConn) DB() *sql.DB { return c.db }

// Static wraps a fixed connection pool
func Static(db *sql.DB) Conn {
	return staticConn{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store
type Store struct {
	conn Conn
	tx   *sql.Tx
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a store reading the pool from conn on every call, so a
// reopened database is picked up without rewiring.
func NewStore(conn Conn) *Store {
	return &Store{conn: conn}
}

func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.conn.DB()
}

func (s *Store) Users() repository.UserRepository             { return &UserRepo{s} }
func (s *Store) Servers() repository.ServerRepository         { return &ServerRepo{s} }
func (s *Store) Accounts() repository.AccountRepository       { return &AccountRepo{s} }
func (s *Store) Invoices() repository.InvoiceRepository       { return &InvoiceRepo{s} }
func (s *Store) Deposits() repository.DepositRepository       { return &DepositRepo{s} }
func (s *Store) Sales() repository.SaleRepository             { return &SaleRepo{s} }
func (s *Store) Trials() repository.TrialRepository           { return &TrialRepo{s} }
func (s *Store) BalanceLogs() repository.BalanceLogRepository { return &BalanceLogRepo{s} }

// WithTx runs fn in a transaction. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Store{conn: s.conn, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// affected maps a zero-row update to notFound
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
