package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vpnstore/internal/domain"
)

// DepositRepo implements repository.DepositRepository
type DepositRepo struct {
	s *Store
}

const depositColumns = `id, user_id, amount, method, status, reference, proof_file_id, created_at, updated_at`

func (r *DepositRepo) get(ctx context.Context, where string, arg any) (*domain.Deposit, error) {
	var d domain.Deposit
	err := r.s.q().QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposits WHERE `+where+` = ?`, arg).Scan(
		&d.ID, &d.UserID, &d.Amount, &d.Method, &d.Status, &d.Reference, &d.ProofFileID, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDeposit inserts a new deposit
func (r *DepositRepo) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	query := `
		INSERT INTO deposits (id, user_id, amount, method, status, reference)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.s.q().ExecContext(ctx, query, d.ID, d.UserID, d.Amount, d.Method, d.Status, d.Reference)
	return err
}

// GetDeposit returns a deposit by id
func (r *DepositRepo) GetDeposit(ctx context.Context, id string) (*domain.Deposit, error) {
	return r.get(ctx, "id", id)
}

// GetDepositByReference returns a deposit by its payment reference
func (r *DepositRepo) GetDepositByReference(ctx context.Context, reference string) (*domain.Deposit, error) {
	return r.get(ctx, "reference", reference)
}

// AttachProof stores the proof file and marks the deposit for verification
func (r *DepositRepo) AttachProof(ctx context.Context, id string, fileID string) error {
	query := `
		UPDATE deposits
		SET proof_file_id = ?, status = 'awaiting_verification', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('pending', 'awaiting_verification')
	`
	res, err := r.s.q().ExecContext(ctx, query, fileID, id)
	if err != nil {
		return err
	}
	return affected(res, domain.ErrNotFound)
}

// TransitionDeposit moves an open deposit to status
func (r *DepositRepo) TransitionDeposit(ctx context.Context, id string, status domain.DepositStatus) (bool, error) {
	query := `
		UPDATE deposits SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('pending', 'awaiting_verification')
	`
	res, err := r.s.q().ExecContext(ctx, query, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountPendingDeposits returns the number of deposits still open
func (r *DepositRepo) CountPendingDeposits(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM deposits WHERE status IN ('pending', 'awaiting_verification')`
	var n int
	err := r.s.q().QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

// ExpireStale expires pending deposits created before cutoff. Deposits
// waiting for an admin decision are left alone.
func (r *DepositRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE deposits SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'pending' AND created_at < ?
	`
	res, err := r.s.q().ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
