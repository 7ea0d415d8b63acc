package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// WalletRepository owns the prepaid balance. Debit is the only way the
// balance goes down and is a single compare-and-decrement: it fully succeeds
// or leaves the balance untouched, even under concurrent callers.
type WalletRepository interface {
	Balance(ctx context.Context, tenantID int64) (int64, error)
	Debit(ctx context.Context, tenantID, amount int64, ref string) (bool, error)
	Topup(ctx context.Context, tenantID, amount int64, requestID string) (bool, error)
}

type walletRepo struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) Balance(ctx context.Context, tenantID int64) (int64, error) {
	var bal int64
	err := r.db.GetContext(ctx, &bal,
		`SELECT balance FROM wallet_accounts WHERE tenant_id = ?`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return bal, err
}

// Debit decrements the balance only while it stays non-negative and journals
// the operation. The conditional UPDATE is the atomicity point: zero affected
// rows means insufficient funds and nothing is written.
func (r *walletRepo) Debit(ctx context.Context, tenantID, amount int64, ref string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE wallet_accounts
		   SET balance = balance - ?, updated_at = NOW()
		 WHERE tenant_id = ? AND balance >= ?
	`, amount, tenantID, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (tenant_id, op, amount, idempotency_key)
		VALUES (?, 'debit', ?, ?)
		ON DUPLICATE KEY UPDATE id = id
	`, tenantID, amount, ref)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Topup credits the balance once per request id. Returns false when the
// request id was already journaled.
func (r *walletRepo) Topup(ctx context.Context, tenantID, amount int64, requestID string) (bool, error) {
	idem := "topup-" + requestID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_accounts (tenant_id, balance, created_at, updated_at)
		VALUES (?, 0, NOW(), NOW())
		ON DUPLICATE KEY UPDATE tenant_id = tenant_id
	`, tenantID)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (tenant_id, op, amount, idempotency_key)
		VALUES (?, 'topup', ?, ?)
		ON DUPLICATE KEY UPDATE id = id
	`, tenantID, amount, idem)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// duplicate request id; balance already credited
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallet_accounts
		   SET balance = balance + ?, updated_at = NOW()
		 WHERE tenant_id = ?
	`, amount, tenantID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
