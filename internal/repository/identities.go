package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alizand/leadwire/internal/model"
	"github.com/jmoiron/sqlx"
)

// IdentitiesRepository persists the shared sender-identity pool. Assign is
// the compare-and-set primitive: it only takes effect while the row is still
// unassigned.
type IdentitiesRepository interface {
	Assigned(ctx context.Context, tenantID int64) (*model.SenderIdentity, error)
	OldestAvailable(ctx context.Context) (*model.SenderIdentity, error)
	Assign(ctx context.Context, identityID, tenantID int64, at time.Time) (bool, error)
	Release(ctx context.Context, identityID int64) error
}

type IdentitiesRepositoryImpl struct {
	db *sqlx.DB
}

func NewIdentitiesRepository(db *sqlx.DB) *IdentitiesRepositoryImpl {
	return &IdentitiesRepositoryImpl{db: db}
}

var _ IdentitiesRepository = (*IdentitiesRepositoryImpl)(nil)

const identityColumns = `
	id, address, pool_type, verified, status, assigned_tenant, assigned_at, created_at
`

func (r *IdentitiesRepositoryImpl) Assigned(ctx context.Context, tenantID int64) (*model.SenderIdentity, error) {
	var ident model.SenderIdentity
	err := r.db.GetContext(ctx, &ident, `
		SELECT `+identityColumns+`
		  FROM sender_identities
		 WHERE assigned_tenant = ? AND status = 'active'
		 LIMIT 1
	`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

func (r *IdentitiesRepositoryImpl) OldestAvailable(ctx context.Context) (*model.SenderIdentity, error) {
	var ident model.SenderIdentity
	err := r.db.GetContext(ctx, &ident, `
		SELECT `+identityColumns+`
		  FROM sender_identities
		 WHERE assigned_tenant IS NULL AND verified = 1 AND status = 'active'
		 ORDER BY assigned_at ASC, created_at ASC, id ASC
		 LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

func (r *IdentitiesRepositoryImpl) Assign(ctx context.Context, identityID, tenantID int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sender_identities
		   SET assigned_tenant = ?, assigned_at = ?
		 WHERE id = ? AND assigned_tenant IS NULL AND status = 'active'
	`, tenantID, at, identityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Release is an unconditional clear; only the owning tenant or an admin calls
// it, so there is no race to guard against. assigned_at is kept as the
// last-assignment timestamp so freed identities rotate least-recently-used.
func (r *IdentitiesRepositoryImpl) Release(ctx context.Context, identityID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sender_identities
		   SET assigned_tenant = NULL
		 WHERE id = ?
	`, identityID)
	return err
}
