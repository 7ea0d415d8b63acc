package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alizand/leadwire/internal/model"
	"github.com/jmoiron/sqlx"
)

type ContactsRepository interface {
	GetByID(ctx context.Context, tenantID, id int64) (*model.Contact, error)
	GetByAddress(ctx context.Context, tenantID int64, address string) (*model.Contact, error)
	UpsertByAddress(ctx context.Context, tenantID int64, address string) (*model.Contact, error)
	SetSubscribed(ctx context.Context, tenantID, id int64, subscribed bool) error
	TouchOutgoing(ctx context.Context, tenantID, id int64, at time.Time) error
	TouchInbound(ctx context.Context, tenantID, id int64, at time.Time) error
}

type ContactsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContactsRepository(db *sqlx.DB) *ContactsRepositoryImpl {
	return &ContactsRepositoryImpl{db: db}
}

var _ ContactsRepository = (*ContactsRepositoryImpl)(nil)

const contactColumns = `
	id, tenant_id, address, display_name, tags, attributes, subscribed,
	last_outgoing_at, last_inbound_at, created_at, updated_at
`

func (r *ContactsRepositoryImpl) GetByID(ctx context.Context, tenantID, id int64) (*model.Contact, error) {
	var c model.Contact
	err := r.db.GetContext(ctx, &c,
		`SELECT `+contactColumns+` FROM contacts WHERE tenant_id = ? AND id = ? LIMIT 1`,
		tenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactsRepositoryImpl) GetByAddress(ctx context.Context, tenantID int64, address string) (*model.Contact, error) {
	var c model.Contact
	err := r.db.GetContext(ctx, &c,
		`SELECT `+contactColumns+` FROM contacts WHERE tenant_id = ? AND address = ? LIMIT 1`,
		tenantID, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertByAddress returns the existing contact for the address or creates a
// subscribed one with empty tags/attributes.
func (r *ContactsRepositoryImpl) UpsertByAddress(ctx context.Context, tenantID int64, address string) (*model.Contact, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (tenant_id, address, display_name, tags, attributes, subscribed, created_at, updated_at)
		VALUES (?, ?, '', '[]', '{}', 1, NOW(), NOW())
		ON DUPLICATE KEY UPDATE id = id
	`, tenantID, address)
	if err != nil {
		return nil, err
	}
	return r.GetByAddress(ctx, tenantID, address)
}

func (r *ContactsRepositoryImpl) SetSubscribed(ctx context.Context, tenantID, id int64, subscribed bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET subscribed = ?, updated_at = NOW()
		 WHERE tenant_id = ? AND id = ?
	`, subscribed, tenantID, id)
	return err
}

func (r *ContactsRepositoryImpl) TouchOutgoing(ctx context.Context, tenantID, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET last_outgoing_at = ?, updated_at = NOW()
		 WHERE tenant_id = ? AND id = ?
	`, at, tenantID, id)
	return err
}

func (r *ContactsRepositoryImpl) TouchInbound(ctx context.Context, tenantID, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET last_inbound_at = ?, updated_at = NOW()
		 WHERE tenant_id = ? AND id = ?
	`, at, tenantID, id)
	return err
}
