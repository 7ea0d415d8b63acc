package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alizand/leadwire/internal/model"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// ErrDuplicateDedupe is returned by Insert when (tenant_id, dedupe_key)
// already exists; the caller is expected to load and return the existing row.
var ErrDuplicateDedupe = errors.New("messages: dedupe key already exists")

// MessagesRepository persists the append-only message audit trail. Rows are
// never deleted and status only moves forward.
type MessagesRepository interface {
	Insert(ctx context.Context, m model.Message) error
	GetByDedupeKey(ctx context.Context, tenantID int64, dedupeKey string) (*model.Message, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	UpdateStatus(ctx context.Context, id string, status model.MessageStatus, providerRef, errorDetail string) error
}

type MessagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMessagesRepository(db *sqlx.DB) *MessagesRepositoryImpl {
	return &MessagesRepositoryImpl{db: db}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

const mysqlErrDupEntry = 1062

func (r *MessagesRepositoryImpl) Insert(ctx context.Context, m model.Message) error {
	const q = `
		INSERT INTO messages
		    (id, tenant_id, contact_id, lead_id, direction, from_identity, to_address,
		     body, status, provider_ref, cost_minor_units, error_detail, dedupe_key,
		     created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.TenantID, m.ContactID, m.LeadID, m.Direction, m.FromIdentity,
		m.ToAddress, m.Body, m.Status.String(), m.ProviderRef, m.Cost,
		m.ErrorDetail, m.DedupeKey,
	)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDupEntry {
		return ErrDuplicateDedupe
	}
	return err
}

func (r *MessagesRepositoryImpl) GetByDedupeKey(ctx context.Context, tenantID int64, dedupeKey string) (*model.Message, error) {
	var m model.Message
	err := r.db.GetContext(ctx, &m, `
		SELECT id, tenant_id, contact_id, lead_id, direction, from_identity, to_address,
		       body, status, provider_ref, cost_minor_units, error_detail, dedupe_key,
		       created_at, updated_at
		  FROM messages
		 WHERE tenant_id = ? AND dedupe_key = ? LIMIT 1
	`, tenantID, dedupeKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessagesRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := r.db.GetContext(ctx, &m, `
		SELECT id, tenant_id, contact_id, lead_id, direction, from_identity, to_address,
		       body, status, provider_ref, cost_minor_units, error_detail, dedupe_key,
		       created_at, updated_at
		  FROM messages
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessagesRepositoryImpl) UpdateStatus(ctx context.Context, id string, status model.MessageStatus, providerRef, errorDetail string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages
		   SET status = ?,
		       provider_ref = COALESCE(NULLIF(?, ''), provider_ref),
		       error_detail = COALESCE(NULLIF(?, ''), error_detail),
		       updated_at = NOW()
		 WHERE id = ?
	`, status.String(), providerRef, errorDetail, id)
	return err
}
