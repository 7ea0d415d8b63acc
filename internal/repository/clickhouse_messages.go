package repository

import (
	"context"

	"github.com/alizand/leadwire/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHMessagesRepository lists message history from ClickHouse (read model fed
// by an external replication pipeline).
type CHMessagesRepository interface {
	ListByTenant(ctx context.Context, tenantID int64, address string, status model.MessageStatus, limit, offset int) ([]model.Message, error)
}

type chMessagesRepository struct {
	ch *sqlx.DB
}

func NewCHMessagesRepository(ch *sqlx.DB) CHMessagesRepository {
	return &chMessagesRepository{ch: ch}
}

func (r *chMessagesRepository) ListByTenant(ctx context.Context, tenantID int64, address string, status model.MessageStatus, limit, offset int) ([]model.Message, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, tenant_id, contact_id, lead_id, direction, from_identity, to_address,
		       body, status, provider_ref, cost_minor_units, error_detail, dedupe_key,
		       created_at, updated_at
		FROM leadwire.messages_latest
		WHERE tenant_id = ?
	`
	args := []any{tenantID}

	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}
	if address != "" {
		q += " AND to_address = ?"
		args = append(args, address)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Message
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
