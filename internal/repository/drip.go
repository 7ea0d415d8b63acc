package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alizand/leadwire/internal/model"
	"github.com/jmoiron/sqlx"
)

type DripSettingsRepository interface {
	Get(ctx context.Context, tenantID int64) (*model.DripSettings, error)
}

type DripTemplatesRepository interface {
	// ByFamily returns day_number -> body for one tenant and template family.
	ByFamily(ctx context.Context, tenantID int64, family string) (map[int]string, error)
}

type DripTrackersRepository interface {
	ListActive(ctx context.Context, tenantID int64) ([]model.DripTracker, error)
	Start(ctx context.Context, tenantID, contactID int64, sequenceKey string, at time.Time) error
	Advance(ctx context.Context, id int64, attemptAt time.Time) error
	Pause(ctx context.Context, id int64, stopReason string) error
	MarkResponded(ctx context.Context, tenantID, contactID int64) error
}

// ---- settings ----

type dripSettingsRepo struct{ db *sqlx.DB }

func NewDripSettingsRepository(db *sqlx.DB) DripSettingsRepository {
	return &dripSettingsRepo{db: db}
}

func (r *dripSettingsRepo) Get(ctx context.Context, tenantID int64) (*model.DripSettings, error) {
	var s model.DripSettings
	err := r.db.GetContext(ctx, &s, `
		SELECT tenant_id, enabled, send_timezone, send_hour_local, loop_enabled,
		       sequences, created_at, updated_at
		  FROM drip_settings
		 WHERE tenant_id = ? LIMIT 1
	`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ---- templates ----

type dripTemplatesRepo struct{ db *sqlx.DB }

func NewDripTemplatesRepository(db *sqlx.DB) DripTemplatesRepository {
	return &dripTemplatesRepo{db: db}
}

func (r *dripTemplatesRepo) ByFamily(ctx context.Context, tenantID int64, family string) (map[int]string, error) {
	var rows []model.DripTemplate
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, tenant_id, family, day_number, body, created_at, updated_at
		  FROM drip_templates
		 WHERE tenant_id = ? AND family = ?
		 ORDER BY day_number
	`, tenantID, family)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(rows))
	for _, t := range rows {
		out[t.DayNumber] = t.Body
	}
	return out, nil
}

// ---- trackers ----

type dripTrackersRepo struct{ db *sqlx.DB }

func NewDripTrackersRepository(db *sqlx.DB) DripTrackersRepository {
	return &dripTrackersRepo{db: db}
}

func (r *dripTrackersRepo) ListActive(ctx context.Context, tenantID int64) ([]model.DripTracker, error) {
	var rows []model.DripTracker
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, tenant_id, contact_id, sequence_key, current_day, started_at,
		       last_attempt_at, responded, paused, stop_reason, created_at, updated_at
		  FROM drip_trackers
		 WHERE tenant_id = ? AND paused = 0 AND responded = 0
		 ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Start enrolls a contact into a sequence at day 2; re-enrolling an existing
// (tenant, contact, sequence) row is a no-op.
func (r *dripTrackersRepo) Start(ctx context.Context, tenantID, contactID int64, sequenceKey string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drip_trackers
		    (tenant_id, contact_id, sequence_key, current_day, started_at, created_at, updated_at)
		VALUES (?, ?, ?, 2, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE id = id
	`, tenantID, contactID, sequenceKey, at)
	return err
}

func (r *dripTrackersRepo) Advance(ctx context.Context, id int64, attemptAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_trackers
		   SET current_day = current_day + 1, last_attempt_at = ?, updated_at = NOW()
		 WHERE id = ?
	`, attemptAt, id)
	return err
}

func (r *dripTrackersRepo) Pause(ctx context.Context, id int64, stopReason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_trackers
		   SET paused = 1, stop_reason = ?, updated_at = NOW()
		 WHERE id = ?
	`, stopReason, id)
	return err
}

func (r *dripTrackersRepo) MarkResponded(ctx context.Context, tenantID, contactID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_trackers
		   SET responded = 1, updated_at = NOW()
		 WHERE tenant_id = ? AND contact_id = ? AND responded = 0
	`, tenantID, contactID)
	return err
}
