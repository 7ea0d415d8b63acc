package drip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alizand/leadwire/internal/dispatch"
	"github.com/alizand/leadwire/internal/metrics"
	"github.com/alizand/leadwire/internal/model"
	"go.uber.org/zap"
)

// Dispatcher is the outbound pipeline the sequencer drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error)
}

type TenantSource interface {
	ListActive(ctx context.Context) ([]model.Tenant, error)
}

type SettingsStore interface {
	Get(ctx context.Context, tenantID int64) (*model.DripSettings, error)
}

type TemplateStore interface {
	ByFamily(ctx context.Context, tenantID int64, family string) (map[int]string, error)
}

type TrackerStore interface {
	ListActive(ctx context.Context, tenantID int64) ([]model.DripTracker, error)
	Advance(ctx context.Context, id int64, attemptAt time.Time) error
	Pause(ctx context.Context, id int64, stopReason string) error
}

type ContactSource interface {
	GetByID(ctx context.Context, tenantID, id int64) (*model.Contact, error)
}

// Sequencer advances per-contact day counters and hands due sends to the
// dispatch pipeline. It may be invoked on any tick interval: the per-day
// attempt guard and day-scoped dedupe keys make extra ticks harmless.
type Sequencer struct {
	tenants   TenantSource
	settings  SettingsStore
	templates TemplateStore
	trackers  TrackerStore
	contacts  ContactSource
	dispatch  Dispatcher
	now       func() time.Time
	log       *zap.Logger
}

func NewSequencer(
	tenants TenantSource,
	settings SettingsStore,
	templates TemplateStore,
	trackers TrackerStore,
	contacts ContactSource,
	d Dispatcher,
	log *zap.Logger,
) *Sequencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{
		tenants:   tenants,
		settings:  settings,
		templates: templates,
		trackers:  trackers,
		contacts:  contacts,
		dispatch:  d,
		now:       time.Now,
		log:       log,
	}
}

// RunTick processes every enabled tenant once. A tenant's failure is logged
// and does not stop the tick; the same holds per tracker within a tenant.
func (s *Sequencer) RunTick(ctx context.Context) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	for _, t := range tenants {
		if err := s.runTenant(ctx, t.ID); err != nil {
			s.log.Error("drip tenant failed", zap.Int64("tenant_id", t.ID), zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (s *Sequencer) runTenant(ctx context.Context, tenantID int64) error {
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if st == nil || !st.Enabled {
		return nil
	}

	loc, err := time.LoadLocation(st.SendTimezone)
	if err != nil {
		loc = time.UTC
	}
	now := s.now().In(loc)

	if now.Hour() < st.SendHourLocal {
		return nil
	}

	trackers, err := s.trackers.ListActive(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("trackers: %w", err)
	}

	sequences := st.Sequences()
	for _, tr := range trackers {
		if !sequences.On(tr.SequenceKey) {
			continue
		}
		s.runTracker(ctx, st, tr, now, loc)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func sameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// due applies the per-day idempotency guard plus the first-send rule: a
// tracker started at or after today's send hour waits for tomorrow's
// occurrence.
func (s *Sequencer) due(tr model.DripTracker, st *model.DripSettings, now time.Time, loc *time.Location) bool {
	if tr.LastAttemptAt != nil && sameLocalDay(*tr.LastAttemptAt, now, loc) {
		return false
	}
	if tr.LastAttemptAt == nil && sameLocalDay(tr.StartedAt, now, loc) &&
		tr.StartedAt.In(loc).Hour() >= st.SendHourLocal {
		return false
	}
	return true
}

func (s *Sequencer) runTracker(ctx context.Context, st *model.DripSettings, tr model.DripTracker, now time.Time, loc *time.Location) {
	if !s.due(tr, st, now, loc) {
		return
	}

	log := s.log.With(
		zap.Int64("tenant_id", tr.TenantID),
		zap.Int64("contact_id", tr.ContactID),
		zap.String("sequence", tr.SequenceKey),
		zap.Int("day", tr.CurrentDay),
	)

	contact, err := s.contacts.GetByID(ctx, tr.TenantID, tr.ContactID)
	if err != nil {
		log.Error("contact load failed", zap.Error(err))
		metrics.DripSendsTotal.WithLabelValues("error").Inc()
		return
	}
	if contact == nil || !contact.Subscribed {
		if perr := s.trackers.Pause(ctx, tr.ID, model.StopUnsubscribed); perr != nil {
			log.Error("pause failed", zap.Error(perr))
		}
		metrics.DripSendsTotal.WithLabelValues("paused").Inc()
		return
	}

	templates, err := s.templates.ByFamily(ctx, tr.TenantID, contact.TemplateFamily())
	if err != nil {
		log.Error("templates load failed", zap.Error(err))
		metrics.DripSendsTotal.WithLabelValues("error").Inc()
		return
	}

	body, ok := resolveBody(templates, tr.CurrentDay, st.LoopEnabled)
	if !ok {
		// No body for this day and no loop fallback: the day still counts as
		// attempted so the tracker never stalls.
		if aerr := s.trackers.Advance(ctx, tr.ID, now); aerr != nil {
			log.Error("advance failed", zap.Error(aerr))
		}
		metrics.DripSendsTotal.WithLabelValues("skipped").Inc()
		return
	}

	dedupe := fmt.Sprintf("%s:%d:day%d", tr.SequenceKey, tr.ContactID, tr.CurrentDay)
	out, derr := s.dispatch.Dispatch(ctx, dispatch.Request{
		TenantID:  tr.TenantID,
		Contact:   contact,
		Template:  body,
		DedupeKey: dedupe,
	})

	switch {
	case derr == nil:
		if aerr := s.trackers.Advance(ctx, tr.ID, now); aerr != nil {
			log.Error("advance failed", zap.Error(aerr))
			return
		}
		if out.Duplicate {
			metrics.DripSendsTotal.WithLabelValues("duplicate").Inc()
		} else {
			metrics.DripSendsTotal.WithLabelValues("sent").Inc()
		}
		log.Info("drip dispatched", zap.String("message_id", out.MessageID), zap.Bool("duplicate", out.Duplicate))

	case errors.Is(derr, dispatch.ErrTransportFailed):
		// Billed and recorded; the day is spent.
		if aerr := s.trackers.Advance(ctx, tr.ID, now); aerr != nil {
			log.Error("advance failed", zap.Error(aerr))
			return
		}
		metrics.DripSendsTotal.WithLabelValues("error").Inc()
		log.Warn("drip transport failed", zap.String("message_id", out.MessageID))

	case errors.Is(derr, dispatch.ErrInsufficientFunds):
		if perr := s.trackers.Pause(ctx, tr.ID, model.StopInsufficientFunds); perr != nil {
			log.Error("pause failed", zap.Error(perr))
		}
		metrics.DripSendsTotal.WithLabelValues("paused").Inc()
		log.Warn("drip paused: insufficient funds")

	case errors.Is(derr, dispatch.ErrNoSender):
		if perr := s.trackers.Pause(ctx, tr.ID, model.StopNoSender); perr != nil {
			log.Error("pause failed", zap.Error(perr))
		}
		metrics.DripSendsTotal.WithLabelValues("paused").Inc()
		log.Warn("drip paused: no sender identity")

	default:
		metrics.DripSendsTotal.WithLabelValues("error").Inc()
		log.Error("drip dispatch failed", zap.Error(derr))
	}
}

// resolveBody picks the template for the day. A missing or empty day falls
// back, when looping is on, to the highest-numbered non-empty template; with
// looping off the day is skipped.
func resolveBody(templates map[int]string, day int, loop bool) (string, bool) {
	if body, ok := templates[day]; ok && body != "" {
		return body, true
	}
	if !loop {
		return "", false
	}
	best := 0
	for d, body := range templates {
		if body != "" && d <= day && d > best {
			best = d
		}
	}
	if best == 0 {
		return "", false
	}
	return templates[best], true
}
