package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alizand/leadwire/internal/dispatch"
	"github.com/alizand/leadwire/internal/metrics"
	"github.com/alizand/leadwire/internal/model"
	"github.com/alizand/leadwire/internal/reply"
	"github.com/alizand/leadwire/internal/repository"
	"github.com/alizand/leadwire/internal/util"
	"go.uber.org/zap"
)

// Event is what the webhook or queue boundary delivers for one inbound
// message.
type Event struct {
	TenantID    int64  `json:"tenant_id"`
	FromAddress string `json:"contact_address"`
	Text        string `json:"text"`
	ProviderRef string `json:"provider_ref"`
}

type ContactStore interface {
	UpsertByAddress(ctx context.Context, tenantID int64, address string) (*model.Contact, error)
	SetSubscribed(ctx context.Context, tenantID, id int64, subscribed bool) error
	TouchInbound(ctx context.Context, tenantID, id int64, at time.Time) error
}

type TrackerObserver interface {
	MarkResponded(ctx context.Context, tenantID, contactID int64) error
}

type MessageRecorder interface {
	Insert(ctx context.Context, m model.Message) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error)
}

// Handler consumes inbound messages: records them, marks any active drip
// trackers responded, classifies intent, and dispatches the generated reply
// as an ad hoc send.
type Handler struct {
	contacts  ContactStore
	trackers  TrackerObserver
	msgs      MessageRecorder
	responder *reply.Responder
	dispatch  Dispatcher
	log       *zap.Logger
}

func NewHandler(
	contacts ContactStore,
	trackers TrackerObserver,
	msgs MessageRecorder,
	responder *reply.Responder,
	d Dispatcher,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		contacts:  contacts,
		trackers:  trackers,
		msgs:      msgs,
		responder: responder,
		dispatch:  d,
		log:       log,
	}
}

// Handle processes one inbound event. The reply's dedupe key derives from the
// provider reference, so a retried webhook delivery cannot double-reply.
func (h *Handler) Handle(ctx context.Context, ev Event) error {
	if ev.ProviderRef == "" {
		return fmt.Errorf("inbound: missing provider ref")
	}
	addr := util.NormalizeAddress(ev.FromAddress)
	if !util.ValidAddress(addr) {
		return fmt.Errorf("inbound: bad contact address %q", ev.FromAddress)
	}

	contact, err := h.contacts.UpsertByAddress(ctx, ev.TenantID, addr)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}

	now := time.Now()
	providerRef := ev.ProviderRef
	in := model.Message{
		ID:          util.NewID(),
		TenantID:    ev.TenantID,
		ContactID:   &contact.ID,
		Direction:   model.DirectionIn,
		ToAddress:   addr,
		Body:        ev.Text,
		Status:      model.StatusReceived,
		ProviderRef: &providerRef,
		DedupeKey:   "in-" + ev.ProviderRef,
	}
	if err := h.msgs.Insert(ctx, in); err != nil {
		if errors.Is(err, repository.ErrDuplicateDedupe) {
			// retried webhook delivery; already fully processed
			return nil
		}
		return fmt.Errorf("record inbound: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues("received", "in").Inc()

	if err := h.contacts.TouchInbound(ctx, ev.TenantID, contact.ID, now); err != nil {
		h.log.Warn("touch inbound failed", zap.Int64("contact_id", contact.ID), zap.Error(err))
	}

	// Any reply terminates the contact's active drip sequences.
	if err := h.trackers.MarkResponded(ctx, ev.TenantID, contact.ID); err != nil {
		h.log.Error("mark responded failed", zap.Int64("contact_id", contact.ID), zap.Error(err))
	}

	intent, body := h.responder.Build(ev.Text)
	if intent == reply.IntentStop {
		if err := h.contacts.SetSubscribed(ctx, ev.TenantID, contact.ID, false); err != nil {
			h.log.Error("unsubscribe failed", zap.Int64("contact_id", contact.ID), zap.Error(err))
		}
	}

	// An unsubscribed contact gets no automated replies. The stop confirmation
	// is the one exception, sent for the opt-out message itself.
	if !contact.Subscribed && intent != reply.IntentStop {
		h.log.Info("reply suppressed for unsubscribed contact",
			zap.Int64("tenant_id", ev.TenantID),
			zap.Int64("contact_id", contact.ID),
			zap.String("intent", string(intent)))
		return nil
	}

	out, derr := h.dispatch.Dispatch(ctx, dispatch.Request{
		TenantID:  ev.TenantID,
		Contact:   contact,
		Template:  body,
		DedupeKey: "reply-" + ev.ProviderRef,
	})
	if derr != nil {
		h.log.Warn("reply dispatch failed",
			zap.Int64("tenant_id", ev.TenantID),
			zap.String("intent", string(intent)),
			zap.Error(derr))
		return nil
	}

	h.log.Info("inbound handled",
		zap.Int64("tenant_id", ev.TenantID),
		zap.String("intent", string(intent)),
		zap.String("reply_id", out.MessageID),
		zap.Bool("duplicate", out.Duplicate))
	return nil
}
