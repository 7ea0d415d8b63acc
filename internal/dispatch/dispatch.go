package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alizand/leadwire/internal/metrics"
	"github.com/alizand/leadwire/internal/model"
	"github.com/alizand/leadwire/internal/render"
	"github.com/alizand/leadwire/internal/repository"
	"github.com/alizand/leadwire/internal/transport"
	"github.com/alizand/leadwire/internal/util"
	"go.uber.org/zap"
)

// Local, non-retriable rejections surfaced synchronously to the caller.
// Transport failures are recorded but never auto-retried here; a retry must
// reuse the same dedupe key.
var (
	ErrInvalidAddress    = errors.New("dispatch: invalid destination address")
	ErrNoSender          = errors.New("dispatch: no sender identity configured")
	ErrEmptyBody         = errors.New("dispatch: rendered body is empty")
	ErrInsufficientFunds = errors.New("dispatch: insufficient funds")
	ErrTransportFailed   = errors.New("dispatch: transport send failed")
)

// MessageStore is the subset of the messages repository the pipeline writes
// through.
type MessageStore interface {
	Insert(ctx context.Context, m model.Message) error
	GetByDedupeKey(ctx context.Context, tenantID int64, dedupeKey string) (*model.Message, error)
	UpdateStatus(ctx context.Context, id string, status model.MessageStatus, providerRef, errorDetail string) error
}

// Wallet is the atomic debit primitive.
type Wallet interface {
	Debit(ctx context.Context, tenantID, amount int64, ref string) (bool, error)
}

// ContactToucher records the last outgoing interaction on the contact.
type ContactToucher interface {
	TouchOutgoing(ctx context.Context, tenantID, id int64, at time.Time) error
}

// IdentityLookup resolves the tenant's already-claimed sender identity.
type IdentityLookup interface {
	Assigned(ctx context.Context, tenantID int64) (*model.SenderIdentity, error)
}

// Request is one logical send. Template is resolved by the caller (a drip
// body, a reply body, or a raw manual body); Vars feeds placeholder
// substitution. DedupeKey guarantees at-most-one message and debit.
type Request struct {
	TenantID  int64
	Contact   *model.Contact // optional; supplies address and variables
	ToAddress string         // used when Contact is nil
	Template  string
	Vars      map[string]string
	DedupeKey string
}

// Outcome reports which Message the dedupe key resolved to. Duplicate is set
// when a prior dispatch already owned the key. A duplicate racing a dispatch
// that is still in flight sees the row as it stands, so its Status may be the
// transient queued; once the owner reaches a terminal status every later
// duplicate observes that status and the matching error.
type Outcome struct {
	MessageID string
	Status    model.MessageStatus
	Duplicate bool
}

type Service struct {
	msgs      MessageStore
	wallet    Wallet
	contacts  ContactToucher
	idents    IdentityLookup
	transport transport.Client
	renderOpt render.Options
	price     int64
	pollDelay time.Duration
	log       *zap.Logger
}

func New(
	msgs MessageStore,
	wallet Wallet,
	contacts ContactToucher,
	idents IdentityLookup,
	tc transport.Client,
	renderOpt render.Options,
	price int64,
	pollDelay time.Duration,
	log *zap.Logger,
) *Service {
	if price <= 0 {
		price = 1
	}
	if pollDelay <= 0 {
		pollDelay = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		msgs:      msgs,
		wallet:    wallet,
		contacts:  contacts,
		idents:    idents,
		transport: tc,
		renderOpt: renderOpt,
		price:     price,
		pollDelay: pollDelay,
		log:       log,
	}
}

// errForStatus maps a persisted terminal status back to the error the
// original dispatch returned, so duplicate submissions observe the same
// outcome.
func errForStatus(s model.MessageStatus) error {
	switch s {
	case model.StatusBlockedInsufficientFunds:
		return ErrInsufficientFunds
	case model.StatusBlockedNoSender:
		return ErrNoSender
	case model.StatusError:
		return ErrTransportFailed
	default:
		return nil
	}
}

// Dispatch runs the render, debit, send, record sequence for one logical
// message. For any fixed dedupe key at most one Message row is created and at
// most one debit applied, no matter how many callers race.
func (s *Service) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	to := req.ToAddress
	vars := req.Vars
	var contactID *int64
	if req.Contact != nil {
		to = req.Contact.Address
		contactID = &req.Contact.ID
		if vars == nil {
			vars = req.Contact.Attributes()
		}
	}

	to = util.NormalizeAddress(to)
	if !util.ValidAddress(to) {
		return Outcome{}, ErrInvalidAddress
	}
	if req.DedupeKey == "" {
		return Outcome{}, fmt.Errorf("dispatch: empty dedupe key")
	}

	if existing, err := s.msgs.GetByDedupeKey(ctx, req.TenantID, req.DedupeKey); err != nil {
		return Outcome{}, fmt.Errorf("dedupe lookup: %w", err)
	} else if existing != nil {
		return Outcome{MessageID: existing.ID, Status: existing.Status, Duplicate: true}, errForStatus(existing.Status)
	}

	body := render.Render(req.Template, vars)
	body = render.Soften(body, s.renderOpt)
	if body == "" {
		return Outcome{}, ErrEmptyBody
	}

	ident, err := s.idents.Assigned(ctx, req.TenantID)
	if err != nil {
		return Outcome{}, fmt.Errorf("identity lookup: %w", err)
	}
	if ident == nil {
		// Recorded for audit as a non-billed terminal row.
		m := s.newMessage(req.TenantID, contactID, "", to, body, req.DedupeKey, 0, model.StatusBlockedNoSender)
		out, derr := s.insertGate(ctx, req.TenantID, req.DedupeKey, m)
		if derr != nil || out.Duplicate {
			return out, derr
		}
		metrics.MessagesTotal.WithLabelValues("blocked", "out").Inc()
		return out, ErrNoSender
	}

	// The queued insert doubles as the dedupe gate: losing the uniqueness
	// race means another caller owns this key and its debit.
	m := s.newMessage(req.TenantID, contactID, ident.Address, to, body, req.DedupeKey, s.price, model.StatusQueued)
	out, derr := s.insertGate(ctx, req.TenantID, req.DedupeKey, m)
	if derr != nil || out.Duplicate {
		return out, derr
	}
	metrics.MessagesTotal.WithLabelValues("queued", "out").Inc()

	debited, err := s.wallet.Debit(ctx, req.TenantID, s.price, "debit-"+m.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("wallet debit: %w", err)
	}
	if !debited {
		if uerr := s.msgs.UpdateStatus(ctx, m.ID, model.StatusBlockedInsufficientFunds, "", "insufficient funds"); uerr != nil {
			s.log.Error("mark blocked failed", zap.String("message_id", m.ID), zap.Error(uerr))
		}
		metrics.MessagesTotal.WithLabelValues("blocked", "out").Inc()
		return Outcome{MessageID: m.ID, Status: model.StatusBlockedInsufficientFunds}, ErrInsufficientFunds
	}

	res, serr := s.transport.Send(ctx, ident.Address, to, body)
	if serr != nil || !res.Accepted {
		detail := res.RawError
		if detail == "" && serr != nil {
			detail = serr.Error()
		}
		// The debit stands: attempted sends are billable.
		if uerr := s.msgs.UpdateStatus(ctx, m.ID, model.StatusError, "", detail); uerr != nil {
			s.log.Error("mark error failed", zap.String("message_id", m.ID), zap.Error(uerr))
		}
		metrics.MessagesTotal.WithLabelValues("error", "out").Inc()
		return Outcome{MessageID: m.ID, Status: model.StatusError}, ErrTransportFailed
	}

	if err := s.msgs.UpdateStatus(ctx, m.ID, model.StatusSent, res.ProviderRef, ""); err != nil {
		s.log.Error("mark sent failed", zap.String("message_id", m.ID), zap.Error(err))
	}
	metrics.MessagesTotal.WithLabelValues("sent", "out").Inc()

	final := s.reconcile(ctx, m.ID, res.ProviderRef)

	if contactID != nil {
		if err := s.contacts.TouchOutgoing(ctx, req.TenantID, *contactID, time.Now()); err != nil {
			s.log.Warn("touch contact failed", zap.Int64("contact_id", *contactID), zap.Error(err))
		}
	}

	return Outcome{MessageID: m.ID, Status: final}, nil
}

func (s *Service) newMessage(tenantID int64, contactID *int64, from, to, body, dedupeKey string, cost int64, status model.MessageStatus) model.Message {
	return model.Message{
		ID:           util.NewID(),
		TenantID:     tenantID,
		ContactID:    contactID,
		Direction:    model.DirectionOut,
		FromIdentity: from,
		ToAddress:    to,
		Body:         body,
		Status:       status,
		Cost:         cost,
		DedupeKey:    dedupeKey,
	}
}

// insertGate inserts the row or, on a dedupe collision, loads and returns the
// winner's outcome.
func (s *Service) insertGate(ctx context.Context, tenantID int64, dedupeKey string, m model.Message) (Outcome, error) {
	err := s.msgs.Insert(ctx, m)
	if err == nil {
		return Outcome{MessageID: m.ID, Status: m.Status}, nil
	}
	if !errors.Is(err, repository.ErrDuplicateDedupe) {
		return Outcome{}, fmt.Errorf("insert message: %w", err)
	}
	existing, gerr := s.msgs.GetByDedupeKey(ctx, tenantID, dedupeKey)
	if gerr != nil || existing == nil {
		return Outcome{}, fmt.Errorf("dedupe reload: %w", gerr)
	}
	return Outcome{MessageID: existing.ID, Status: existing.Status, Duplicate: true}, errForStatus(existing.Status)
}

// reconcile performs one bounded status poll (immediate, then one retry after
// pollDelay) and folds the provider vocabulary into the message state
// machine. Poll failures are non-fatal and leave the status at sent.
func (s *Service) reconcile(ctx context.Context, messageID, providerRef string) model.MessageStatus {
	if providerRef == "" {
		return model.StatusSent
	}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return model.StatusSent
			case <-time.After(s.pollDelay):
			}
		}

		raw, err := s.transport.Status(ctx, providerRef)
		if err != nil {
			s.log.Debug("status poll failed", zap.String("provider_ref", providerRef), zap.Error(err))
			continue
		}

		switch transport.MapStatus(raw) {
		case transport.StatusDelivered:
			if uerr := s.msgs.UpdateStatus(ctx, messageID, model.StatusDelivered, "", ""); uerr == nil {
				metrics.MessagesTotal.WithLabelValues("delivered", "out").Inc()
			}
			return model.StatusDelivered
		case transport.StatusFailed:
			if uerr := s.msgs.UpdateStatus(ctx, messageID, model.StatusError, "", "provider reported "+raw); uerr == nil {
				metrics.MessagesTotal.WithLabelValues("error", "out").Inc()
			}
			return model.StatusError
		}
	}

	return model.StatusSent
}
