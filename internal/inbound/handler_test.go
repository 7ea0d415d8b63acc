package inbound

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alizand/leadwire/internal/dispatch"
	"github.com/alizand/leadwire/internal/model"
	"github.com/alizand/leadwire/internal/reply"
	"github.com/alizand/leadwire/internal/repository"
	"github.com/stretchr/testify/require"
)

type stubContacts struct {
	contact      *model.Contact
	unsubscribed bool
	touched      bool
}

func (s *stubContacts) UpsertByAddress(_ context.Context, tenantID int64, address string) (*model.Contact, error) {
	if s.contact == nil {
		s.contact = &model.Contact{ID: 7, TenantID: tenantID, Address: address, Subscribed: true}
	}
	return s.contact, nil
}

func (s *stubContacts) SetSubscribed(_ context.Context, _, _ int64, subscribed bool) error {
	s.unsubscribed = !subscribed
	s.contact.Subscribed = subscribed
	return nil
}

func (s *stubContacts) TouchInbound(_ context.Context, _, _ int64, _ time.Time) error {
	s.touched = true
	return nil
}

type stubTrackers struct{ responded []int64 }

func (s *stubTrackers) MarkResponded(_ context.Context, _, contactID int64) error {
	s.responded = append(s.responded, contactID)
	return nil
}

type stubMessages struct {
	inserted []model.Message
	keys     map[string]bool
}

func (s *stubMessages) Insert(_ context.Context, m model.Message) error {
	if s.keys == nil {
		s.keys = make(map[string]bool)
	}
	if s.keys[m.DedupeKey] {
		return repository.ErrDuplicateDedupe
	}
	s.keys[m.DedupeKey] = true
	s.inserted = append(s.inserted, m)
	return nil
}

type stubDispatch struct {
	reqs []dispatch.Request
	err  error
}

func (s *stubDispatch) Dispatch(_ context.Context, req dispatch.Request) (dispatch.Outcome, error) {
	if s.err != nil {
		return dispatch.Outcome{}, s.err
	}
	s.reqs = append(s.reqs, req)
	return dispatch.Outcome{MessageID: "m-1", Status: model.StatusSent}, nil
}

func newTestHandler() (*Handler, *stubContacts, *stubTrackers, *stubMessages, *stubDispatch) {
	contacts := &stubContacts{}
	trackers := &stubTrackers{}
	msgs := &stubMessages{}
	d := &stubDispatch{}
	responder := reply.NewResponder(reply.NewGenerator(reply.OfferConfig{Timezone: "UTC"}))
	h := NewHandler(contacts, trackers, msgs, responder, d, nil)
	return h, contacts, trackers, msgs, d
}

func TestHandleRecordsAndReplies(t *testing.T) {
	h, contacts, trackers, msgs, d := newTestHandler()

	err := h.Handle(context.Background(), Event{
		TenantID:    1,
		FromAddress: "(555) 010-9999",
		Text:        "how much is it?",
		ProviderRef: "prov-1",
	})
	require.NoError(t, err)

	require.Len(t, msgs.inserted, 1)
	in := msgs.inserted[0]
	require.Equal(t, model.DirectionIn, in.Direction)
	require.Equal(t, model.StatusReceived, in.Status)
	require.Equal(t, "+15550109999", in.ToAddress)
	require.Equal(t, "in-prov-1", in.DedupeKey)

	require.True(t, contacts.touched)
	require.Equal(t, []int64{7}, trackers.responded)

	require.Len(t, d.reqs, 1)
	require.Equal(t, "reply-prov-1", d.reqs[0].DedupeKey)
	require.Contains(t, d.reqs[0].Template, "Would tomorrow at")
	require.False(t, contacts.unsubscribed)
}

func TestHandleStopUnsubscribes(t *testing.T) {
	h, contacts, _, _, d := newTestHandler()

	err := h.Handle(context.Background(), Event{
		TenantID:    1,
		FromAddress: "+15550109999",
		Text:        "STOP",
		ProviderRef: "prov-2",
	})
	require.NoError(t, err)
	require.True(t, contacts.unsubscribed)

	// the opt-out confirmation still goes out, without an appointment offer
	require.Len(t, d.reqs, 1)
	require.NotContains(t, d.reqs[0].Template, "Would tomorrow at")
}

func TestHandleUnsubscribedContactGetsNoReply(t *testing.T) {
	h, contacts, trackers, msgs, d := newTestHandler()
	contacts.contact = &model.Contact{ID: 7, TenantID: 1, Address: "+15550109999", Subscribed: false}

	err := h.Handle(context.Background(), Event{
		TenantID:    1,
		FromAddress: "+15550109999",
		Text:        "how much is it?",
		ProviderRef: "prov-6",
	})
	require.NoError(t, err)

	// the inbound message is still recorded and trackers still stop
	require.Len(t, msgs.inserted, 1)
	require.Equal(t, []int64{7}, trackers.responded)
	require.Empty(t, d.reqs)

	// a repeat STOP still gets its confirmation
	err = h.Handle(context.Background(), Event{
		TenantID:    1,
		FromAddress: "+15550109999",
		Text:        "STOP",
		ProviderRef: "prov-7",
	})
	require.NoError(t, err)
	require.Len(t, d.reqs, 1)
	require.NotContains(t, d.reqs[0].Template, "Would tomorrow at")
}

func TestHandleRetriedWebhookIsNoop(t *testing.T) {
	h, _, trackers, msgs, d := newTestHandler()

	ev := Event{TenantID: 1, FromAddress: "+15550109999", Text: "hello", ProviderRef: "prov-3"}
	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	require.Len(t, msgs.inserted, 1)
	require.Len(t, d.reqs, 1)
	require.Len(t, trackers.responded, 1)
}

func TestHandleRejectsBadInput(t *testing.T) {
	h, _, _, msgs, _ := newTestHandler()

	err := h.Handle(context.Background(), Event{TenantID: 1, FromAddress: "+15550109999", Text: "hi"})
	require.Error(t, err) // missing provider ref

	err = h.Handle(context.Background(), Event{TenantID: 1, FromAddress: "123", Text: "hi", ProviderRef: "p"})
	require.Error(t, err)
	require.Empty(t, msgs.inserted)
}

func TestHandleDispatchFailureIsNotFatal(t *testing.T) {
	h, _, _, msgs, d := newTestHandler()
	d.err = dispatch.ErrInsufficientFunds

	err := h.Handle(context.Background(), Event{
		TenantID:    1,
		FromAddress: "+15550109999",
		Text:        "hello",
		ProviderRef: "prov-4",
	})
	require.NoError(t, err)
	require.Len(t, msgs.inserted, 1) // the inbound record still lands
}

func TestHandleSpanishReply(t *testing.T) {
	h, _, _, _, d := newTestHandler()

	err := h.Handle(context.Background(), Event{
		TenantID:    1,
		FromAddress: "+15550109999",
		Text:        "cuanto cuesta?",
		ProviderRef: "prov-5",
	})
	require.NoError(t, err)
	require.Len(t, d.reqs, 1)
	require.True(t, strings.Contains(d.reqs[0].Template, "mañana"))
}
