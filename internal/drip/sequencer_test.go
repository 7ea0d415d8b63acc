package drip

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alizand/leadwire/internal/dispatch"
	"github.com/alizand/leadwire/internal/model"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	seq      *Sequencer
	trackers *stubTrackers
	dispatch *stubDispatch
	settings *model.DripSettings
	contact  *model.Contact
	clock    *fakeClock
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type stubTenants struct{ tenants []model.Tenant }

func (s *stubTenants) ListActive(context.Context) ([]model.Tenant, error) {
	return s.tenants, nil
}

type stubSettings struct{ st *model.DripSettings }

func (s *stubSettings) Get(context.Context, int64) (*model.DripSettings, error) {
	return s.st, nil
}

type stubTemplates struct{ byDay map[int]string }

func (s *stubTemplates) ByFamily(context.Context, int64, string) (map[int]string, error) {
	return s.byDay, nil
}

type stubTrackers struct {
	active   []model.DripTracker
	advanced []int64
	paused   map[int64]string
}

func (s *stubTrackers) ListActive(context.Context, int64) ([]model.DripTracker, error) {
	return s.active, nil
}

func (s *stubTrackers) Advance(_ context.Context, id int64, at time.Time) error {
	s.advanced = append(s.advanced, id)
	for i := range s.active {
		if s.active[i].ID == id {
			s.active[i].CurrentDay++
			t := at
			s.active[i].LastAttemptAt = &t
		}
	}
	return nil
}

func (s *stubTrackers) Pause(_ context.Context, id int64, reason string) error {
	if s.paused == nil {
		s.paused = make(map[int64]string)
	}
	s.paused[id] = reason
	for i := range s.active {
		if s.active[i].ID == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	return nil
}

type stubContacts struct{ contact *model.Contact }

func (s *stubContacts) GetByID(context.Context, int64, int64) (*model.Contact, error) {
	return s.contact, nil
}

type stubDispatch struct {
	calls []dispatch.Request
	err   error
	seen  map[string]bool
}

func (s *stubDispatch) Dispatch(_ context.Context, req dispatch.Request) (dispatch.Outcome, error) {
	if s.err != nil {
		return dispatch.Outcome{}, s.err
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[req.DedupeKey] {
		return dispatch.Outcome{MessageID: "dup", Status: model.StatusSent, Duplicate: true}, nil
	}
	s.seen[req.DedupeKey] = true
	s.calls = append(s.calls, req)
	return dispatch.Outcome{MessageID: fmt.Sprintf("m-%d", len(s.calls)), Status: model.StatusSent}, nil
}

// newFixture builds a sequencer over one tenant with one active tracker on
// day 2, with the clock set past the send hour.
func newFixture(t *testing.T, templates map[int]string) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)}
	settings := &model.DripSettings{
		TenantID:      1,
		Enabled:       true,
		SendTimezone:  "UTC",
		SendHourLocal: 10,
	}
	contact := &model.Contact{ID: 7, TenantID: 1, Address: "+15550109999", Subscribed: true}
	trackers := &stubTrackers{active: []model.DripTracker{{
		ID:          100,
		TenantID:    1,
		ContactID:   7,
		SequenceKey: "intake",
		CurrentDay:  2,
		StartedAt:   clock.now.AddDate(0, 0, -1),
	}}}
	d := &stubDispatch{}

	seq := NewSequencer(
		&stubTenants{tenants: []model.Tenant{{ID: 1, Status: "active"}}},
		&stubSettings{st: settings},
		&stubTemplates{byDay: templates},
		trackers,
		&stubContacts{contact: contact},
		d,
		nil,
	)
	seq.now = clock.Now

	return &fixture{seq: seq, trackers: trackers, dispatch: d, settings: settings, contact: contact, clock: clock}
}

func TestTickSendsDueDayAndAdvances(t *testing.T) {
	f := newFixture(t, map[int]string{2: "day two body", 3: "day three body"})

	require.NoError(t, f.seq.RunTick(context.Background()))

	require.Len(t, f.dispatch.calls, 1)
	req := f.dispatch.calls[0]
	require.Equal(t, "day two body", req.Template)
	require.Equal(t, "intake:7:day2", req.DedupeKey)
	require.Equal(t, []int64{100}, f.trackers.advanced)
	require.Equal(t, 3, f.trackers.active[0].CurrentDay)
}

func TestTickIdempotentWithinDay(t *testing.T) {
	f := newFixture(t, map[int]string{2: "day two", 3: "day three"})

	for i := 0; i < 4; i++ {
		require.NoError(t, f.seq.RunTick(context.Background()))
	}

	// only the first tick of the day dispatches; the rest hit the per-day guard
	require.Len(t, f.dispatch.calls, 1)
	require.Equal(t, 3, f.trackers.active[0].CurrentDay)
}

func TestTickAdvancesOneDayPerLocalDay(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two", 3: "three", 4: "four"})

	for day := 0; day < 3; day++ {
		require.NoError(t, f.seq.RunTick(context.Background()))
		require.NoError(t, f.seq.RunTick(context.Background()))
		f.clock.now = f.clock.now.AddDate(0, 0, 1)
	}

	require.Len(t, f.dispatch.calls, 3)
	require.Equal(t, "intake:7:day2", f.dispatch.calls[0].DedupeKey)
	require.Equal(t, "intake:7:day3", f.dispatch.calls[1].DedupeKey)
	require.Equal(t, "intake:7:day4", f.dispatch.calls[2].DedupeKey)
	require.Equal(t, 5, f.trackers.active[0].CurrentDay)
}

func TestTickBeforeSendHourDoesNothing(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.clock.now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Empty(t, f.dispatch.calls)
	require.Empty(t, f.trackers.advanced)
}

func TestTrackerStartedAfterSendHourWaitsForTomorrow(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.trackers.active[0].StartedAt = f.clock.now.Add(-30 * time.Minute) // today, post send hour

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Empty(t, f.dispatch.calls)

	f.clock.now = f.clock.now.AddDate(0, 0, 1)
	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Len(t, f.dispatch.calls, 1)
}

func TestDisabledSettingsSkipTenant(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.settings.Enabled = false

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Empty(t, f.dispatch.calls)
}

func TestSequenceToggleSkipsTracker(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.settings.SequencesRaw = []byte(`{"mode":"per_key","keys":{"other":true}}`)

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Empty(t, f.dispatch.calls)
}

func TestUnsubscribedContactPausesTracker(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.contact.Subscribed = false

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Empty(t, f.dispatch.calls)
	require.Equal(t, model.StopUnsubscribed, f.trackers.paused[100])
}

func TestMissingDayWithoutLoopSkipsButAdvances(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two", 5: "five"})
	f.trackers.active[0].CurrentDay = 3

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Empty(t, f.dispatch.calls)
	require.Equal(t, []int64{100}, f.trackers.advanced)
	require.Equal(t, 4, f.trackers.active[0].CurrentDay)
}

func TestMissingDayWithLoopFallsBackToHighestEarlier(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two", 3: "three"})
	f.settings.LoopEnabled = true
	f.trackers.active[0].CurrentDay = 5

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Len(t, f.dispatch.calls, 1)
	require.Equal(t, "three", f.dispatch.calls[0].Template)
	require.Equal(t, "intake:7:day5", f.dispatch.calls[0].DedupeKey)
}

func TestInsufficientFundsPausesTracker(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.dispatch.err = dispatch.ErrInsufficientFunds

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Equal(t, model.StopInsufficientFunds, f.trackers.paused[100])
	require.Empty(t, f.trackers.advanced)
}

func TestNoSenderPausesTracker(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.dispatch.err = dispatch.ErrNoSender

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Equal(t, model.StopNoSender, f.trackers.paused[100])
}

func TestTransportFailureStillAdvances(t *testing.T) {
	f := newFixture(t, map[int]string{2: "two"})
	f.dispatch.err = dispatch.ErrTransportFailed

	require.NoError(t, f.seq.RunTick(context.Background()))
	require.Empty(t, f.trackers.paused)
	require.Equal(t, []int64{100}, f.trackers.advanced)
}

func TestResolveBody(t *testing.T) {
	templates := map[int]string{2: "two", 3: "three", 6: ""}

	body, ok := resolveBody(templates, 3, false)
	require.True(t, ok)
	require.Equal(t, "three", body)

	_, ok = resolveBody(templates, 4, false)
	require.False(t, ok)

	body, ok = resolveBody(templates, 4, true)
	require.True(t, ok)
	require.Equal(t, "three", body)

	// empty bodies never resolve, even on their own day
	body, ok = resolveBody(templates, 6, true)
	require.True(t, ok)
	require.Equal(t, "three", body)

	_, ok = resolveBody(map[int]string{}, 2, true)
	require.False(t, ok)
}
