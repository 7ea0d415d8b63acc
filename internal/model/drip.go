package model

import "time"

// DripTracker is the per-(tenant, contact, sequence) day counter. CurrentDay
// only moves forward while the tracker is neither paused nor responded.
type DripTracker struct {
	ID            int64      `db:"id"`
	TenantID      int64      `db:"tenant_id"`
	ContactID     int64      `db:"contact_id"`
	SequenceKey   string     `db:"sequence_key"`
	CurrentDay    int        `db:"current_day"` // >= 1; day 1 is the intake send
	StartedAt     time.Time  `db:"started_at"`
	LastAttemptAt *time.Time `db:"last_attempt_at"`
	Responded     bool       `db:"responded"`
	Paused        bool       `db:"paused"`
	StopReason    *string    `db:"stop_reason"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Tracker stop reasons.
const (
	StopUnsubscribed      = "unsubscribed"
	StopInsufficientFunds = "insufficient_funds"
	StopNoSender          = "no_sender"
	StopManual            = "manual"
)

// DripTemplate is one body in a day-indexed follow-up family. Day numbers
// start at 2; the day-1 message belongs to the lead-intake flow.
type DripTemplate struct {
	ID        int64     `db:"id"`
	TenantID  int64     `db:"tenant_id"`
	Family    string    `db:"family"` // default|alt
	DayNumber int       `db:"day_number"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DripSettings is the per-tenant sequencing configuration singleton.
type DripSettings struct {
	TenantID      int64     `db:"tenant_id"`
	Enabled       bool      `db:"enabled"`
	SendTimezone  string    `db:"send_timezone"`
	SendHourLocal int       `db:"send_hour_local"`
	LoopEnabled   bool      `db:"loop_enabled"`
	SequencesRaw  []byte    `db:"sequences"` // JSON-encoded Enabled variant
	UpdatedAt     time.Time `db:"updated_at"`
	CreatedAt     time.Time `db:"created_at"`
}

// Sequences decodes the per-sequence enablement variant; a missing or
// malformed column means all sequences are on.
func (s *DripSettings) Sequences() Enabled {
	if len(s.SequencesRaw) == 0 {
		return AllOn()
	}
	e, err := ParseEnabled(s.SequencesRaw)
	if err != nil {
		return AllOn()
	}
	return e
}
