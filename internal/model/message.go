package model

import "time"

type MessageStatus string

const (
	StatusQueued    MessageStatus = "queued"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusError     MessageStatus = "error"
	StatusReceived  MessageStatus = "received"

	// Audit-only terminal states: the message was rejected before any
	// transport attempt and nothing was billed.
	StatusBlockedInsufficientFunds MessageStatus = "blocked_insufficient_funds"
	StatusBlockedNoSender          MessageStatus = "blocked_no_sender"
)

func (s MessageStatus) String() string {
	return string(s)
}

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusSent, StatusDelivered, StatusError, StatusReceived,
		StatusBlockedInsufficientFunds, StatusBlockedNoSender:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transition.
func (s MessageStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusError, StatusReceived,
		StatusBlockedInsufficientFunds, StatusBlockedNoSender:
		return true
	}
	return false
}

type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Message is the DB entity persisted in the messages table. Rows are never
// deleted; status moves forward only (queued -> sent -> delivered, or to a
// terminal error/blocked state).
type Message struct {
	ID           string        `db:"id"`
	TenantID     int64         `db:"tenant_id"`
	ContactID    *int64        `db:"contact_id"`
	LeadID       *int64        `db:"lead_id"`
	Direction    Direction     `db:"direction"`
	FromIdentity string        `db:"from_identity"`
	ToAddress    string        `db:"to_address"`
	Body         string        `db:"body"`
	Status       MessageStatus `db:"status"`
	ProviderRef  *string       `db:"provider_ref"`
	Cost         int64         `db:"cost_minor_units"`
	ErrorDetail  *string       `db:"error_detail"`
	DedupeKey    string        `db:"dedupe_key"` // unique per tenant
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}
