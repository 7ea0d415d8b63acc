package model

import "time"

type IdentityStatus string

const (
	IdentityActive  IdentityStatus = "active"
	IdentityRetired IdentityStatus = "retired"
)

// SenderIdentity is a pooled "from" number. At most one tenant holds a given
// active identity; AssignedTenant == nil means the identity is claimable.
type SenderIdentity struct {
	ID             int64          `db:"id"`
	Address        string         `db:"address"`
	PoolType       string         `db:"pool_type"`
	Verified       bool           `db:"verified"`
	Status         IdentityStatus `db:"status"`
	AssignedTenant *int64         `db:"assigned_tenant"`
	AssignedAt     *time.Time     `db:"assigned_at"`
	CreatedAt      time.Time      `db:"created_at"`
}
