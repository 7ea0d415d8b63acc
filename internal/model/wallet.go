package model

import "time"

// WalletAccount holds a tenant's prepaid balance in minor units. The balance
// is only mutated through the atomic debit primitive and idempotent top-ups,
// and never goes negative.
type WalletAccount struct {
	TenantID  int64     `db:"tenant_id"`
	Balance   int64     `db:"balance"`
	UpdatedAt time.Time `db:"updated_at"`
	CreatedAt time.Time `db:"created_at"`
}
