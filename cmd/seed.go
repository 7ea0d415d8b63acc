package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/alizand/leadwire/internal/config"
	"github.com/alizand/leadwire/internal/db"
	"github.com/alizand/leadwire/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo tenants, identities and drip templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo data...")

		if err := seedTenants(sqlDB); err != nil {
			return err
		}
		if err := ensureWallets(sqlDB); err != nil {
			return err
		}
		if err := seedIdentities(sqlDB); err != nil {
			return err
		}
		if err := seedDrip(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

// seedTenants inserts deterministic demo tenants (idempotent).
func seedTenants(dbx *sqlx.DB) error {
	tenants := []model.Tenant{
		{
			Name:         "Lakeside Realty",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			Name:         "Summit Insurance Group",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(50),
		},
		{
			Name:         "Suspended Partner",
			APIKey:       "33333333333333333333333333333333",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO tenants
    (name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name        = VALUES(name),
    status      = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at  = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, t := range tenants {
		if _, err := tx.Exec(q, t.Name, t.APIKey, t.Status, t.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert tenant %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tenants: %w", err)
	}
	return nil
}

// ensureWallets creates wallet_accounts for tenants who don't have one yet.
func ensureWallets(dbx *sqlx.DB) error {
	const q = `
INSERT INTO wallet_accounts (tenant_id, balance, created_at, updated_at)
SELECT t.id, 0, NOW(), NOW()
FROM tenants t
LEFT JOIN wallet_accounts w ON w.tenant_id = t.id
WHERE w.tenant_id IS NULL
`
	if _, err := dbx.Exec(q); err != nil {
		return fmt.Errorf("ensure wallets: %w", err)
	}
	return nil
}

// seedIdentities provisions a small verified sender pool (idempotent on
// address).
func seedIdentities(dbx *sqlx.DB) error {
	addresses := []string{
		"+15550100001",
		"+15550100002",
		"+15550100003",
		"+15550100004",
	}
	const q = `
INSERT INTO sender_identities (address, pool_type, verified, status, created_at)
VALUES (?, 'local', 1, 'active', NOW())
ON DUPLICATE KEY UPDATE address = address
`
	for _, a := range addresses {
		if _, err := dbx.Exec(q, a); err != nil {
			return fmt.Errorf("insert identity %s: %w", a, err)
		}
	}
	return nil
}

// seedDrip installs settings and a short default follow-up family for every
// tenant.
func seedDrip(dbx *sqlx.DB) error {
	const settingsQ = `
INSERT INTO drip_settings (tenant_id, enabled, send_timezone, send_hour_local, loop_enabled, sequences, created_at, updated_at)
SELECT t.id, 1, 'America/Chicago', 10, 1, '{"mode":"all"}', NOW(), NOW()
FROM tenants t
LEFT JOIN drip_settings s ON s.tenant_id = t.id
WHERE s.tenant_id IS NULL
`
	if _, err := dbx.Exec(settingsQ); err != nil {
		return fmt.Errorf("ensure drip settings: %w", err)
	}

	templates := map[int]string{
		2: "Hi {name}, just checking back in - did you still want to go over your options?",
		3: "Hi {name}, quick reminder that we're holding your quote. Want me to send the details?",
		5: "Hi {name}, last note from me for now - reply any time and we'll pick it back up.",
	}
	const tplQ = `
INSERT INTO drip_templates (tenant_id, family, day_number, body, created_at, updated_at)
SELECT t.id, 'default', ?, ?, NOW(), NOW()
FROM tenants t
LEFT JOIN drip_templates d
  ON d.tenant_id = t.id AND d.family = 'default' AND d.day_number = ?
WHERE d.id IS NULL
`
	for day, body := range templates {
		if _, err := dbx.Exec(tplQ, day, body, day); err != nil {
			return fmt.Errorf("insert drip template day %d: %w", day, err)
		}
	}
	return nil
}

func intptr(i int) *int { return &i }
