package seed

import (
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/campbill/internal/pricing"
	"github.com/Simplici0/campbill/internal/store"
)

// BillingSequence names the counter row created by the seed.
const BillingSequence = store.DefaultSequence

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	// Catalog lists the services that get a rate row. Nil means the
	// default catalog.
	Catalog *pricing.Catalog
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = pricing.DefaultCatalog()
	}

	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureServiceRates(tx, catalog.Names(), &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureSequence(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, string(hash)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// ensureServiceRates creates a zero rate row for every catalog service that
// has none. Existing rates are left untouched.
func ensureServiceRates(tx *sql.Tx, services []string, stats *Stats) error {
	for _, service := range services {
		res, err := tx.Exec(`INSERT INTO service_rates (service) VALUES (?) ON CONFLICT(service) DO NOTHING`, service)
		if err != nil {
			return fmt.Errorf("insert service rate %q: %w", service, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("count inserted service rate %q: %w", service, err)
		}
		stats.Inserts += int(n)
	}
	return nil
}

func ensureSequence(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM billing_sequence WHERE name = ?)`, BillingSequence).Scan(&exists); err != nil {
		return fmt.Errorf("check billing sequence existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO billing_sequence (name, value) VALUES (?, 0)`, BillingSequence); err != nil {
		return fmt.Errorf("insert billing sequence: %w", err)
	}
	stats.Inserts++
	return nil
}
