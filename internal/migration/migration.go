package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/cueledger/internal/config"
	"gorm.io/gorm"
)

// ErrUnsupportedDialect is returned for database types without a schema.
var ErrUnsupportedDialect = errors.New("migration: unsupported database type")

// SQLiteSchema mirrors the postgres migrations with sqlite column types.
// Statements are idempotent so the schema can be applied on every start.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tables (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		hourly_rate BIGINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_tables_org ON tables(org_id)`,
	`CREATE TABLE IF NOT EXISTS rate_history (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		table_id BIGINT NOT NULL,
		old_rate BIGINT NOT NULL,
		new_rate BIGINT NOT NULL,
		changed_by BIGINT NOT NULL,
		changed_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_rate_history_table ON rate_history(table_id)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		total_debt BIGINT NOT NULL DEFAULT 0,
		cashback_balance BIGINT NOT NULL DEFAULT 0,
		total_cashback_earned BIGINT NOT NULL DEFAULT 0,
		total_cashback_spent BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_customers_org ON customers(org_id)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		table_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		duration_minutes BIGINT,
		hourly_rate_at_start BIGINT NOT NULL,
		game_amount BIGINT,
		additional_amount BIGINT,
		total_amount BIGINT,
		paid_amount BIGINT,
		cashback_used BIGINT,
		debt_amount BIGINT,
		payment_type TEXT,
		status TEXT NOT NULL,
		opened_by BIGINT NOT NULL,
		completed_by BIGINT,
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_sessions_org_status ON sessions(org_id, status)`,
	`CREATE INDEX IF NOT EXISTS ix_sessions_org_table ON sessions(org_id, table_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_sessions_active_table ON sessions(org_id, table_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS additional_orders (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		session_id BIGINT NOT NULL,
		item_name TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		unit_price BIGINT NOT NULL,
		total_price BIGINT NOT NULL CHECK (total_price >= 0),
		created_by BIGINT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_additional_orders_session ON additional_orders(session_id)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		session_id BIGINT,
		customer_id BIGINT,
		amount BIGINT NOT NULL,
		kind TEXT NOT NULL,
		description TEXT,
		created_by BIGINT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_payments_session ON payments(session_id)`,
	`CREATE INDEX IF NOT EXISTS ix_payments_org_created ON payments(org_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS cashback_entries (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		customer_id BIGINT,
		amount BIGINT NOT NULL,
		direction TEXT NOT NULL,
		source TEXT NOT NULL,
		session_id BIGINT,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		expires_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_cashback_entries_org_status ON cashback_entries(org_id, status)`,
	`CREATE INDEX IF NOT EXISTS ix_cashback_entries_customer ON cashback_entries(customer_id)`,
	`CREATE TABLE IF NOT EXISTS cashback_settings (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		enabled BOOLEAN NOT NULL,
		percentage NUMERIC(5,2) NOT NULL,
		min_amount BIGINT NOT NULL,
		apply_on_debt BOOLEAN NOT NULL,
		max_usage_percent NUMERIC(5,2) NOT NULL,
		apply_on_extras BOOLEAN NOT NULL,
		updated_by BIGINT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cashback_settings_org ON cashback_settings(org_id)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_id BIGINT NOT NULL,
		dedupe_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		attempts BIGINT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at DATETIME NOT NULL,
		published_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_dedupe ON outbox_events(dedupe_key)`,
	`CREATE INDEX IF NOT EXISTS ix_outbox_events_pending ON outbox_events(id) WHERE published_at IS NULL`,
}

// Apply brings the schema up to date for the configured database type.
func Apply(conn *gorm.DB, cfg config.Config) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	switch cfg.DBType {
	case "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	case "sqlite":
		return ApplySQLite(conn)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDialect, cfg.DBType)
	}
}

// ApplySQLite creates every ledger table that does not exist yet.
func ApplySQLite(conn *gorm.DB) error {
	for _, stmt := range SQLiteSchema {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
