package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_float_tables",
		Up:      migration002AddFloatTables,
	},
	{
		Version: 3,
		Name:    "add_audit_log",
		Up:      migration003AddAuditLog,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// ================================================================
// MIGRATION FUNCTIONS
// ================================================================

// migration001InitialSchema creates the vendor, receipt, transaction and
// split tables. Money columns are TEXT holding canonical two-decimal strings
// so equality comparisons are exact.
func migration001InitialSchema(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
			id TEXT PRIMARY KEY,
			canonical_name TEXT NOT NULL,
			normalized_name TEXT NOT NULL,
			suggested_category TEXT NOT NULL DEFAULT '',
			suggested_tax_code TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_vendors_normalized
		 ON vendors(normalized_name)`,

		// Every alias maps to exactly one vendor: the normalized spelling
		// is globally unique.
		`CREATE TABLE IF NOT EXISTS vendor_aliases (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vendor_id TEXT NOT NULL,
			raw_name TEXT NOT NULL,
			normalized_name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_vendor_aliases_vendor
		 ON vendor_aliases(vendor_id)`,

		`CREATE TABLE IF NOT EXISTS receipts (
			id TEXT PRIMARY KEY,
			receipt_date TIMESTAMP NOT NULL,
			vendor_id TEXT NOT NULL,
			raw_vendor_name TEXT NOT NULL,
			gross_amount TEXT NOT NULL,
			tax_amount TEXT NOT NULL DEFAULT '0.00',
			tax_code TEXT NOT NULL DEFAULT 'NO_TAX',
			category TEXT NOT NULL DEFAULT '',
			is_personal BOOLEAN NOT NULL DEFAULT 0,
			is_driver_personal BOOLEAN NOT NULL DEFAULT 0,
			banking_transaction_id TEXT,
			split_status TEXT NOT NULL DEFAULT 'unsplit',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_receipts_vendor_amount
		 ON receipts(vendor_id, gross_amount)`,

		`CREATE INDEX IF NOT EXISTS idx_receipts_date
		 ON receipts(receipt_date)`,

		// Link exclusivity at the store level: no two receipts may hold the
		// same transaction. NULLs are exempt.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_receipts_banking_tx
		 ON receipts(banking_transaction_id)
		 WHERE banking_transaction_id IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS banking_transactions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			transaction_date TIMESTAMP NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			debit_amount TEXT,
			credit_amount TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK ((debit_amount IS NULL) != (credit_amount IS NULL))
		)`,

		`CREATE INDEX IF NOT EXISTS idx_banking_transactions_date
		 ON banking_transactions(transaction_date)`,

		`CREATE TABLE IF NOT EXISTS receipt_splits (
			id TEXT PRIMARY KEY,
			receipt_id TEXT NOT NULL,
			gl_code TEXT NOT NULL,
			amount TEXT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (receipt_id) REFERENCES receipts(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_receipt_splits_receipt
		 ON receipt_splits(receipt_id)`,

		// Reserved singleton for unresolvable vendor strings. The alias row
		// keeps re-resolving "Unknown Vendor" pointed at the singleton
		// instead of minting a lookalike vendor.
		`INSERT OR IGNORE INTO vendors (id, canonical_name, normalized_name)
		 VALUES ('` + UnknownVendorID + `', 'Unknown Vendor', 'unknown vendor')`,

		`INSERT OR IGNORE INTO vendor_aliases (vendor_id, raw_name, normalized_name)
		 VALUES ('` + UnknownVendorID + `', 'Unknown Vendor', 'unknown vendor')`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002AddFloatTables creates the float ledger tables. The receipts
// total for a float is always derived by summing float_attributions, so no
// running-total column exists to drift.
func migration002AddFloatTables(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS float_records (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			issue_date TIMESTAMP NOT NULL,
			issued_amount TEXT NOT NULL,
			purpose TEXT NOT NULL DEFAULT '',
			return_date TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'outstanding',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_float_records_driver
		 ON float_records(driver_id)`,

		`CREATE INDEX IF NOT EXISTS idx_float_records_status
		 ON float_records(status)`,

		`CREATE TABLE IF NOT EXISTS float_attributions (
			float_id TEXT NOT NULL,
			receipt_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (float_id, receipt_id),
			FOREIGN KEY (float_id) REFERENCES float_records(id),
			FOREIGN KEY (receipt_id) REFERENCES receipts(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_float_attributions_receipt
		 ON float_attributions(receipt_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create float tables: %w", err)
		}
	}

	return nil
}

// migration003AddAuditLog creates the append-only audit_log table for
// vendor merges, float reopens and link amount-mismatch anomalies.
func migration003AddAuditLog(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			entity_kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_log_entity
		 ON audit_log(entity_kind, entity_id)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_log_action
		 ON audit_log(action)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create audit log: %w", err)
		}
	}

	return nil
}
