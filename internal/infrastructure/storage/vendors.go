package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/castlecab/backoffice/internal/domain/recon"
)

// CreateVendor inserts a vendor and its initial alias in one transaction.
func (s *Storage) CreateVendor(v *Vendor, normalizedAlias string) error {
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO vendors (id, canonical_name, normalized_name, suggested_category, suggested_tax_code)
			VALUES (?, ?, ?, ?, ?)
		`, v.ID, v.CanonicalName, v.NormalizedName, v.SuggestedCategory, v.SuggestedTaxCode)
		if err != nil {
			return fmt.Errorf("failed to insert vendor: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO vendor_aliases (vendor_id, raw_name, normalized_name)
			VALUES (?, ?, ?)
		`, v.ID, v.CanonicalName, normalizedAlias)
		if err != nil {
			return fmt.Errorf("failed to insert vendor alias: %w", err)
		}

		return nil
	})
}

// GetVendor retrieves a vendor with all aliases loaded.
func (s *Storage) GetVendor(id string) (*Vendor, error) {
	v := &Vendor{}
	err := s.db.QueryRow(`
		SELECT id, canonical_name, normalized_name, suggested_category, suggested_tax_code, created_at
		FROM vendors WHERE id = ?
	`, id).Scan(&v.ID, &v.CanonicalName, &v.NormalizedName, &v.SuggestedCategory, &v.SuggestedTaxCode, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &recon.NotFoundError{Kind: "vendor", ID: id}
	}
	if err != nil {
		return nil, err
	}

	if v.Aliases, err = s.vendorAliases(v.ID); err != nil {
		return nil, err
	}

	return v, nil
}

// GetVendorByAlias resolves a normalized alias to its vendor, or nil when
// the alias is unknown.
func (s *Storage) GetVendorByAlias(normalized string) (*Vendor, error) {
	var vendorID string
	err := s.db.QueryRow(`
		SELECT vendor_id FROM vendor_aliases WHERE normalized_name = ?
	`, normalized).Scan(&vendorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s.GetVendor(vendorID)
}

// ListVendors returns all vendors with aliases, for fuzzy scoring.
func (s *Storage) ListVendors() ([]*Vendor, error) {
	rows, err := s.db.Query(`
		SELECT id, canonical_name, normalized_name, suggested_category, suggested_tax_code, created_at
		FROM vendors
		ORDER BY canonical_name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var vendors []*Vendor
	for rows.Next() {
		v := &Vendor{}
		if err := rows.Scan(&v.ID, &v.CanonicalName, &v.NormalizedName, &v.SuggestedCategory, &v.SuggestedTaxCode, &v.CreatedAt); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, v := range vendors {
		if v.Aliases, err = s.vendorAliases(v.ID); err != nil {
			return nil, err
		}
	}

	return vendors, nil
}

// AddVendorAlias attaches a raw spelling to an existing vendor.
func (s *Storage) AddVendorAlias(vendorID, raw, normalized string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO vendor_aliases (vendor_id, raw_name, normalized_name)
		VALUES (?, ?, ?)
	`, vendorID, raw, normalized)
	return err
}

// MergeVendors moves every alias and receipt of fromID onto toID and removes
// fromID. This is an explicit, audited operator action; the engine never
// merges established vendors automatically.
func (s *Storage) MergeVendors(fromID, toID string, entry *AuditEntry) error {
	if fromID == toID {
		return fmt.Errorf("cannot merge vendor %s into itself", fromID)
	}

	return s.inTx(func(tx *sql.Tx) error {
		for _, id := range []string{fromID, toID} {
			var exists int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM vendors WHERE id = ?`, id).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				return &recon.NotFoundError{Kind: "vendor", ID: id}
			}
		}

		if _, err := tx.Exec(`UPDATE vendor_aliases SET vendor_id = ? WHERE vendor_id = ?`, toID, fromID); err != nil {
			return fmt.Errorf("failed to move aliases: %w", err)
		}
		if _, err := tx.Exec(`UPDATE receipts SET vendor_id = ? WHERE vendor_id = ?`, toID, fromID); err != nil {
			return fmt.Errorf("failed to move receipts: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM vendors WHERE id = ?`, fromID); err != nil {
			return fmt.Errorf("failed to remove merged vendor: %w", err)
		}

		if entry != nil {
			if err := appendAuditTx(tx, entry); err != nil {
				return err
			}
		}

		return nil
	})
}

// vendorAliases loads the normalized spellings known for a vendor. Normalized
// form is what alias lookup and fuzzy scoring both operate on.
func (s *Storage) vendorAliases(vendorID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT normalized_name FROM vendor_aliases WHERE vendor_id = ? ORDER BY id
	`, vendorID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var aliases []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		aliases = append(aliases, raw)
	}

	return aliases, rows.Err()
}
