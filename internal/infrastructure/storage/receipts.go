package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/castlecab/backoffice/internal/domain/recon"
)

const receiptColumns = `id, receipt_date, vendor_id, raw_vendor_name, gross_amount, tax_amount,
	tax_code, category, is_personal, is_driver_personal, banking_transaction_id, split_status, created_at`

// CreateReceipt inserts a receipt. Receipts are never deleted afterward,
// only amended.
func (s *Storage) CreateReceipt(r *Receipt) error {
	_, err := s.db.Exec(`
		INSERT INTO receipts
		(id, receipt_date, vendor_id, raw_vendor_name, gross_amount, tax_amount,
		 tax_code, category, is_personal, is_driver_personal, split_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.ReceiptDate,
		r.VendorID,
		r.RawVendorName,
		r.GrossAmount.StringFixed(2),
		r.TaxAmount.StringFixed(2),
		r.TaxCode,
		r.Category,
		r.IsPersonal,
		r.IsDriverPersonal,
		string(SplitStatusUnsplit),
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	return nil
}

// GetReceipt retrieves a receipt by ID.
func (s *Storage) GetReceipt(id string) (*Receipt, error) {
	row := s.db.QueryRow(`SELECT `+receiptColumns+` FROM receipts WHERE id = ?`, id)

	r, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &recon.NotFoundError{Kind: "receipt", ID: id}
	}
	return r, err
}

// ListReceipts returns receipts matching the given filters.
func (s *Storage) ListReceipts(filters ReceiptFilters) ([]*Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE 1=1`
	var args []interface{}

	if filters.VendorID != "" {
		query += ` AND vendor_id = ?`
		args = append(args, filters.VendorID)
	}
	if filters.SplitStatus != "" {
		query += ` AND split_status = ?`
		args = append(args, filters.SplitStatus)
	}
	if filters.LinkedOnly {
		query += ` AND banking_transaction_id IS NOT NULL`
	}
	if filters.Unlinked {
		query += ` AND banking_transaction_id IS NULL`
	}
	if filters.DaysBack > 0 {
		query += ` AND receipt_date >= ?`
		args = append(args, time.Now().AddDate(0, 0, -filters.DaysBack))
	}

	query += ` ORDER BY receipt_date DESC, id`

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanReceipts(rows)
}

// FindDuplicateCandidates returns receipts of the same vendor dated within
// [from, to], excluding excludeID. Amount filtering is left to the ranking
// layer so the exact-equality rule lives in one place.
func (s *Storage) FindDuplicateCandidates(vendorID string, from, to time.Time, excludeID string) ([]*Receipt, error) {
	rows, err := s.db.Query(`
		SELECT `+receiptColumns+`
		FROM receipts
		WHERE vendor_id = ? AND receipt_date >= ? AND receipt_date <= ? AND id != ?
		ORDER BY receipt_date
	`, vendorID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanReceipts(rows)
}

// FindReceiptCandidates returns receipts of any vendor dated within
// [from, to], for bank-side match ranking.
func (s *Storage) FindReceiptCandidates(from, to time.Time) ([]*Receipt, error) {
	rows, err := s.db.Query(`
		SELECT `+receiptColumns+`
		FROM receipts
		WHERE receipt_date >= ? AND receipt_date <= ?
		ORDER BY receipt_date
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanReceipts(rows)
}

// LinkReceipt establishes the exclusive receipt <-> transaction relation.
// Re-linking the same pair succeeds trivially. If either side is linked to a
// different counterpart, the caller gets *recon.AlreadyLinkedError and must
// unlink first. A non-nil anomaly entry (amount mismatch flag) is written in
// the same transaction as the link itself.
func (s *Storage) LinkReceipt(receiptID, transactionID string, anomaly *AuditEntry) error {
	return s.inTx(func(tx *sql.Tx) error {
		var current sql.NullString
		err := tx.QueryRow(`SELECT banking_transaction_id FROM receipts WHERE id = ?`, receiptID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return &recon.NotFoundError{Kind: "receipt", ID: receiptID}
		}
		if err != nil {
			return err
		}

		if current.Valid {
			if current.String == transactionID {
				return nil // idempotent re-link of the same pair
			}
			return &recon.AlreadyLinkedError{
				ReceiptID:           receiptID,
				TransactionID:       transactionID,
				LinkedTransactionID: current.String,
			}
		}

		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM banking_transactions WHERE id = ?`, transactionID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &recon.NotFoundError{Kind: "transaction", ID: transactionID}
		}

		var holder string
		err = tx.QueryRow(`SELECT id FROM receipts WHERE banking_transaction_id = ?`, transactionID).Scan(&holder)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err == nil && holder != receiptID {
			return &recon.AlreadyLinkedError{
				ReceiptID:       receiptID,
				TransactionID:   transactionID,
				LinkedReceiptID: holder,
			}
		}

		if _, err := tx.Exec(`UPDATE receipts SET banking_transaction_id = ? WHERE id = ?`, transactionID, receiptID); err != nil {
			return linkWriteError(tx, err, receiptID, transactionID)
		}

		if anomaly != nil {
			if err := appendAuditTx(tx, anomaly); err != nil {
				return err
			}
		}

		return nil
	})
}

// linkWriteError translates a failed link write into a domain error. A
// concurrent link attempt that loses the race on the same transaction trips
// the partial unique index instead of the pre-checks, and still deserves
// *recon.AlreadyLinkedError rather than a bare constraint failure.
func linkWriteError(tx *sql.Tx, err error, receiptID, transactionID string) error {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) || sqlErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return fmt.Errorf("failed to link receipt: %w", err)
	}

	linked := &recon.AlreadyLinkedError{
		ReceiptID:     receiptID,
		TransactionID: transactionID,
	}
	var holder string
	if scanErr := tx.QueryRow(`SELECT id FROM receipts WHERE banking_transaction_id = ?`,
		transactionID).Scan(&holder); scanErr == nil {
		linked.LinkedReceiptID = holder
	}
	return linked
}

// UnlinkReceipt clears both sides of the relation (the transaction side is
// derived, so clearing the receipt column clears everything). Idempotent.
func (s *Storage) UnlinkReceipt(receiptID string) error {
	result, err := s.db.Exec(`UPDATE receipts SET banking_transaction_id = NULL WHERE id = ?`, receiptID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &recon.NotFoundError{Kind: "receipt", ID: receiptID}
	}

	return nil
}

// ReplaceSplits writes the full split set atomically and advances the
// receipt to split_reconciled. The caller validates the exact-sum invariant
// before this is reached; nothing is persisted on a validation failure.
func (s *Storage) ReplaceSplits(receiptID string, splits []*ReceiptSplit) error {
	return s.inTx(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM receipts WHERE id = ?`, receiptID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &recon.NotFoundError{Kind: "receipt", ID: receiptID}
		}

		if _, err := tx.Exec(`DELETE FROM receipt_splits WHERE receipt_id = ?`, receiptID); err != nil {
			return fmt.Errorf("failed to clear existing splits: %w", err)
		}

		for _, split := range splits {
			_, err := tx.Exec(`
				INSERT INTO receipt_splits (id, receipt_id, gl_code, amount, payment_method, notes)
				VALUES (?, ?, ?, ?, ?, ?)
			`, split.ID, receiptID, split.GLCode, split.Amount.StringFixed(2), split.PaymentMethod, split.Notes)
			if err != nil {
				return fmt.Errorf("failed to insert split: %w", err)
			}
		}

		if _, err := tx.Exec(`UPDATE receipts SET split_status = ? WHERE id = ?`, string(SplitStatusReconciled), receiptID); err != nil {
			return fmt.Errorf("failed to update split status: %w", err)
		}

		return nil
	})
}

// DeleteSplits removes all splits for a receipt and reverts it to unsplit.
// Idempotent: deleting splits that do not exist is a no-op.
func (s *Storage) DeleteSplits(receiptID string) error {
	return s.inTx(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM receipts WHERE id = ?`, receiptID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &recon.NotFoundError{Kind: "receipt", ID: receiptID}
		}

		if _, err := tx.Exec(`DELETE FROM receipt_splits WHERE receipt_id = ?`, receiptID); err != nil {
			return err
		}

		_, err := tx.Exec(`UPDATE receipts SET split_status = ? WHERE id = ?`, string(SplitStatusUnsplit), receiptID)
		return err
	})
}

// GetSplits returns the split rows for a receipt in insertion order.
func (s *Storage) GetSplits(receiptID string) ([]*ReceiptSplit, error) {
	rows, err := s.db.Query(`
		SELECT id, receipt_id, gl_code, amount, payment_method, notes
		FROM receipt_splits
		WHERE receipt_id = ?
		ORDER BY created_at, id
	`, receiptID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var splits []*ReceiptSplit
	for rows.Next() {
		sp := &ReceiptSplit{}
		if err := rows.Scan(&sp.ID, &sp.ReceiptID, &sp.GLCode, &sp.Amount, &sp.PaymentMethod, &sp.Notes); err != nil {
			return nil, err
		}
		splits = append(splits, sp)
	}

	return splits, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReceipt(row rowScanner) (*Receipt, error) {
	r := &Receipt{}
	var bankingTxID sql.NullString
	var splitStatus string

	err := row.Scan(
		&r.ID,
		&r.ReceiptDate,
		&r.VendorID,
		&r.RawVendorName,
		&r.GrossAmount,
		&r.TaxAmount,
		&r.TaxCode,
		&r.Category,
		&r.IsPersonal,
		&r.IsDriverPersonal,
		&bankingTxID,
		&splitStatus,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bankingTxID.Valid {
		r.BankingTransactionID = bankingTxID.String
	}
	r.SplitStatus = SplitStatus(splitStatus)

	return r, nil
}

func scanReceipts(rows *sql.Rows) ([]*Receipt, error) {
	var receipts []*Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
