package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/domain/floats"
	"github.com/castlecab/backoffice/internal/domain/recon"
)

// CreateFloat records a float issuance in the Outstanding state.
func (s *Storage) CreateFloat(f *FloatRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO float_records (id, driver_id, issue_date, issued_amount, purpose, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.ID, f.DriverID, f.IssueDate, f.IssuedAmount.StringFixed(2), f.Purpose, string(floats.StatusOutstanding))
	if err != nil {
		return fmt.Errorf("failed to insert float: %w", err)
	}

	return nil
}

// GetFloat retrieves a float with its receipts total and variance recomputed
// from the attribution rows.
func (s *Storage) GetFloat(id string) (*FloatRecord, error) {
	return s.getFloat(s.db, id)
}

// ListFloats returns floats, optionally filtered by status, each with
// recomputed totals.
func (s *Storage) ListFloats(status string) ([]*FloatRecord, error) {
	query := `SELECT id FROM float_records`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY issue_date DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	records := make([]*FloatRecord, 0, len(ids))
	for _, id := range ids {
		f, err := s.getFloat(s.db, id)
		if err != nil {
			return nil, err
		}
		records = append(records, f)
	}

	return records, nil
}

// GetAttributions returns the receipts counted against a float.
func (s *Storage) GetAttributions(floatID string) ([]*FloatAttribution, error) {
	rows, err := s.db.Query(`
		SELECT float_id, receipt_id, amount, created_at
		FROM float_attributions
		WHERE float_id = ?
		ORDER BY created_at, receipt_id
	`, floatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var attributions []*FloatAttribution
	for rows.Next() {
		a := &FloatAttribution{}
		if err := rows.Scan(&a.FloatID, &a.ReceiptID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		attributions = append(attributions, a)
	}

	return attributions, rows.Err()
}

// AttributeReceipt counts amount from a receipt against a float and returns
// the float with recomputed totals. Re-attributing the same receipt replaces
// its amount, so retries after a dropped connection are safe.
func (s *Storage) AttributeReceipt(floatID, receiptID string, amount decimal.Decimal) (*FloatRecord, error) {
	var updated *FloatRecord
	err := s.inTx(func(tx *sql.Tx) error {
		f, err := s.getFloat(tx, floatID)
		if err != nil {
			return err
		}
		if !floats.CanAttribute(f.Status) {
			return &floats.TransitionError{FloatID: floatID, From: f.Status, To: f.Status}
		}

		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM receipts WHERE id = ?`, receiptID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &recon.NotFoundError{Kind: "receipt", ID: receiptID}
		}

		_, err = tx.Exec(`
			INSERT INTO float_attributions (float_id, receipt_id, amount)
			VALUES (?, ?, ?)
			ON CONFLICT(float_id, receipt_id) DO UPDATE SET amount = excluded.amount
		`, floatID, receiptID, amount.StringFixed(2))
		if err != nil {
			return fmt.Errorf("failed to attribute receipt: %w", err)
		}

		updated, err = s.getFloat(tx, floatID)
		return err
	})

	return updated, err
}

// DetachReceipt removes a receipt's attribution from a float. Idempotent.
func (s *Storage) DetachReceipt(floatID, receiptID string) (*FloatRecord, error) {
	var updated *FloatRecord
	err := s.inTx(func(tx *sql.Tx) error {
		f, err := s.getFloat(tx, floatID)
		if err != nil {
			return err
		}
		if !floats.CanAttribute(f.Status) {
			return &floats.TransitionError{FloatID: floatID, From: f.Status, To: f.Status}
		}

		if _, err := tx.Exec(`DELETE FROM float_attributions WHERE float_id = ? AND receipt_id = ?`, floatID, receiptID); err != nil {
			return err
		}

		updated, err = s.getFloat(tx, floatID)
		return err
	})

	return updated, err
}

// MarkFloatReturned transitions Outstanding -> Returned.
func (s *Storage) MarkFloatReturned(floatID string, returnDate time.Time) (*FloatRecord, error) {
	var updated *FloatRecord
	err := s.inTx(func(tx *sql.Tx) error {
		f, err := s.getFloat(tx, floatID)
		if err != nil {
			return err
		}

		next, err := floats.MarkReturned(floatID, f.Status)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`UPDATE float_records SET status = ?, return_date = ? WHERE id = ?`, string(next), returnDate, floatID); err != nil {
			return err
		}

		updated, err = s.getFloat(tx, floatID)
		return err
	})

	return updated, err
}

// ReconcileFloat evaluates the recomputed variance under tolerance and
// settles the float into Reconciled or Shortage. The variance itself is
// never zeroed or clamped; a shortage float keeps reporting exactly what is
// unaccounted for.
func (s *Storage) ReconcileFloat(floatID string, tolerance decimal.Decimal) (*FloatRecord, error) {
	var updated *FloatRecord
	err := s.inTx(func(tx *sql.Tx) error {
		f, err := s.getFloat(tx, floatID)
		if err != nil {
			return err
		}

		next, err := floats.Reconcile(floatID, f.Status, f.Variance, tolerance)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`UPDATE float_records SET status = ? WHERE id = ?`, string(next), floatID); err != nil {
			return err
		}

		updated, err = s.getFloat(tx, floatID)
		return err
	})

	return updated, err
}

// ReopenFloat moves a Shortage back to Outstanding (late receipt
// submission), writing the audit entry in the same transaction.
func (s *Storage) ReopenFloat(floatID string, entry *AuditEntry) (*FloatRecord, error) {
	var updated *FloatRecord
	err := s.inTx(func(tx *sql.Tx) error {
		f, err := s.getFloat(tx, floatID)
		if err != nil {
			return err
		}

		next, err := floats.Reopen(floatID, f.Status)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`UPDATE float_records SET status = ?, return_date = NULL WHERE id = ?`, string(next), floatID); err != nil {
			return err
		}

		if entry != nil {
			if err := appendAuditTx(tx, entry); err != nil {
				return err
			}
		}

		updated, err = s.getFloat(tx, floatID)
		return err
	})

	return updated, err
}

// querier covers *sql.DB and *sql.Tx so float reads work inside and outside
// transactions.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// getFloat loads a float and recomputes its receipts total and variance from
// the attribution rows. Decimal summation happens in Go to keep the totals
// exact; SQLite would coerce the TEXT amounts to floating point.
func (s *Storage) getFloat(q querier, id string) (*FloatRecord, error) {
	f := &FloatRecord{}
	var returnDate sql.NullTime
	var status string

	err := q.QueryRow(`
		SELECT id, driver_id, issue_date, issued_amount, purpose, return_date, status, created_at
		FROM float_records WHERE id = ?
	`, id).Scan(&f.ID, &f.DriverID, &f.IssueDate, &f.IssuedAmount, &f.Purpose, &returnDate, &status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &recon.NotFoundError{Kind: "float", ID: id}
	}
	if err != nil {
		return nil, err
	}

	if returnDate.Valid {
		t := returnDate.Time
		f.ReturnDate = &t
	}
	f.Status = floats.Status(status)

	rows, err := q.Query(`SELECT amount FROM float_attributions WHERE float_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	f.ReceiptsAmount = total
	f.Variance = floats.Variance(f.IssuedAmount, total)

	return f, nil
}
