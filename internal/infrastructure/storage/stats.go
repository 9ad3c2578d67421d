package storage

import (
	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/domain/floats"
)

// GetStats returns the read-only aggregates exposed to dashboard widgets.
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{
		SplitStatusCount: make(map[string]int),
		FloatStatusCount: make(map[string]int),
	}

	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM vendors),
			(SELECT COUNT(*) FROM receipts),
			(SELECT COUNT(*) FROM receipts WHERE banking_transaction_id IS NOT NULL),
			(SELECT COUNT(*) FROM receipts WHERE banking_transaction_id IS NULL)
	`).Scan(&stats.VendorCount, &stats.ReceiptCount, &stats.LinkedReceipts, &stats.UnlinkedReceipts)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT split_status, COUNT(*) FROM receipts GROUP BY split_status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.SplitStatusCount[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	frows, err := s.db.Query(`SELECT status, COUNT(*) FROM float_records GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = frows.Close() }()
	for frows.Next() {
		var status string
		var count int
		if err := frows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.FloatStatusCount[status] = count
	}
	if err := frows.Err(); err != nil {
		return nil, err
	}

	// Total variance across floats still open or short, summed exactly
	openFloats, err := s.ListFloats("")
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, f := range openFloats {
		if f.Status == floats.StatusOutstanding || f.Status == floats.StatusReturned || f.Status == floats.StatusShortage {
			total = total.Add(f.Variance)
		}
	}
	stats.TotalVariance = total.StringFixed(2)

	return stats, nil
}
