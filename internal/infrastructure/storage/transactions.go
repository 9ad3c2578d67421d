package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/castlecab/backoffice/internal/domain/recon"
)

// CreateTransaction inserts an imported bank-statement row. Exactly one of
// debit/credit must be set; the schema CHECK enforces it as well.
func (s *Storage) CreateTransaction(t *BankingTransaction) error {
	if t.DebitAmount.Valid == t.CreditAmount.Valid {
		return &recon.InvalidAmountError{Field: "debit/credit", Value: "exactly one of debit_amount and credit_amount must be set"}
	}

	var debit, credit interface{}
	if t.DebitAmount.Valid {
		debit = t.DebitAmount.Decimal.StringFixed(2)
	}
	if t.CreditAmount.Valid {
		credit = t.CreditAmount.Decimal.StringFixed(2)
	}

	_, err := s.db.Exec(`
		INSERT INTO banking_transactions (id, account_id, transaction_date, description, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.AccountID, t.Date, t.Description, debit, credit)
	if err != nil {
		return fmt.Errorf("failed to insert banking transaction: %w", err)
	}

	return nil
}

const transactionColumns = `t.id, t.account_id, t.transaction_date, t.description,
	t.debit_amount, t.credit_amount, r.id`

const transactionJoin = `
	FROM banking_transactions t
	LEFT JOIN receipts r ON r.banking_transaction_id = t.id`

// GetTransaction retrieves a transaction with its derived matched receipt.
func (s *Storage) GetTransaction(id string) (*BankingTransaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionColumns+transactionJoin+` WHERE t.id = ?`, id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &recon.NotFoundError{Kind: "transaction", ID: id}
	}
	return t, err
}

// ListTransactions returns transactions matching the given filters.
func (s *Storage) ListTransactions(filters TransactionFilters) ([]*BankingTransaction, error) {
	query := `SELECT ` + transactionColumns + transactionJoin + ` WHERE 1=1`
	var args []interface{}

	if filters.AccountID != "" {
		query += ` AND t.account_id = ?`
		args = append(args, filters.AccountID)
	}
	if filters.Unmatched {
		query += ` AND r.id IS NULL`
	}
	if filters.DaysBack > 0 {
		query += ` AND t.transaction_date >= ?`
		args = append(args, time.Now().AddDate(0, 0, -filters.DaysBack))
	}

	query += ` ORDER BY t.transaction_date DESC, t.id`

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

	return scanTransactions(rows)
}

// FindBankCandidates returns transactions dated within [from, to] with their
// derived matched receipt id. Amount filtering is left to the ranking layer.
func (s *Storage) FindBankCandidates(from, to time.Time) ([]*BankingTransaction, error) {
	rows, err := s.db.Query(`
		SELECT `+transactionColumns+transactionJoin+`
		WHERE t.transaction_date >= ? AND t.transaction_date <= ?
		ORDER BY t.transaction_date
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func scanTransaction(row rowScanner) (*BankingTransaction, error) {
	t := &BankingTransaction{}
	var matched sql.NullString

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Date,
		&t.Description,
		&t.DebitAmount,
		&t.CreditAmount,
		&matched,
	)
	if err != nil {
		return nil, err
	}

	if matched.Valid {
		t.MatchedReceiptID = matched.String
	}

	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]*BankingTransaction, error) {
	var transactions []*BankingTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
