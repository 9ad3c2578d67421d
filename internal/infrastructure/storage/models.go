package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/domain/floats"
)

// UnknownVendorID is the reserved singleton vendor that empty or
// whitespace-only raw names resolve to. Seeded by the initial migration.
const UnknownVendorID = "00000000-0000-0000-0000-000000000001"

// SplitStatus tracks whether a receipt has been decomposed into GL lines.
type SplitStatus string

const (
	SplitStatusUnsplit    SplitStatus = "unsplit"
	SplitStatusPending    SplitStatus = "split_pending"
	SplitStatusReconciled SplitStatus = "split_reconciled"
)

// Vendor is a canonical vendor identity with its observed raw spellings.
type Vendor struct {
	ID                string    `json:"id"`
	CanonicalName     string    `json:"canonical_name"`
	NormalizedName    string    `json:"-"`
	SuggestedCategory string    `json:"suggested_category,omitempty"`
	SuggestedTaxCode  string    `json:"suggested_tax_code,omitempty"`
	Aliases           []string  `json:"aliases"`
	CreatedAt         time.Time `json:"created_at"`
}

// Receipt is one expense receipt. Receipts are never deleted, only amended.
type Receipt struct {
	ID               string          `json:"id"`
	ReceiptDate      time.Time       `json:"receipt_date"`
	VendorID         string          `json:"vendor_id"`
	RawVendorName    string          `json:"raw_vendor_name"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	TaxCode          string          `json:"tax_code"`
	Category         string          `json:"category,omitempty"`
	IsPersonal       bool            `json:"is_personal"`
	IsDriverPersonal bool            `json:"is_driver_personal"`

	// BankingTransactionID is the authoritative side of the receipt <->
	// transaction relation. Empty means unlinked. A partial unique index
	// keeps it exclusive across the table.
	BankingTransactionID string `json:"banking_transaction_id,omitempty"`

	SplitStatus SplitStatus `json:"split_status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// BankingTransaction is one imported bank-statement row. Exactly one of
// DebitAmount / CreditAmount is set.
type BankingTransaction struct {
	ID           string              `json:"id"`
	AccountID    string              `json:"account_id"`
	Date         time.Time           `json:"transaction_date"`
	Description  string              `json:"description"`
	DebitAmount  decimal.NullDecimal `json:"debit_amount,omitempty"`
	CreditAmount decimal.NullDecimal `json:"credit_amount,omitempty"`

	// MatchedReceiptID mirrors the receipt-side link. It is derived by a
	// join on read, never stored, so the two sides can never disagree.
	MatchedReceiptID string `json:"matched_receipt_id,omitempty"`
}

// SignedAmount maps the debit/credit pair to one signed value, debit
// positive. Receipts carry expense amounts as positive, so a purchase
// receipt matches a debit of the same magnitude.
func (t *BankingTransaction) SignedAmount() decimal.Decimal {
	if t.DebitAmount.Valid {
		return t.DebitAmount.Decimal
	}
	if t.CreditAmount.Valid {
		return t.CreditAmount.Decimal.Neg()
	}
	return decimal.Zero
}

// ReceiptSplit is one GL-coded allocation of a receipt's gross amount.
// Splits are owned by their receipt and written all-or-nothing.
type ReceiptSplit struct {
	ID            string          `json:"id"`
	ReceiptID     string          `json:"receipt_id"`
	GLCode        string          `json:"gl_code"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// FloatRecord is a cash float issued to a driver. ReceiptsAmount and
// Variance are recomputed from the attribution rows on every read.
type FloatRecord struct {
	ID             string          `json:"id"`
	DriverID       string          `json:"driver_id"`
	IssueDate      time.Time       `json:"issue_date"`
	IssuedAmount   decimal.Decimal `json:"issued_amount"`
	Purpose        string          `json:"purpose,omitempty"`
	ReturnDate     *time.Time      `json:"return_date,omitempty"`
	ReceiptsAmount decimal.Decimal `json:"receipts_amount"`
	Variance       decimal.Decimal `json:"variance"`
	Status         floats.Status   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FloatAttribution records one receipt amount counted against a float. A
// receipt can contribute a partial amount, and a float aggregates many
// receipts.
type FloatAttribution struct {
	FloatID   string          `json:"float_id"`
	ReceiptID string          `json:"receipt_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditEntry is one row of the append-only operator audit log: vendor
// merges, float reopens, link amount-mismatch anomalies.
type AuditEntry struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Audit actions recorded by the engine.
const (
	AuditActionVendorMerge        = "vendor_merge"
	AuditActionFloatReopen        = "float_reopen"
	AuditActionLinkAmountMismatch = "link_amount_mismatch"
)

// Stats is the read-only aggregate surface for dashboard widgets.
type Stats struct {
	VendorCount      int            `json:"vendor_count"`
	ReceiptCount     int            `json:"receipt_count"`
	LinkedReceipts   int            `json:"linked_receipts"`
	UnlinkedReceipts int            `json:"unlinked_receipts"`
	SplitStatusCount map[string]int `json:"split_status_count"`
	FloatStatusCount map[string]int `json:"float_status_count"`
	TotalVariance    string         `json:"total_outstanding_variance"`
}
