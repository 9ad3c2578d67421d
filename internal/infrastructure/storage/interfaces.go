package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines the complete storage interface. It lets the service and
// API layers swap implementations and keeps tests free of a concrete driver.
type Repository interface {
	VendorRepository
	ReceiptRepository
	TransactionRepository
	FloatRepository
	AuditRepository
	GetStats() (*Stats, error)
	Close() error
}

// VendorRepository handles canonical vendor identities and their aliases.
type VendorRepository interface {
	// CreateVendor inserts a vendor together with its initial alias.
	CreateVendor(v *Vendor, normalizedAlias string) error

	// GetVendor retrieves a vendor with all aliases loaded.
	GetVendor(id string) (*Vendor, error)

	// GetVendorByAlias resolves a normalized alias to its vendor, or nil
	// when the alias is unknown.
	GetVendorByAlias(normalized string) (*Vendor, error)

	// ListVendors returns all vendors with aliases, for fuzzy scoring.
	ListVendors() ([]*Vendor, error)

	// AddVendorAlias attaches a raw spelling to an existing vendor.
	AddVendorAlias(vendorID, raw, normalized string) error

	// MergeVendors moves every alias and receipt of fromID onto toID and
	// removes fromID, writing the audit entry in the same transaction.
	MergeVendors(fromID, toID string, entry *AuditEntry) error
}

// ReceiptRepository handles receipts, their bank link, and their splits.
type ReceiptRepository interface {
	CreateReceipt(r *Receipt) error
	GetReceipt(id string) (*Receipt, error)
	ListReceipts(filters ReceiptFilters) ([]*Receipt, error)

	// FindDuplicateCandidates returns receipts of the same vendor dated
	// within [from, to], excluding excludeID, for duplicate ranking.
	FindDuplicateCandidates(vendorID string, from, to time.Time, excludeID string) ([]*Receipt, error)

	// FindReceiptCandidates returns receipts of any vendor dated within
	// [from, to], for bank-side match ranking.
	FindReceiptCandidates(from, to time.Time) ([]*Receipt, error)

	// LinkReceipt establishes the exclusive receipt <-> transaction
	// relation. Re-linking the same pair is a no-op. Either side already
	// linked to a different counterpart yields *recon.AlreadyLinkedError.
	// A non-nil anomaly entry is appended in the same transaction.
	LinkReceipt(receiptID, transactionID string, anomaly *AuditEntry) error

	// UnlinkReceipt clears the relation. Idempotent.
	UnlinkReceipt(receiptID string) error

	// ReplaceSplits writes the full split set atomically and advances the
	// receipt to split_reconciled.
	ReplaceSplits(receiptID string, splits []*ReceiptSplit) error

	// DeleteSplits removes all splits and reverts to unsplit. Idempotent.
	DeleteSplits(receiptID string) error

	GetSplits(receiptID string) ([]*ReceiptSplit, error)
}

// ReceiptFilters narrows ListReceipts.
type ReceiptFilters struct {
	VendorID    string
	SplitStatus string
	LinkedOnly  bool
	Unlinked    bool
	DaysBack    int
	Limit       int
	Offset      int
}

// TransactionRepository handles imported bank-statement rows.
type TransactionRepository interface {
	CreateTransaction(t *BankingTransaction) error
	GetTransaction(id string) (*BankingTransaction, error)
	ListTransactions(filters TransactionFilters) ([]*BankingTransaction, error)

	// FindBankCandidates returns transactions dated within [from, to] with
	// their derived matched receipt id, for match ranking.
	FindBankCandidates(from, to time.Time) ([]*BankingTransaction, error)
}

// TransactionFilters narrows ListTransactions.
type TransactionFilters struct {
	AccountID string
	Unmatched bool
	DaysBack  int
	Limit     int
	Offset    int
}

// FloatRepository handles the cash float ledger. Totals are derived from the
// attribution rows inside each call, never carried between calls.
type FloatRepository interface {
	CreateFloat(f *FloatRecord) error
	GetFloat(id string) (*FloatRecord, error)
	ListFloats(status string) ([]*FloatRecord, error)
	GetAttributions(floatID string) ([]*FloatAttribution, error)

	// AttributeReceipt counts amount from a receipt against a float.
	// Re-attributing the same receipt replaces its amount.
	AttributeReceipt(floatID, receiptID string, amount decimal.Decimal) (*FloatRecord, error)

	// DetachReceipt removes a receipt's attribution. Idempotent.
	DetachReceipt(floatID, receiptID string) (*FloatRecord, error)

	// MarkFloatReturned transitions Outstanding -> Returned.
	MarkFloatReturned(floatID string, returnDate time.Time) (*FloatRecord, error)

	// ReconcileFloat evaluates the variance under tolerance and settles the
	// float into Reconciled or Shortage.
	ReconcileFloat(floatID string, tolerance decimal.Decimal) (*FloatRecord, error)

	// ReopenFloat moves a Shortage back to Outstanding, writing the audit
	// entry in the same transaction.
	ReopenFloat(floatID string, entry *AuditEntry) (*FloatRecord, error)
}

// AuditRepository is the append-only operator action log.
type AuditRepository interface {
	AppendAudit(entry *AuditEntry) error
	ListAudit(entityKind, entityID string) ([]*AuditEntry, error)
}
