package dto

// DuplicateResponse is one ranked duplicate candidate for a receipt.
type DuplicateResponse struct {
	ReceiptID           string `json:"receipt_id"`
	ReceiptDate         string `json:"receipt_date"`
	GrossAmount         string `json:"gross_amount"`
	RawVendorName       string `json:"raw_vendor_name"`
	DaysApart           int    `json:"days_apart"`
	Linked              bool   `json:"linked"`
	LinkedTransactionID string `json:"linked_transaction_id,omitempty"`
}

// BankMatchResponse is one ranked bank-transaction candidate for a receipt.
type BankMatchResponse struct {
	TransactionID    string `json:"transaction_id"`
	AccountID        string `json:"account_id"`
	Date             string `json:"transaction_date"`
	Description      string `json:"description"`
	Amount           string `json:"amount"`
	TokenOverlap     int    `json:"token_overlap"`
	DaysApart        int    `json:"days_apart"`
	AlreadyMatched   bool   `json:"already_matched"`
	MatchedReceiptID string `json:"matched_receipt_id,omitempty"`
}

// ReceiptMatchResponse is one ranked receipt candidate for a bank transaction.
type ReceiptMatchResponse struct {
	ReceiptID           string `json:"receipt_id"`
	ReceiptDate         string `json:"receipt_date"`
	GrossAmount         string `json:"gross_amount"`
	TokenOverlap        int    `json:"token_overlap"`
	DaysApart           int    `json:"days_apart"`
	AlreadyLinked       bool   `json:"already_linked"`
	LinkedTransactionID string `json:"linked_transaction_id,omitempty"`
}

// ResolveVendorResponse reports the canonical vendor a raw name mapped to.
type ResolveVendorResponse struct {
	VendorID      string   `json:"vendor_id"`
	CanonicalName string   `json:"canonical_name"`
	Aliases       []string `json:"aliases"`
	Created       bool     `json:"created"`
}
