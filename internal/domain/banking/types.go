package banking

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultWindowDays is the default date window for bank match searches.
// Card settlements routinely post several days after the receipt date.
const DefaultWindowDays = 5

// Candidate is a bank transaction under consideration as a match.
type Candidate struct {
	TransactionID string
	AccountID     string
	Date          time.Time
	Amount        decimal.Decimal // signed: debits positive, credits negative
	Description   string

	// Existing link state. A matched candidate is still returned, flagged,
	// purely for the operator's information.
	MatchedReceiptID string
}

// RankedMatch is a candidate scored against the target receipt.
type RankedMatch struct {
	Candidate
	TokenOverlap   int  // vendor-name tokens found in the description
	DaysApart      int  // absolute date distance
	AlreadyMatched bool // true when another receipt already holds this transaction
}

// ReceiptCandidate is a receipt under consideration as a match for a bank
// transaction, searching from the bank side.
type ReceiptCandidate struct {
	ReceiptID    string
	ReceiptDate  time.Time
	GrossAmount  decimal.Decimal
	VendorTokens []string

	LinkedTransactionID string
}

// RankedReceipt is a receipt candidate scored against a bank transaction.
type RankedReceipt struct {
	ReceiptCandidate
	TokenOverlap  int
	DaysApart     int
	AlreadyLinked bool
}
