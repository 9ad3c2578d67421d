// Package recon defines the error types shared across the reconciliation
// engine. Every mutating operation returns one of these (wrapped) so callers
// can branch with errors.As rather than string matching.
package recon

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlreadyLinkedError reports a link attempt where one side is already linked
// to a different counterpart. Recoverable: the caller must unlink first.
type AlreadyLinkedError struct {
	ReceiptID     string
	TransactionID string

	// The conflicting side of the existing relation. Exactly one of these is
	// set, depending on which side was already taken.
	LinkedTransactionID string // receipt is already linked to this transaction
	LinkedReceiptID     string // transaction is already held by this receipt
}

func (e *AlreadyLinkedError) Error() string {
	if e.LinkedTransactionID != "" {
		return fmt.Sprintf("receipt %s is already linked to transaction %s", e.ReceiptID, e.LinkedTransactionID)
	}
	return fmt.Sprintf("transaction %s is already linked to receipt %s", e.TransactionID, e.LinkedReceiptID)
}

// SplitSumMismatchError reports a proposed split whose lines do not sum to the
// receipt's gross amount. Difference is signed: positive means the lines fall
// short of the gross, negative means they exceed it.
type SplitSumMismatchError struct {
	GrossAmount decimal.Decimal
	SplitTotal  decimal.Decimal
	Difference  decimal.Decimal
}

func (e *SplitSumMismatchError) Error() string {
	if e.Difference.IsPositive() {
		return fmt.Sprintf("split lines sum to %s, short of gross %s by %s",
			e.SplitTotal.StringFixed(2), e.GrossAmount.StringFixed(2), e.Difference.StringFixed(2))
	}
	return fmt.Sprintf("split lines sum to %s, exceeding gross %s by %s",
		e.SplitTotal.StringFixed(2), e.GrossAmount.StringFixed(2), e.Difference.Neg().StringFixed(2))
}

// InvalidAmountError reports a malformed currency value. Rejected before any
// persistence happens.
type InvalidAmountError struct {
	Field string
	Value string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount for %s: %q", e.Field, e.Value)
}

// NotFoundError reports a missing receipt, transaction, vendor or float.
type NotFoundError struct {
	Kind string // "receipt", "transaction", "vendor", "float"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
