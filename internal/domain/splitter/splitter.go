// Package splitter validates receipt split proposals.
//
// A split decomposes one receipt's gross amount into GL-coded lines with an
// exact-sum invariant: the lines must total the gross to the cent or the
// whole proposal is rejected with the signed difference, and nothing is
// persisted. The parent receipt row is never touched by splitting, so the
// original amount is always reconstructable.
package splitter

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/domain/recon"
)

// ErrTooFewLines rejects single-line "splits"; a receipt with one allocation
// should stay unsplit.
var ErrTooFewLines = errors.New("a split requires at least two lines")

// Line is one GL-coded allocation of a receipt's gross amount.
type Line struct {
	GLCode        string
	Amount        decimal.Decimal
	PaymentMethod string
	Notes         string
}

// Validate checks a proposed split against the receipt's gross amount.
// Returns ErrTooFewLines, *recon.InvalidAmountError for a malformed line
// amount, or *recon.SplitSumMismatchError carrying the signed
// shortfall/excess. A nil return means the split may be persisted.
func Validate(gross decimal.Decimal, lines []Line) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}

	total := decimal.Zero
	for _, line := range lines {
		if err := checkAmount(line.Amount); err != nil {
			return err
		}
		total = total.Add(line.Amount)
	}

	if !total.Equal(gross) {
		return &recon.SplitSumMismatchError{
			GrossAmount: gross,
			SplitTotal:  total,
			Difference:  gross.Sub(total),
		}
	}

	return nil
}

// checkAmount rejects zero lines and sub-cent precision. Negative lines are
// legal: a split can carry a discount or refund component.
func checkAmount(a decimal.Decimal) error {
	if a.IsZero() {
		return &recon.InvalidAmountError{Field: "amount", Value: a.String()}
	}
	if a.Exponent() < -2 {
		return &recon.InvalidAmountError{Field: "amount", Value: a.String()}
	}
	return nil
}
