// Package allocator distributes a receipt's gross amount across split lines.
//
// The pro-rata allocator turns relative weights into exact cent amounts:
//
//	line_amount = gross * weight / sum(weights)
//
// rounded to cents, with the leftover cents assigned by largest remainder so
// the lines always sum to the gross exactly.
package allocator

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Line is one target of an allocation, weighted relative to its siblings.
type Line struct {
	GLCode string
	Weight decimal.Decimal
}

// Allocation is the exact cent amount assigned to one line.
type Allocation struct {
	GLCode string
	Amount decimal.Decimal
}

var (
	// ErrNoLines rejects an allocation with nothing to allocate to.
	ErrNoLines = errors.New("no lines to allocate")
	// ErrBadWeight rejects zero, negative, or all-zero weights.
	ErrBadWeight = errors.New("line weights must be positive")
)

// Allocate distributes gross across the lines proportionally to their
// weights. The returned amounts are rounded to cents and sum to gross
// exactly.
func Allocate(gross decimal.Decimal, lines []Line) ([]Allocation, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	totalWeight := decimal.Zero
	for _, line := range lines {
		if !line.Weight.IsPositive() {
			return nil, ErrBadWeight
		}
		totalWeight = totalWeight.Add(line.Weight)
	}

	type share struct {
		idx       int
		remainder decimal.Decimal
	}

	allocations := make([]Allocation, len(lines))
	shares := make([]share, len(lines))
	allocated := decimal.Zero
	for i, line := range lines {
		exact := gross.Mul(line.Weight).Div(totalWeight)
		rounded := exact.RoundDown(2)
		allocations[i] = Allocation{GLCode: line.GLCode, Amount: rounded}
		shares[i] = share{idx: i, remainder: exact.Sub(rounded)}
		allocated = allocated.Add(rounded)
	}

	// Hand out the leftover cents, largest remainder first. Index order
	// breaks ties so the result is deterministic.
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder.GreaterThan(shares[j].remainder)
	})

	cent := decimal.New(1, -2)
	leftover := gross.Sub(allocated)
	for i := 0; leftover.GreaterThanOrEqual(cent); i = (i + 1) % len(shares) {
		idx := shares[i].idx
		allocations[idx].Amount = allocations[idx].Amount.Add(cent)
		leftover = leftover.Sub(cent)
	}

	return allocations, nil
}
