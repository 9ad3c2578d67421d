// Package duplicates ranks candidate duplicate receipts.
//
// The detector is advisory only: it surfaces everything inside the window and
// leaves disposition to the caller. Legitimately repeated charges (recurring
// subscriptions, NSF re-presentments) look identical to real duplicates, so
// nothing here deletes or blocks.
package duplicates

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultWindowDays is the default +/- search window around the receipt date.
const DefaultWindowDays = 7

// Candidate is a receipt under consideration as a duplicate.
type Candidate struct {
	ReceiptID     string
	ReceiptDate   time.Time
	GrossAmount   decimal.Decimal
	RawVendorName string

	// Linked transaction state, informational for the caller
	Linked              bool
	LinkedTransactionID string
}

// Match is a candidate annotated with its distance from the target date.
type Match struct {
	Candidate
	DaysApart int
}

// Window returns the inclusive [from, to] date range for a target date and
// window size. A candidate dated exactly windowDays away is inside the window.
func Window(date time.Time, windowDays int) (from, to time.Time) {
	from = date.AddDate(0, 0, -windowDays)
	to = date.AddDate(0, 0, windowDays)
	return from, to
}

// Rank filters candidates to those within the window whose amount equals the
// target exactly, and orders them by date proximity, closest first. Ties break
// on receipt ID for stable output.
func Rank(amount decimal.Decimal, date time.Time, windowDays int, candidates []Candidate) []Match {
	from, to := Window(date, windowDays)

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if !c.GrossAmount.Equal(amount) {
			continue
		}
		if c.ReceiptDate.Before(from) || c.ReceiptDate.After(to) {
			continue
		}
		matches = append(matches, Match{
			Candidate: c,
			DaysApart: daysApart(date, c.ReceiptDate),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DaysApart != matches[j].DaysApart {
			return matches[i].DaysApart < matches[j].DaysApart
		}
		return matches[i].ReceiptID < matches[j].ReceiptID
	})

	return matches
}

// daysApart returns the absolute whole-day distance between two dates.
func daysApart(a, b time.Time) int {
	d := b.Sub(a).Hours() / 24
	if d < 0 {
		d = -d
	}
	return int(d + 0.5)
}
