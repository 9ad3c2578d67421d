// Package banking matches receipts against bank-statement transactions.
//
// The search is amount-exact within a date window, ranked by vendor token
// overlap with the statement description, then date proximity, with unmatched
// transactions above already-matched ones. Linkage itself (the at-most
// one-to-one relation) is enforced by the store; this package only ranks.
package banking

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RankMatches filters candidates to those whose signed amount equals the
// target exactly and whose date falls within +/- windowDays inclusive, then
// ranks them. vendorTokens are the normalized tokens of the receipt's vendor
// name; pass nil when searching from the bank side without a vendor.
func RankMatches(amount decimal.Decimal, date time.Time, windowDays int, vendorTokens []string, candidates []Candidate) []RankedMatch {
	from := date.AddDate(0, 0, -windowDays)
	to := date.AddDate(0, 0, windowDays)

	matches := make([]RankedMatch, 0, len(candidates))
	for _, c := range candidates {
		if !c.Amount.Equal(amount) {
			continue
		}
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		matches = append(matches, RankedMatch{
			Candidate:      c,
			TokenOverlap:   tokenOverlap(vendorTokens, c.Description),
			DaysApart:      daysApart(date, c.Date),
			AlreadyMatched: c.MatchedReceiptID != "",
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.TokenOverlap != b.TokenOverlap {
			return a.TokenOverlap > b.TokenOverlap
		}
		if a.DaysApart != b.DaysApart {
			return a.DaysApart < b.DaysApart
		}
		if a.AlreadyMatched != b.AlreadyMatched {
			return !a.AlreadyMatched
		}
		return a.TransactionID < b.TransactionID
	})

	return matches
}

// RankReceiptMatches is the bank-side mirror of RankMatches: given one
// transaction's signed amount, date, and description, it filters and ranks
// receipt candidates by the same criteria, unlinked receipts first.
func RankReceiptMatches(amount decimal.Decimal, date time.Time, windowDays int, description string, candidates []ReceiptCandidate) []RankedReceipt {
	from := date.AddDate(0, 0, -windowDays)
	to := date.AddDate(0, 0, windowDays)

	matches := make([]RankedReceipt, 0, len(candidates))
	for _, c := range candidates {
		if !c.GrossAmount.Equal(amount) {
			continue
		}
		if c.ReceiptDate.Before(from) || c.ReceiptDate.After(to) {
			continue
		}
		matches = append(matches, RankedReceipt{
			ReceiptCandidate: c,
			TokenOverlap:     tokenOverlap(c.VendorTokens, description),
			DaysApart:        daysApart(date, c.ReceiptDate),
			AlreadyLinked:    c.LinkedTransactionID != "",
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.TokenOverlap != b.TokenOverlap {
			return a.TokenOverlap > b.TokenOverlap
		}
		if a.DaysApart != b.DaysApart {
			return a.DaysApart < b.DaysApart
		}
		if a.AlreadyLinked != b.AlreadyLinked {
			return !a.AlreadyLinked
		}
		return a.ReceiptID < b.ReceiptID
	})

	return matches
}

// tokenOverlap counts vendor tokens appearing in the statement description.
// Bank descriptions are noisy ("FAS GAS 42 RED DEER AB"), so containment of
// the whole token is enough; no fuzzy credit here.
func tokenOverlap(vendorTokens []string, description string) int {
	if len(vendorTokens) == 0 || description == "" {
		return 0
	}

	descTokens := strings.Fields(strings.ToLower(description))
	seen := make(map[string]bool, len(descTokens))
	for _, t := range descTokens {
		seen[t] = true
	}

	overlap := 0
	for _, t := range vendorTokens {
		if seen[t] {
			overlap++
		}
	}
	return overlap
}

func daysApart(a, b time.Time) int {
	d := b.Sub(a).Hours() / 24
	if d < 0 {
		d = -d
	}
	return int(d + 0.5)
}
