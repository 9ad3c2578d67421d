package duplicates

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRank_OrdersByDateProximity(t *testing.T) {
	candidates := []Candidate{
		{ReceiptID: "r-far", ReceiptDate: day(20), GrossAmount: amt("58.24")},
		{ReceiptID: "r-same-day", ReceiptDate: day(15), GrossAmount: amt("58.24")},
		{ReceiptID: "r-near", ReceiptDate: day(17), GrossAmount: amt("58.24")},
	}

	matches := Rank(amt("58.24"), day(15), 7, candidates)

	require.Len(t, matches, 3)
	assert.Equal(t, "r-same-day", matches[0].ReceiptID)
	assert.Equal(t, 0, matches[0].DaysApart)
	assert.Equal(t, "r-near", matches[1].ReceiptID)
	assert.Equal(t, "r-far", matches[2].ReceiptID)
}

func TestRank_WindowBoundary(t *testing.T) {
	candidates := []Candidate{
		{ReceiptID: "r-on-edge", ReceiptDate: day(22), GrossAmount: amt("10.00")},
		{ReceiptID: "r-past-edge", ReceiptDate: day(23), GrossAmount: amt("10.00")},
		{ReceiptID: "r-before-edge", ReceiptDate: day(8), GrossAmount: amt("10.00")},
		{ReceiptID: "r-too-early", ReceiptDate: day(7), GrossAmount: amt("10.00")},
	}

	matches := Rank(amt("10.00"), day(15), 7, candidates)

	// Exactly window_days away is included, one day beyond is excluded
	require.Len(t, matches, 2)
	ids := []string{matches[0].ReceiptID, matches[1].ReceiptID}
	assert.Contains(t, ids, "r-on-edge")
	assert.Contains(t, ids, "r-before-edge")
}

func TestRank_AmountIsExact(t *testing.T) {
	candidates := []Candidate{
		{ReceiptID: "r-exact", ReceiptDate: day(15), GrossAmount: amt("25.00")},
		{ReceiptID: "r-one-cent-off", ReceiptDate: day(15), GrossAmount: amt("25.01")},
	}

	matches := Rank(amt("25.00"), day(15), 7, candidates)

	require.Len(t, matches, 1)
	assert.Equal(t, "r-exact", matches[0].ReceiptID)
}

func TestRank_CarriesLinkAnnotation(t *testing.T) {
	candidates := []Candidate{
		{ReceiptID: "r1", ReceiptDate: day(15), GrossAmount: amt("5.00"), Linked: true, LinkedTransactionID: "tx-9"},
	}

	matches := Rank(amt("5.00"), day(15), 3, candidates)

	require.Len(t, matches, 1)
	assert.True(t, matches[0].Linked)
	assert.Equal(t, "tx-9", matches[0].LinkedTransactionID)
}

func TestRank_NoMatchesReturnsEmpty(t *testing.T) {
	matches := Rank(amt("99.99"), day(15), 7, nil)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}
