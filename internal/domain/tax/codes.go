// Package tax defines the receipt tax code scheme.
//
// Codes are percentage-inclusive: the receipt's gross amount already contains
// the tax, and IncludedTax backs the tax portion out of the gross. Two codes
// carry no tax at all: NO_TAX for exempt purchases and DRIVER_PERSONAL for
// personal spending recovered from the driver.
package tax

import "github.com/shopspring/decimal"

// Code identifies a tax scheme for a receipt.
type Code string

const (
	CodeGST5           Code = "GST_5"
	CodePST7           Code = "PST_7"
	CodeGSTPST         Code = "GST_PST"
	CodeNoTax          Code = "NO_TAX"
	CodeDriverPersonal Code = "DRIVER_PERSONAL"
)

var rates = map[Code]decimal.Decimal{
	CodeGST5:           decimal.RequireFromString("0.05"),
	CodePST7:           decimal.RequireFromString("0.07"),
	CodeGSTPST:         decimal.RequireFromString("0.12"),
	CodeNoTax:          decimal.Zero,
	CodeDriverPersonal: decimal.Zero,
}

// Valid reports whether c is a known tax code.
func Valid(c Code) bool {
	_, ok := rates[c]
	return ok
}

// Rate returns the inclusive tax rate for a code, zero for unknown codes.
func Rate(c Code) decimal.Decimal {
	return rates[c]
}

// IncludedTax returns the tax portion of a tax-inclusive gross amount,
// rounded to the cent: gross * rate / (1 + rate).
func IncludedTax(c Code, gross decimal.Decimal) decimal.Decimal {
	rate := rates[c]
	if rate.IsZero() {
		return decimal.Zero
	}
	return gross.Mul(rate).Div(decimal.NewFromInt(1).Add(rate)).Round(2)
}
