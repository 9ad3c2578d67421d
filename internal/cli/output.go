package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/domain/floats"
	"github.com/castlecab/backoffice/internal/infrastructure/storage"
)

// PrintReportHeader prints the float report header
func PrintReportHeader(dbPath, generated string) {
	fmt.Println("DRIVER FLOAT REPORT")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Database: %s\n", dbPath)
	fmt.Printf("Generated: %s\n\n", generated)
}

// PrintFloatSummary prints per-status counts and the outstanding variance total
func PrintFloatSummary(records []*storage.FloatRecord) {
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("-", 40))

	counts := map[floats.Status]int{}
	totalVariance := decimal.Zero
	for _, f := range records {
		counts[f.Status]++
		if f.Status != floats.StatusReconciled {
			totalVariance = totalVariance.Add(f.Variance)
		}
	}

	for _, status := range []floats.Status{
		floats.StatusOutstanding,
		floats.StatusReturned,
		floats.StatusReconciled,
		floats.StatusShortage,
	} {
		fmt.Printf("  %-12s %d\n", status, counts[status])
	}
	fmt.Printf("\nOutstanding variance: $%s\n\n", totalVariance.StringFixed(2))
}

// PrintFloatDetail prints one float with its attributions
func PrintFloatDetail(f *storage.FloatRecord, attributions []*storage.FloatAttribution) {
	fmt.Printf("Float %s  driver=%s  status=%s\n", f.ID, f.DriverID, f.Status)
	fmt.Printf("  issued %s on %s", f.IssuedAmount.StringFixed(2), f.IssueDate.Format("2006-01-02"))
	if f.ReturnDate != nil {
		fmt.Printf(", returned %s", f.ReturnDate.Format("2006-01-02"))
	}
	fmt.Printf("\n  receipts %s  variance %s\n",
		f.ReceiptsAmount.StringFixed(2), f.Variance.StringFixed(2))

	for _, a := range attributions {
		fmt.Printf("    receipt %s  %s\n", a.ReceiptID, a.Amount.StringFixed(2))
	}
	fmt.Println()
}
