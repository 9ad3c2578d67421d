package service

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlecab/backoffice/internal/domain/allocator"
	"github.com/castlecab/backoffice/internal/domain/floats"
	"github.com/castlecab/backoffice/internal/domain/recon"
	"github.com/castlecab/backoffice/internal/domain/splitter"
	"github.com/castlecab/backoffice/internal/infrastructure/config"
	"github.com/castlecab/backoffice/internal/infrastructure/storage"
)

func newTestService(t *testing.T) (*ReconService, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.LoadFromEnv()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewReconService(cfg, store, logger), store
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func createReceipt(t *testing.T, svc *ReconService, vendorName, gross string, date time.Time) *storage.Receipt {
	t.Helper()

	res, err := svc.CreateReceipt(CreateReceiptInput{
		ReceiptDate:   date,
		RawVendorName: vendorName,
		GrossAmount:   amt(gross),
		TaxCode:       "GST_5",
	})
	require.NoError(t, err)
	return res.Receipt
}

func createTransaction(t *testing.T, store *storage.Storage, debit string, date time.Time, description string) *storage.BankingTransaction {
	t.Helper()

	tx := &storage.BankingTransaction{
		ID:          uuid.NewString(),
		AccountID:   "acct-chequing",
		Date:        date,
		Description: description,
		DebitAmount: decimal.NullDecimal{Decimal: amt(debit), Valid: true},
	}
	require.NoError(t, store.CreateTransaction(tx))
	return tx
}

func TestResolveVendor_CreatesThenReuses(t *testing.T) {
	svc, _ := newTestService(t)

	v1, created, err := svc.ResolveVendor("FAS GAS")
	require.NoError(t, err)
	assert.True(t, created)

	// Different spellings of the same vendor converge on one identity.
	v2, created, err := svc.ResolveVendor("Fas Gas")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v1.ID, v2.ID)

	v3, created, err := svc.ResolveVendor("fas gas #42")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v1.ID, v3.ID)
}

func TestResolveVendor_FuzzyAliasAttach(t *testing.T) {
	svc, _ := newTestService(t)

	v1, _, err := svc.ResolveVendor("FAS GAS")
	require.NoError(t, err)

	// Missing space still scores above the threshold.
	v2, created, err := svc.ResolveVendor("FASGAS")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v1.ID, v2.ID)
}

func TestResolveVendor_DistinctStaysDistinct(t *testing.T) {
	svc, _ := newTestService(t)

	v1, _, err := svc.ResolveVendor("GLOBAL VISA DEPOSIT")
	require.NoError(t, err)

	// Heavy abbreviation must not auto-attach.
	v2, created, err := svc.ResolveVendor("GBL VI")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, v1.ID, v2.ID)
}

func TestResolveVendor_EmptyNameUsesUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	v, created, err := svc.ResolveVendor("   ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, storage.UnknownVendorID, v.ID)
}

func TestResolveVendor_UnknownNameResolvesToSingleton(t *testing.T) {
	svc, _ := newTestService(t)

	// The singleton's own canonical name must resolve back to it, so that
	// resolving a resolved name is a no-op rather than a duplicate vendor.
	v, created, err := svc.ResolveVendor("Unknown Vendor")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, storage.UnknownVendorID, v.ID)

	blank, _, err := svc.ResolveVendor("   ")
	require.NoError(t, err)
	again, created, err := svc.ResolveVendor(blank.CanonicalName)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, blank.ID, again.ID)
}

func TestCreateReceipt_ComputesIncludedTax(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.CreateReceipt(CreateReceiptInput{
		ReceiptDate:   day(10),
		RawVendorName: "FAS GAS",
		GrossAmount:   amt("105.00"),
		TaxCode:       "GST_5",
	})
	require.NoError(t, err)
	assert.True(t, res.Receipt.TaxAmount.Equal(amt("5.00")),
		"got %s", res.Receipt.TaxAmount)
}

func TestCreateReceipt_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateReceipt(CreateReceiptInput{
		ReceiptDate:   day(10),
		RawVendorName: "FAS GAS",
		GrossAmount:   amt("0"),
	})

	var invalidErr *recon.InvalidAmountError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "gross_amount", invalidErr.Field)
}

func TestCreateReceipt_RejectsSubCentAmount(t *testing.T) {
	svc, store := newTestService(t)

	// Sub-cent precision would be silently rounded on insert; it has to be
	// rejected before anything is stored.
	_, err := svc.CreateReceipt(CreateReceiptInput{
		ReceiptDate:   day(10),
		RawVendorName: "FAS GAS",
		GrossAmount:   amt("58.245"),
	})
	var invalidErr *recon.InvalidAmountError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "gross_amount", invalidErr.Field)

	receipts, err := store.ListReceipts(storage.ReceiptFilters{})
	require.NoError(t, err)
	assert.Empty(t, receipts)

	_, err = svc.CreateReceipt(CreateReceiptInput{
		ReceiptDate:   day(10),
		RawVendorName: "FAS GAS",
		GrossAmount:   amt("58.24"),
		TaxAmount:     decimal.NullDecimal{Decimal: amt("2.775"), Valid: true},
	})
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "tax_amount", invalidErr.Field)
}

func TestFloat_RejectsSubCentAmounts(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateFloat(CreateFloatInput{
		DriverID:     "driver-7",
		IssueDate:    day(1),
		IssuedAmount: amt("200.005"),
	})
	var invalidErr *recon.InvalidAmountError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "issued_amount", invalidErr.Field)

	f, err := svc.CreateFloat(CreateFloatInput{
		DriverID:     "driver-7",
		IssueDate:    day(1),
		IssuedAmount: amt("200.00"),
	})
	require.NoError(t, err)

	r := createReceipt(t, svc, "FAS GAS", "50.00", day(2))
	_, err = svc.AttributeReceipt(f.ID, r.ID, amt("25.125"))
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "amount", invalidErr.Field)
}

func TestCreateReceipt_FlagsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)

	first := createReceipt(t, svc, "FAS GAS", "58.24", day(10))

	res, err := svc.CreateReceipt(CreateReceiptInput{
		ReceiptDate:   day(12),
		RawVendorName: "Fas Gas",
		GrossAmount:   amt("58.24"),
		TaxCode:       "GST_5",
	})
	require.NoError(t, err)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, first.ID, res.Duplicates[0].ReceiptID)
	assert.Equal(t, 2, res.Duplicates[0].DaysApart)
}

func TestFindDuplicates_OutsideWindowExcluded(t *testing.T) {
	svc, _ := newTestService(t)

	target := createReceipt(t, svc, "FAS GAS", "58.24", day(10))
	createReceipt(t, svc, "FAS GAS", "58.24", day(25)) // 15 days out

	matches, err := svc.FindDuplicates(target.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindBankMatches_RanksByDescriptionOverlap(t *testing.T) {
	svc, store := newTestService(t)

	r := createReceipt(t, svc, "FAS GAS", "58.24", day(10))
	want := createTransaction(t, store, "58.24", day(12), "POS PURCHASE FAS GAS 1234")
	createTransaction(t, store, "58.24", day(11), "POS PURCHASE PETRO-CANADA")

	matches, err := svc.FindBankMatches(r.ID, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, want.ID, matches[0].TransactionID)
	assert.Equal(t, 2, matches[0].TokenOverlap)
}

func TestFindReceiptMatches_BankSideLookup(t *testing.T) {
	svc, store := newTestService(t)

	want := createReceipt(t, svc, "FAS GAS", "58.24", day(10))
	createReceipt(t, svc, "PETRO-CANADA", "58.24", day(11))
	tx := createTransaction(t, store, "58.24", day(12), "POS PURCHASE FAS GAS 1234")

	matches, err := svc.FindReceiptMatches(tx.ID, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, want.ID, matches[0].ReceiptID)
	assert.False(t, matches[0].AlreadyLinked)
}

func TestLink_AmountMismatchRecordsAnomaly(t *testing.T) {
	svc, store := newTestService(t)

	r := createReceipt(t, svc, "FAS GAS", "58.24", day(10))
	tx := createTransaction(t, store, "60.00", day(10), "FAS GAS")

	require.NoError(t, svc.Link(r.ID, tx.ID, "erin"))

	entries, err := store.ListAudit("receipt", r.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.AuditActionLinkAmountMismatch, entries[0].Action)
	assert.Equal(t, "erin", entries[0].Actor)
}

func TestLink_ExactAmountNoAnomaly(t *testing.T) {
	svc, store := newTestService(t)

	r := createReceipt(t, svc, "FAS GAS", "58.24", day(10))
	tx := createTransaction(t, store, "58.24", day(10), "FAS GAS")

	require.NoError(t, svc.Link(r.ID, tx.ID, "erin"))

	entries, err := store.ListAudit("receipt", r.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLink_OccupiedTransactionRejected(t *testing.T) {
	svc, store := newTestService(t)

	r1 := createReceipt(t, svc, "FAS GAS", "58.24", day(10))
	r2 := createReceipt(t, svc, "FAS GAS", "58.24", day(11))
	tx := createTransaction(t, store, "58.24", day(10), "FAS GAS")

	require.NoError(t, svc.Link(r1.ID, tx.ID, "erin"))

	err := svc.Link(r2.ID, tx.ID, "erin")
	var linkedErr *recon.AlreadyLinkedError
	require.ErrorAs(t, err, &linkedErr)
}

func TestProposeSplit_ExactSumPersists(t *testing.T) {
	svc, store := newTestService(t)

	r := createReceipt(t, svc, "COSTCO", "58.24", day(10))

	splits, err := svc.ProposeSplit(r.ID, []splitter.Line{
		{GLCode: "5200-FUEL", Amount: amt("28.05")},
		{GLCode: "5300-SUPPLIES", Amount: amt("30.19")},
	})
	require.NoError(t, err)
	assert.Len(t, splits, 2)

	got, err := store.GetReceipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.SplitStatusReconciled, got.SplitStatus)
}

func TestProposeSplit_MismatchRejectsAtomically(t *testing.T) {
	svc, store := newTestService(t)

	r := createReceipt(t, svc, "COSTCO", "58.24", day(10))

	_, err := svc.ProposeSplit(r.ID, []splitter.Line{
		{GLCode: "5200-FUEL", Amount: amt("28.00")},
		{GLCode: "5300-SUPPLIES", Amount: amt("30.19")},
	})

	var mismatchErr *recon.SplitSumMismatchError
	require.ErrorAs(t, err, &mismatchErr)
	assert.True(t, mismatchErr.Difference.Equal(amt("0.05")))

	rows, err := store.GetSplits(r.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSuggestSplit_AmountsSumToGross(t *testing.T) {
	svc, _ := newTestService(t)

	r := createReceipt(t, svc, "COSTCO", "100.00", day(10))

	lines, err := svc.SuggestSplit(r.ID, []allocator.Line{
		{GLCode: "a", Weight: amt("1")},
		{GLCode: "b", Weight: amt("1")},
		{GLCode: "c", Weight: amt("1")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 3)

	// The suggestion satisfies the exact-sum invariant directly.
	_, err = svc.ProposeSplit(r.ID, lines)
	require.NoError(t, err)
}

func TestMergeVendors_AuditedAndSelfMergeRejected(t *testing.T) {
	svc, store := newTestService(t)

	v1, _, err := svc.ResolveVendor("GLOBAL VISA DEPOSIT")
	require.NoError(t, err)
	v2, _, err := svc.ResolveVendor("GBL VI")
	require.NoError(t, err)

	require.Error(t, svc.MergeVendors(v1.ID, v1.ID, "erin"))

	require.NoError(t, svc.MergeVendors(v2.ID, v1.ID, "erin"))

	entries, err := store.ListAudit("vendor", v1.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.AuditActionVendorMerge, entries[0].Action)

	_, err = store.GetVendor(v2.ID)
	var notFound *recon.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestFloatLifecycle_ShortageAndReopen(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := svc.CreateFloat(CreateFloatInput{
		DriverID:     "driver-7",
		IssueDate:    day(1),
		IssuedAmount: amt("200.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, floats.StatusOutstanding, f.Status)

	r := createReceipt(t, svc, "FAS GAS", "185.00", day(2))
	f, err = svc.AttributeReceipt(f.ID, r.ID, amt("185.00"))
	require.NoError(t, err)
	assert.True(t, f.ReceiptsAmount.Equal(amt("185.00")))

	f, err = svc.MarkFloatReturned(f.ID, day(5))
	require.NoError(t, err)
	assert.Equal(t, floats.StatusReturned, f.Status)

	f, err = svc.ReconcileFloat(f.ID)
	require.NoError(t, err)
	assert.Equal(t, floats.StatusShortage, f.Status)
	assert.True(t, f.Variance.Equal(amt("15.00")))

	f, err = svc.ReopenFloat(f.ID, "erin", "driver found the missing receipt")
	require.NoError(t, err)
	assert.Equal(t, floats.StatusOutstanding, f.Status)
}

func TestAttributeReceipt_CannotExceedReceiptGross(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := svc.CreateFloat(CreateFloatInput{
		DriverID:     "driver-7",
		IssueDate:    day(1),
		IssuedAmount: amt("200.00"),
	})
	require.NoError(t, err)

	r := createReceipt(t, svc, "FAS GAS", "50.00", day(2))

	_, err = svc.AttributeReceipt(f.ID, r.ID, amt("75.00"))
	var invalidErr *recon.InvalidAmountError
	require.ErrorAs(t, err, &invalidErr)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)

	createReceipt(t, svc, "FAS GAS", "10.00", day(1))
	createReceipt(t, svc, "COSTCO", "20.00", day(2))

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReceiptCount)
	assert.Equal(t, 2, stats.UnlinkedReceipts)
}
