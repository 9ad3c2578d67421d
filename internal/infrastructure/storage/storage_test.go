package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlecab/backoffice/internal/domain/recon"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	store, err := NewStorage(filepath.Join(t.TempDir(), "backoffice_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullAmt(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: amt(s), Valid: true}
}

func testVendor(t *testing.T, store *Storage, name, normalized string) *Vendor {
	t.Helper()

	v := &Vendor{
		ID:             uuid.NewString(),
		CanonicalName:  name,
		NormalizedName: normalized,
	}
	require.NoError(t, store.CreateVendor(v, normalized))
	return v
}

func testReceipt(t *testing.T, store *Storage, vendorID string, gross string, date time.Time) *Receipt {
	t.Helper()

	r := &Receipt{
		ID:            uuid.NewString(),
		ReceiptDate:   date,
		VendorID:      vendorID,
		RawVendorName: "test vendor",
		GrossAmount:   amt(gross),
		TaxAmount:     amt("0.00"),
		TaxCode:       "NO_TAX",
	}
	require.NoError(t, store.CreateReceipt(r))
	return r
}

func testTransaction(t *testing.T, store *Storage, debit string, date time.Time, description string) *BankingTransaction {
	t.Helper()

	tx := &BankingTransaction{
		ID:          uuid.NewString(),
		AccountID:   "acct-chequing",
		Date:        date,
		Description: description,
		DebitAmount: nullAmt(debit),
	}
	require.NoError(t, store.CreateTransaction(tx))
	return tx
}

func TestStorage_VendorRoundTrip(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Fas Gas", "fas gas")
	require.NoError(t, store.AddVendorAlias(v.ID, "FAS GAS #42", "fas gas"))

	got, err := store.GetVendor(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fas Gas", got.CanonicalName)
	assert.Equal(t, "fas gas", got.NormalizedName)
	assert.Contains(t, got.Aliases, "fas gas")

	byAlias, err := store.GetVendorByAlias("fas gas")
	require.NoError(t, err)
	require.NotNil(t, byAlias)
	assert.Equal(t, v.ID, byAlias.ID)

	missing, err := store.GetVendorByAlias("no such vendor")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStorage_UnknownVendorSeeded(t *testing.T) {
	store := newTestStorage(t)

	v, err := store.GetVendor(UnknownVendorID)
	require.NoError(t, err)
	assert.Equal(t, "Unknown Vendor", v.CanonicalName)

	// The singleton's own name resolves back to it through the alias table,
	// like any other vendor spelling.
	byAlias, err := store.GetVendorByAlias("unknown vendor")
	require.NoError(t, err)
	require.NotNil(t, byAlias)
	assert.Equal(t, UnknownVendorID, byAlias.ID)
}

func TestStorage_MergeVendors(t *testing.T) {
	store := newTestStorage(t)

	from := testVendor(t, store, "GBL VI", "gbl vi")
	to := testVendor(t, store, "Global Visa Deposit", "global visa deposit")
	r := testReceipt(t, store, from.ID, "100.00", time.Now())

	entry := &AuditEntry{
		Actor:      "operator",
		Action:     AuditActionVendorMerge,
		EntityKind: "vendor",
		EntityID:   to.ID,
		Detail:     `{"from":"` + from.ID + `"}`,
	}
	require.NoError(t, store.MergeVendors(from.ID, to.ID, entry))

	// Old vendor is gone, alias and receipt moved
	_, err := store.GetVendor(from.ID)
	var nf *recon.NotFoundError
	require.ErrorAs(t, err, &nf)

	byAlias, err := store.GetVendorByAlias("gbl vi")
	require.NoError(t, err)
	require.NotNil(t, byAlias)
	assert.Equal(t, to.ID, byAlias.ID)

	moved, err := store.GetReceipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, moved.VendorID)

	audit, err := store.ListAudit("vendor", to.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, AuditActionVendorMerge, audit[0].Action)
}

func TestStorage_ReceiptRoundTrip(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Husky", "husky")
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	r := testReceipt(t, store, v.ID, "58.24", date)

	got, err := store.GetReceipt(r.ID)
	require.NoError(t, err)
	assert.True(t, got.GrossAmount.Equal(amt("58.24")))
	assert.Equal(t, SplitStatusUnsplit, got.SplitStatus)
	assert.Empty(t, got.BankingTransactionID)

	_, err = store.GetReceipt("missing")
	var nf *recon.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStorage_LinkExclusivity(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Shell", "shell")
	now := time.Now()
	a := testReceipt(t, store, v.ID, "40.00", now)
	b := testReceipt(t, store, v.ID, "40.00", now)
	tx := testTransaction(t, store, "40.00", now, "SHELL 1183")

	require.NoError(t, store.LinkReceipt(a.ID, tx.ID, nil))

	// Same pair again is idempotent
	require.NoError(t, store.LinkReceipt(a.ID, tx.ID, nil))

	// A second receipt fails fast with the holder identified
	err := store.LinkReceipt(b.ID, tx.ID, nil)
	var linked *recon.AlreadyLinkedError
	require.ErrorAs(t, err, &linked)
	assert.Equal(t, a.ID, linked.LinkedReceiptID)

	// After unlink the loser can take the transaction
	require.NoError(t, store.UnlinkReceipt(a.ID))
	require.NoError(t, store.LinkReceipt(b.ID, tx.ID, nil))

	got, err := store.GetTransaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.MatchedReceiptID)
}

func TestStorage_LinkReceiptAlreadyHoldingAnother(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Esso", "esso")
	now := time.Now()
	r := testReceipt(t, store, v.ID, "25.00", now)
	tx1 := testTransaction(t, store, "25.00", now, "ESSO")
	tx2 := testTransaction(t, store, "25.00", now, "ESSO")

	require.NoError(t, store.LinkReceipt(r.ID, tx1.ID, nil))

	err := store.LinkReceipt(r.ID, tx2.ID, nil)
	var linked *recon.AlreadyLinkedError
	require.ErrorAs(t, err, &linked)
	assert.Equal(t, tx1.ID, linked.LinkedTransactionID)
}

func TestStorage_LinkRaceLoserGetsAlreadyLinked(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Chevron", "chevron")
	now := time.Now()
	holder := testReceipt(t, store, v.ID, "30.00", now)
	loser := testReceipt(t, store, v.ID, "30.00", now)
	bankTx := testTransaction(t, store, "30.00", now, "CHEVRON")

	require.NoError(t, store.LinkReceipt(holder.ID, bankTx.ID, nil))

	// A concurrent loser skips the pre-checks and hits the partial unique
	// index on the write itself.
	dbTx, err := store.db.Begin()
	require.NoError(t, err)
	defer func() { _ = dbTx.Rollback() }()

	violation := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	got := linkWriteError(dbTx, violation, loser.ID, bankTx.ID)

	var linked *recon.AlreadyLinkedError
	require.ErrorAs(t, got, &linked)
	assert.Equal(t, holder.ID, linked.LinkedReceiptID)
	assert.Equal(t, bankTx.ID, linked.TransactionID)

	// Anything other than a unique violation passes through wrapped.
	plain := linkWriteError(dbTx, errors.New("disk I/O error"), loser.ID, bankTx.ID)
	assert.False(t, errors.As(plain, &linked))
	assert.ErrorContains(t, plain, "disk I/O error")
}

func TestStorage_LinkWritesAnomalyAtomically(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Petro", "petro")
	now := time.Now()
	r := testReceipt(t, store, v.ID, "60.00", now)
	tx := testTransaction(t, store, "58.00", now, "PETRO CANADA")

	anomaly := &AuditEntry{
		Action:     AuditActionLinkAmountMismatch,
		EntityKind: "receipt",
		EntityID:   r.ID,
		Detail:     `{"receipt":"60.00","transaction":"58.00"}`,
	}
	require.NoError(t, store.LinkReceipt(r.ID, tx.ID, anomaly))

	audit, err := store.ListAudit("receipt", r.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, AuditActionLinkAmountMismatch, audit[0].Action)
}

func TestStorage_UnlinkIsIdempotent(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Husky", "husky")
	r := testReceipt(t, store, v.ID, "10.00", time.Now())

	require.NoError(t, store.UnlinkReceipt(r.ID))
	require.NoError(t, store.UnlinkReceipt(r.ID))

	err := store.UnlinkReceipt("missing")
	var nf *recon.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStorage_ReplaceAndDeleteSplits(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Canadian Tire", "canadian tire")
	r := testReceipt(t, store, v.ID, "58.24", time.Now())

	splits := []*ReceiptSplit{
		{ID: uuid.NewString(), ReceiptID: r.ID, GLCode: "6900", Amount: amt("28.05"), PaymentMethod: "visa"},
		{ID: uuid.NewString(), ReceiptID: r.ID, GLCode: "6500", Amount: amt("30.19"), PaymentMethod: "visa"},
	}
	require.NoError(t, store.ReplaceSplits(r.ID, splits))

	got, err := store.GetReceipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, SplitStatusReconciled, got.SplitStatus)

	// Original receipt amount untouched by splitting
	assert.True(t, got.GrossAmount.Equal(amt("58.24")))

	stored, err := store.GetSplits(r.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "6900", stored[0].GLCode)
	assert.True(t, stored[0].Amount.Equal(amt("28.05")))

	require.NoError(t, store.DeleteSplits(r.ID))
	require.NoError(t, store.DeleteSplits(r.ID)) // idempotent

	got, err = store.GetReceipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, SplitStatusUnsplit, got.SplitStatus)

	stored, err = store.GetSplits(r.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStorage_TransactionDebitCreditExclusive(t *testing.T) {
	store := newTestStorage(t)

	both := &BankingTransaction{
		ID:           uuid.NewString(),
		AccountID:    "acct",
		Date:         time.Now(),
		DebitAmount:  nullAmt("10.00"),
		CreditAmount: nullAmt("10.00"),
	}
	err := store.CreateTransaction(both)
	var invalid *recon.InvalidAmountError
	assert.True(t, errors.As(err, &invalid))

	neither := &BankingTransaction{ID: uuid.NewString(), AccountID: "acct", Date: time.Now()}
	err = store.CreateTransaction(neither)
	assert.True(t, errors.As(err, &invalid))
}

func TestStorage_SignedAmount(t *testing.T) {
	debit := &BankingTransaction{DebitAmount: nullAmt("58.24")}
	assert.True(t, debit.SignedAmount().Equal(amt("58.24")))

	credit := &BankingTransaction{CreditAmount: nullAmt("58.24")}
	assert.True(t, credit.SignedAmount().Equal(amt("-58.24")))
}

func TestStorage_FindDuplicateCandidates(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Fas Gas", "fas gas")
	other := testVendor(t, store, "Shell", "shell")
	base := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	target := testReceipt(t, store, v.ID, "58.24", base)
	inWindow := testReceipt(t, store, v.ID, "58.24", base.AddDate(0, 0, 3))
	outOfWindow := testReceipt(t, store, v.ID, "58.24", base.AddDate(0, 0, 10))
	otherVendor := testReceipt(t, store, other.ID, "58.24", base)

	candidates, err := store.FindDuplicateCandidates(v.ID, base.AddDate(0, 0, -7), base.AddDate(0, 0, 7), target.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, inWindow.ID, candidates[0].ID)

	_ = outOfWindow
	_ = otherVendor
}

func TestStorage_GetStats(t *testing.T) {
	store := newTestStorage(t)

	v := testVendor(t, store, "Husky", "husky")
	r := testReceipt(t, store, v.ID, "20.00", time.Now())
	tx := testTransaction(t, store, "20.00", time.Now(), "HUSKY")
	require.NoError(t, store.LinkReceipt(r.ID, tx.ID, nil))
	testReceipt(t, store, v.ID, "30.00", time.Now())

	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReceiptCount)
	assert.Equal(t, 1, stats.LinkedReceipts)
	assert.Equal(t, 1, stats.UnlinkedReceipts)
	assert.Equal(t, 2, stats.SplitStatusCount["unsplit"])
}
