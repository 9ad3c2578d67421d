// Package service wires the reconciliation domain logic to storage.
//
// The service layer owns orchestration: vendor resolution, duplicate and
// bank-match advisories, link/unlink with anomaly capture, split lifecycle,
// and the float ledger. Persistence details stay behind storage.Repository,
// pure decisions stay in the domain packages.
package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/domain/allocator"
	"github.com/castlecab/backoffice/internal/domain/banking"
	"github.com/castlecab/backoffice/internal/domain/duplicates"
	"github.com/castlecab/backoffice/internal/domain/floats"
	"github.com/castlecab/backoffice/internal/domain/recon"
	"github.com/castlecab/backoffice/internal/domain/splitter"
	"github.com/castlecab/backoffice/internal/domain/tax"
	"github.com/castlecab/backoffice/internal/domain/vendor"
	"github.com/castlecab/backoffice/internal/infrastructure/config"
	"github.com/castlecab/backoffice/internal/infrastructure/storage"
)

// ReconService coordinates the reconciliation engine's operations.
type ReconService struct {
	cfg     *config.Config
	storage storage.Repository
	logger  *slog.Logger
}

// NewReconService creates a new reconciliation service.
func NewReconService(cfg *config.Config, store storage.Repository, logger *slog.Logger) *ReconService {
	return &ReconService{
		cfg:     cfg,
		storage: store,
		logger:  logger,
	}
}

// ResolveVendor maps a raw vendor spelling to a canonical vendor, creating
// one when nothing known is close enough. The returned bool reports whether a
// new vendor was created. Empty or whitespace-only names resolve to the
// reserved Unknown Vendor.
func (s *ReconService) ResolveVendor(raw string) (*storage.Vendor, bool, error) {
	normalized := vendor.Normalize(raw)
	if normalized == "" {
		v, err := s.storage.GetVendor(storage.UnknownVendorID)
		if err != nil {
			return nil, false, fmt.Errorf("loading unknown vendor: %w", err)
		}
		return v, false, nil
	}

	// Exact alias hit settles it without scoring.
	if v, err := s.storage.GetVendorByAlias(normalized); err != nil {
		return nil, false, err
	} else if v != nil {
		return v, false, nil
	}

	vendors, err := s.storage.ListVendors()
	if err != nil {
		return nil, false, err
	}

	// Score against every known spelling, keeping the vendor each belongs to.
	var names []string
	var owners []*storage.Vendor
	for _, v := range vendors {
		if v.ID == storage.UnknownVendorID {
			continue
		}
		names = append(names, v.NormalizedName)
		owners = append(owners, v)
		for _, alias := range v.Aliases {
			names = append(names, alias)
			owners = append(owners, v)
		}
	}

	idx, score := vendor.BestMatch(normalized, names)
	if idx >= 0 && score >= s.cfg.Matching.VendorSimilarityThreshold {
		matched := owners[idx]
		if err := s.storage.AddVendorAlias(matched.ID, raw, normalized); err != nil {
			return nil, false, err
		}
		matched.Aliases = append(matched.Aliases, normalized)
		s.logger.Info("vendor alias attached",
			"raw", raw,
			"vendor", matched.CanonicalName,
			"score", score)
		return matched, false, nil
	}

	created := &storage.Vendor{
		ID:             uuid.New().String(),
		CanonicalName:  raw,
		NormalizedName: normalized,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.storage.CreateVendor(created, normalized); err != nil {
		return nil, false, err
	}
	created.Aliases = []string{normalized}
	s.logger.Info("vendor created", "name", raw, "id", created.ID)
	return created, true, nil
}

// CreateReceiptInput holds parameters for recording a receipt.
type CreateReceiptInput struct {
	ReceiptDate      time.Time
	RawVendorName    string
	GrossAmount      decimal.Decimal
	TaxAmount        decimal.NullDecimal // computed from the tax code when unset
	TaxCode          string
	Category         string
	IsPersonal       bool
	IsDriverPersonal bool
}

// CreateReceiptResult is a recorded receipt plus its duplicate advisory.
type CreateReceiptResult struct {
	Receipt       *storage.Receipt   `json:"receipt"`
	VendorCreated bool               `json:"vendor_created"`
	Duplicates    []duplicates.Match `json:"duplicates,omitempty"`
}

// CreateReceipt records a receipt, resolving its vendor and surfacing
// potential duplicates. Duplicates never block the write; repeated charges
// are legitimate often enough that disposition belongs to the operator.
func (s *ReconService) CreateReceipt(in CreateReceiptInput) (*CreateReceiptResult, error) {
	if !in.GrossAmount.IsPositive() || in.GrossAmount.Exponent() < -2 {
		return nil, &recon.InvalidAmountError{Field: "gross_amount", Value: in.GrossAmount.String()}
	}
	if in.TaxAmount.Valid && in.TaxAmount.Decimal.Exponent() < -2 {
		return nil, &recon.InvalidAmountError{Field: "tax_amount", Value: in.TaxAmount.Decimal.String()}
	}
	code := tax.Code(in.TaxCode)
	if in.TaxCode != "" && !tax.Valid(code) {
		return nil, fmt.Errorf("unknown tax code %q", in.TaxCode)
	}

	v, vendorCreated, err := s.ResolveVendor(in.RawVendorName)
	if err != nil {
		return nil, err
	}

	// Vendor suggestions fill in what the operator left blank.
	if in.Category == "" {
		in.Category = v.SuggestedCategory
	}
	if in.TaxCode == "" && v.SuggestedTaxCode != "" {
		in.TaxCode = v.SuggestedTaxCode
		code = tax.Code(in.TaxCode)
	}

	taxAmount := decimal.Zero
	if in.TaxAmount.Valid {
		taxAmount = in.TaxAmount.Decimal
	} else if in.TaxCode != "" {
		taxAmount = tax.IncludedTax(code, in.GrossAmount)
	}

	r := &storage.Receipt{
		ID:               uuid.New().String(),
		ReceiptDate:      in.ReceiptDate,
		VendorID:         v.ID,
		RawVendorName:    in.RawVendorName,
		GrossAmount:      in.GrossAmount,
		TaxAmount:        taxAmount,
		TaxCode:          in.TaxCode,
		Category:         in.Category,
		IsPersonal:       in.IsPersonal,
		IsDriverPersonal: in.IsDriverPersonal,
		SplitStatus:      storage.SplitStatusUnsplit,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.storage.CreateReceipt(r); err != nil {
		return nil, err
	}

	matches, err := s.duplicatesFor(r, 0)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		s.logger.Warn("possible duplicate receipt",
			"receipt_id", r.ID,
			"vendor", v.CanonicalName,
			"amount", r.GrossAmount.StringFixed(2),
			"candidates", len(matches))
	}

	return &CreateReceiptResult{Receipt: r, VendorCreated: vendorCreated, Duplicates: matches}, nil
}

// FindDuplicates ranks same-vendor, same-amount receipts near the given
// receipt's date. Advisory only. windowDays of 0 uses the configured window.
func (s *ReconService) FindDuplicates(receiptID string, windowDays int) ([]duplicates.Match, error) {
	r, err := s.storage.GetReceipt(receiptID)
	if err != nil {
		return nil, err
	}
	return s.duplicatesFor(r, windowDays)
}

func (s *ReconService) duplicatesFor(r *storage.Receipt, windowDays int) ([]duplicates.Match, error) {
	if windowDays <= 0 {
		windowDays = s.cfg.Matching.DuplicateWindowDays
	}
	from, to := duplicates.Window(r.ReceiptDate, windowDays)

	rows, err := s.storage.FindDuplicateCandidates(r.VendorID, from, to, r.ID)
	if err != nil {
		return nil, err
	}

	candidates := make([]duplicates.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, duplicates.Candidate{
			ReceiptID:           row.ID,
			ReceiptDate:         row.ReceiptDate,
			GrossAmount:         row.GrossAmount,
			RawVendorName:       row.RawVendorName,
			Linked:              row.BankingTransactionID != "",
			LinkedTransactionID: row.BankingTransactionID,
		})
	}
	return duplicates.Rank(r.GrossAmount, r.ReceiptDate, windowDays, candidates), nil
}

// FindBankMatches ranks bank transactions near the receipt's date as link
// candidates, best first. windowDays of 0 uses the configured window.
func (s *ReconService) FindBankMatches(receiptID string, windowDays int) ([]banking.RankedMatch, error) {
	r, err := s.storage.GetReceipt(receiptID)
	if err != nil {
		return nil, err
	}

	if windowDays <= 0 {
		windowDays = s.cfg.Matching.BankWindowDays
	}
	from := r.ReceiptDate.AddDate(0, 0, -windowDays)
	to := r.ReceiptDate.AddDate(0, 0, windowDays)

	rows, err := s.storage.FindBankCandidates(from, to)
	if err != nil {
		return nil, err
	}

	candidates := make([]banking.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, banking.Candidate{
			TransactionID:    row.ID,
			AccountID:        row.AccountID,
			Date:             row.Date,
			Amount:           row.SignedAmount(),
			Description:      row.Description,
			MatchedReceiptID: row.MatchedReceiptID,
		})
	}

	tokens := vendor.Tokens(r.RawVendorName)
	return banking.RankMatches(r.GrossAmount, r.ReceiptDate, windowDays, tokens, candidates), nil
}

// FindReceiptMatches ranks receipts as link candidates for a bank
// transaction, best first. windowDays of 0 uses the configured window.
func (s *ReconService) FindReceiptMatches(transactionID string, windowDays int) ([]banking.RankedReceipt, error) {
	tx, err := s.storage.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}

	if windowDays <= 0 {
		windowDays = s.cfg.Matching.BankWindowDays
	}
	from := tx.Date.AddDate(0, 0, -windowDays)
	to := tx.Date.AddDate(0, 0, windowDays)

	rows, err := s.storage.FindReceiptCandidates(from, to)
	if err != nil {
		return nil, err
	}

	candidates := make([]banking.ReceiptCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, banking.ReceiptCandidate{
			ReceiptID:           row.ID,
			ReceiptDate:         row.ReceiptDate,
			GrossAmount:         row.GrossAmount,
			VendorTokens:        vendor.Tokens(row.RawVendorName),
			LinkedTransactionID: row.BankingTransactionID,
		})
	}
	return banking.RankReceiptMatches(tx.SignedAmount(), tx.Date, windowDays, tx.Description, candidates), nil
}

// Link establishes the exclusive receipt <-> transaction relation. An amount
// mismatch does not block the link but is recorded as an audit anomaly in the
// same transaction, so settlement-fee discrepancies stay reviewable.
func (s *ReconService) Link(receiptID, transactionID, actor string) error {
	r, err := s.storage.GetReceipt(receiptID)
	if err != nil {
		return err
	}
	tx, err := s.storage.GetTransaction(transactionID)
	if err != nil {
		return err
	}

	var anomaly *storage.AuditEntry
	if !tx.SignedAmount().Equal(r.GrossAmount) {
		anomaly = &storage.AuditEntry{
			Actor:      actor,
			Action:     storage.AuditActionLinkAmountMismatch,
			EntityKind: "receipt",
			EntityID:   receiptID,
			Detail: fmt.Sprintf("linked to transaction %s: receipt %s vs transaction %s",
				transactionID, r.GrossAmount.StringFixed(2), tx.SignedAmount().StringFixed(2)),
		}
	}

	if err := s.storage.LinkReceipt(receiptID, transactionID, anomaly); err != nil {
		return err
	}

	s.logger.Info("receipt linked",
		"receipt_id", receiptID,
		"transaction_id", transactionID,
		"amount_mismatch", anomaly != nil)
	return nil
}

// Unlink clears a receipt's bank link. Idempotent.
func (s *ReconService) Unlink(receiptID string) error {
	if err := s.storage.UnlinkReceipt(receiptID); err != nil {
		return err
	}
	s.logger.Info("receipt unlinked", "receipt_id", receiptID)
	return nil
}

// ProposeSplit validates and persists a split proposal atomically. The lines
// must sum to the receipt's gross amount exactly or nothing is written.
func (s *ReconService) ProposeSplit(receiptID string, lines []splitter.Line) ([]*storage.ReceiptSplit, error) {
	r, err := s.storage.GetReceipt(receiptID)
	if err != nil {
		return nil, err
	}
	if err := splitter.Validate(r.GrossAmount, lines); err != nil {
		return nil, err
	}

	splits := make([]*storage.ReceiptSplit, 0, len(lines))
	for _, line := range lines {
		splits = append(splits, &storage.ReceiptSplit{
			ID:            uuid.New().String(),
			ReceiptID:     receiptID,
			GLCode:        line.GLCode,
			Amount:        line.Amount,
			PaymentMethod: line.PaymentMethod,
			Notes:         line.Notes,
		})
	}
	if err := s.storage.ReplaceSplits(receiptID, splits); err != nil {
		return nil, err
	}

	s.logger.Info("receipt split", "receipt_id", receiptID, "lines", len(splits))
	return splits, nil
}

// SuggestSplit turns relative weights into exact split line amounts that sum
// to the receipt's gross, ready to be proposed as-is.
func (s *ReconService) SuggestSplit(receiptID string, lines []allocator.Line) ([]splitter.Line, error) {
	r, err := s.storage.GetReceipt(receiptID)
	if err != nil {
		return nil, err
	}
	allocations, err := allocator.Allocate(r.GrossAmount, lines)
	if err != nil {
		return nil, err
	}

	out := make([]splitter.Line, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, splitter.Line{GLCode: a.GLCode, Amount: a.Amount})
	}
	return out, nil
}

// RemoveSplit deletes a receipt's splits and reverts it to unsplit.
func (s *ReconService) RemoveSplit(receiptID string) error {
	return s.storage.DeleteSplits(receiptID)
}

// MergeVendors folds fromID into toID, moving aliases and receipts, with an
// audit entry written in the same transaction.
func (s *ReconService) MergeVendors(fromID, toID, actor string) error {
	if fromID == toID {
		return fmt.Errorf("cannot merge a vendor into itself")
	}
	from, err := s.storage.GetVendor(fromID)
	if err != nil {
		return err
	}
	to, err := s.storage.GetVendor(toID)
	if err != nil {
		return err
	}

	entry := &storage.AuditEntry{
		Actor:      actor,
		Action:     storage.AuditActionVendorMerge,
		EntityKind: "vendor",
		EntityID:   toID,
		Detail:     fmt.Sprintf("merged %q (%s) into %q", from.CanonicalName, fromID, to.CanonicalName),
	}
	if err := s.storage.MergeVendors(fromID, toID, entry); err != nil {
		return err
	}

	s.logger.Info("vendors merged", "from", from.CanonicalName, "to", to.CanonicalName)
	return nil
}

// CreateFloatInput holds parameters for issuing a cash float.
type CreateFloatInput struct {
	DriverID     string
	IssueDate    time.Time
	IssuedAmount decimal.Decimal
	Purpose      string
}

// CreateFloat issues a new float in the outstanding state.
func (s *ReconService) CreateFloat(in CreateFloatInput) (*storage.FloatRecord, error) {
	if !in.IssuedAmount.IsPositive() || in.IssuedAmount.Exponent() < -2 {
		return nil, &recon.InvalidAmountError{Field: "issued_amount", Value: in.IssuedAmount.String()}
	}
	f := &storage.FloatRecord{
		ID:           uuid.New().String(),
		DriverID:     in.DriverID,
		IssueDate:    in.IssueDate,
		IssuedAmount: in.IssuedAmount,
		Purpose:      in.Purpose,
		Status:       floats.StatusOutstanding,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.storage.CreateFloat(f); err != nil {
		return nil, err
	}
	s.logger.Info("float issued",
		"float_id", f.ID,
		"driver", f.DriverID,
		"amount", f.IssuedAmount.StringFixed(2))
	return f, nil
}

// AttributeReceipt counts amount from a receipt against a float. The amount
// may be partial but never exceeds the receipt's gross. Re-attributing the
// same receipt replaces the previous amount, which makes retries safe.
func (s *ReconService) AttributeReceipt(floatID, receiptID string, amount decimal.Decimal) (*storage.FloatRecord, error) {
	if !amount.IsPositive() || amount.Exponent() < -2 {
		return nil, &recon.InvalidAmountError{Field: "amount", Value: amount.String()}
	}
	r, err := s.storage.GetReceipt(receiptID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(r.GrossAmount) {
		return nil, &recon.InvalidAmountError{Field: "amount", Value: amount.String()}
	}
	return s.storage.AttributeReceipt(floatID, receiptID, amount)
}

// DetachReceipt removes a receipt's attribution from a float. Idempotent.
func (s *ReconService) DetachReceipt(floatID, receiptID string) (*storage.FloatRecord, error) {
	return s.storage.DetachReceipt(floatID, receiptID)
}

// MarkFloatReturned records the cash coming back from the driver.
func (s *ReconService) MarkFloatReturned(floatID string, returnDate time.Time) (*storage.FloatRecord, error) {
	return s.storage.MarkFloatReturned(floatID, returnDate)
}

// ReconcileFloat settles a returned float. Variance inside the configured
// tolerance reconciles clean; anything larger lands in shortage for review.
func (s *ReconService) ReconcileFloat(floatID string) (*storage.FloatRecord, error) {
	tolerance := decimal.New(int64(s.cfg.Matching.FloatToleranceCents), -2)
	f, err := s.storage.ReconcileFloat(floatID, tolerance)
	if err != nil {
		return nil, err
	}
	if f.Status == floats.StatusShortage {
		s.logger.Warn("float shortage",
			"float_id", f.ID,
			"driver", f.DriverID,
			"variance", f.Variance.StringFixed(2))
	}
	return f, nil
}

// ReopenFloat moves a shortage back to outstanding so late receipts can be
// attributed, recording who reopened it and why.
func (s *ReconService) ReopenFloat(floatID, actor, reason string) (*storage.FloatRecord, error) {
	entry := &storage.AuditEntry{
		Actor:      actor,
		Action:     storage.AuditActionFloatReopen,
		EntityKind: "float",
		EntityID:   floatID,
		Detail:     reason,
	}
	f, err := s.storage.ReopenFloat(floatID, entry)
	if err != nil {
		return nil, err
	}
	s.logger.Info("float reopened", "float_id", floatID, "actor", actor)
	return f, nil
}

// Stats returns the aggregate dashboard counters.
func (s *ReconService) Stats() (*storage.Stats, error) {
	return s.storage.GetStats()
}
