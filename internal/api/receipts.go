package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/api/dto"
	"github.com/castlecab/backoffice/internal/application/service"
	"github.com/castlecab/backoffice/internal/domain/allocator"
	"github.com/castlecab/backoffice/internal/domain/splitter"
	"github.com/castlecab/backoffice/internal/infrastructure/storage"
)

func (s *Server) createReceipt(c *gin.Context) {
	var req dto.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	date, err := parseDate(req.ReceiptDate)
	if err != nil {
		s.badRequest(c, "receipt_date must be YYYY-MM-DD")
		return
	}
	gross, err := parseAmount(req.GrossAmount)
	if err != nil {
		s.badRequest(c, "gross_amount is not a valid amount")
		return
	}

	in := service.CreateReceiptInput{
		ReceiptDate:      date,
		RawVendorName:    req.VendorName,
		GrossAmount:      gross,
		TaxCode:          req.TaxCode,
		Category:         req.Category,
		IsPersonal:       req.IsPersonal,
		IsDriverPersonal: req.IsDriverPersonal,
	}
	if req.TaxAmount != "" {
		taxAmount, err := parseAmount(req.TaxAmount)
		if err != nil {
			s.badRequest(c, "tax_amount is not a valid amount")
			return
		}
		in.TaxAmount = decimal.NullDecimal{Decimal: taxAmount, Valid: true}
	}

	result, err := s.svc.CreateReceipt(in)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"receipt":        result.Receipt,
		"vendor_created": result.VendorCreated,
		"duplicates":     duplicateResponses(result.Duplicates),
	})
}

func (s *Server) listReceipts(c *gin.Context) {
	filters := storage.ReceiptFilters{
		VendorID:    c.Query("vendor_id"),
		SplitStatus: c.Query("split_status"),
		LinkedOnly:  c.Query("linked") == "true",
		Unlinked:    c.Query("linked") == "false",
		DaysBack:    intQuery(c, "days_back", 0),
		Limit:       intQuery(c, "limit", 100),
		Offset:      intQuery(c, "offset", 0),
	}

	receipts, err := s.storage.ListReceipts(filters)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipts)
}

func (s *Server) getReceipt(c *gin.Context) {
	r, err := s.storage.GetReceipt(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) getDuplicates(c *gin.Context) {
	matches, err := s.svc.FindDuplicates(c.Param("id"), intQuery(c, "window_days", 0))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, duplicateResponses(matches))
}

func (s *Server) getBankMatches(c *gin.Context) {
	matches, err := s.svc.FindBankMatches(c.Param("id"), intQuery(c, "window_days", 0))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]dto.BankMatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, dto.BankMatchResponse{
			TransactionID:    m.TransactionID,
			AccountID:        m.AccountID,
			Date:             m.Date.Format(dateLayout),
			Description:      m.Description,
			Amount:           m.Amount.StringFixed(2),
			TokenOverlap:     m.TokenOverlap,
			DaysApart:        m.DaysApart,
			AlreadyMatched:   m.AlreadyMatched,
			MatchedReceiptID: m.MatchedReceiptID,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) linkReceipt(c *gin.Context) {
	var req dto.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	if err := s.svc.Link(c.Param("id"), req.TransactionID, actorOrDefault(req.Actor)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": true})
}

func (s *Server) unlinkReceipt(c *gin.Context) {
	if err := s.svc.Unlink(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": false})
}

func (s *Server) proposeSplit(c *gin.Context) {
	var req dto.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	lines := make([]splitter.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		amount, err := parseAmount(l.Amount)
		if err != nil {
			s.badRequest(c, "split line amount is not a valid amount")
			return
		}
		lines = append(lines, splitter.Line{
			GLCode:        l.GLCode,
			Amount:        amount,
			PaymentMethod: l.PaymentMethod,
			Notes:         l.Notes,
		})
	}

	splits, err := s.svc.ProposeSplit(c.Param("id"), lines)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, splits)
}

func (s *Server) suggestSplit(c *gin.Context) {
	var req dto.SuggestSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	lines := make([]allocator.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		weight, err := parseAmount(l.Weight)
		if err != nil {
			s.badRequest(c, "split line weight is not a valid number")
			return
		}
		lines = append(lines, allocator.Line{GLCode: l.GLCode, Weight: weight})
	}

	suggested, err := s.svc.SuggestSplit(c.Param("id"), lines)
	if err != nil {
		if errors.Is(err, allocator.ErrNoLines) || errors.Is(err, allocator.ErrBadWeight) {
			s.badRequest(c, err.Error())
			return
		}
		s.writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(suggested))
	for _, l := range suggested {
		out = append(out, gin.H{"gl_code": l.GLCode, "amount": l.Amount.StringFixed(2)})
	}
	c.JSON(http.StatusOK, gin.H{"lines": out})
}

func (s *Server) getSplits(c *gin.Context) {
	splits, err := s.storage.GetSplits(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, splits)
}

func (s *Server) removeSplit(c *gin.Context) {
	if err := s.svc.RemoveSplit(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
