package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/api/dto"
	"github.com/castlecab/backoffice/internal/infrastructure/storage"
)

func (s *Server) createTransaction(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		s.badRequest(c, "transaction_date must be YYYY-MM-DD")
		return
	}

	tx := &storage.BankingTransaction{
		ID:          uuid.New().String(),
		AccountID:   req.AccountID,
		Date:        date,
		Description: req.Description,
	}
	if req.DebitAmount != "" {
		amount, err := parseAmount(req.DebitAmount)
		if err != nil {
			s.badRequest(c, "debit_amount is not a valid amount")
			return
		}
		tx.DebitAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
	}
	if req.CreditAmount != "" {
		amount, err := parseAmount(req.CreditAmount)
		if err != nil {
			s.badRequest(c, "credit_amount is not a valid amount")
			return
		}
		tx.CreditAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
	}

	if err := s.storage.CreateTransaction(tx); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) listTransactions(c *gin.Context) {
	filters := storage.TransactionFilters{
		AccountID: c.Query("account_id"),
		Unmatched: c.Query("unmatched") == "true",
		DaysBack:  intQuery(c, "days_back", 0),
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
	}

	txs, err := s.storage.ListTransactions(filters)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (s *Server) getTransaction(c *gin.Context) {
	tx, err := s.storage.GetTransaction(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) getReceiptMatches(c *gin.Context) {
	matches, err := s.svc.FindReceiptMatches(c.Param("id"), intQuery(c, "window_days", 0))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]dto.ReceiptMatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, dto.ReceiptMatchResponse{
			ReceiptID:           m.ReceiptID,
			ReceiptDate:         m.ReceiptDate.Format(dateLayout),
			GrossAmount:         m.GrossAmount.StringFixed(2),
			TokenOverlap:        m.TokenOverlap,
			DaysApart:           m.DaysApart,
			AlreadyLinked:       m.AlreadyLinked,
			LinkedTransactionID: m.LinkedTransactionID,
		})
	}
	c.JSON(http.StatusOK, out)
}
