package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/castlecab/backoffice/internal/api/dto"
	"github.com/castlecab/backoffice/internal/application/service"
)

func (s *Server) createFloat(c *gin.Context) {
	var req dto.CreateFloatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	date, err := parseDate(req.IssueDate)
	if err != nil {
		s.badRequest(c, "issue_date must be YYYY-MM-DD")
		return
	}
	amount, err := parseAmount(req.IssuedAmount)
	if err != nil {
		s.badRequest(c, "issued_amount is not a valid amount")
		return
	}

	f, err := s.svc.CreateFloat(service.CreateFloatInput{
		DriverID:     req.DriverID,
		IssueDate:    date,
		IssuedAmount: amount,
		Purpose:      req.Purpose,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (s *Server) listFloats(c *gin.Context) {
	records, err := s.storage.ListFloats(c.Query("status"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) getFloat(c *gin.Context) {
	f, err := s.storage.GetFloat(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	attributions, err := s.storage.GetAttributions(f.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"float": f, "attributions": attributions})
}

func (s *Server) attributeReceipt(c *gin.Context) {
	var req dto.AttributeReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.badRequest(c, "amount is not a valid amount")
		return
	}

	f, err := s.svc.AttributeReceipt(c.Param("id"), req.ReceiptID, amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) detachReceipt(c *gin.Context) {
	f, err := s.svc.DetachReceipt(c.Param("id"), c.Param("receiptID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) returnFloat(c *gin.Context) {
	var req dto.ReturnFloatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	date, err := parseDate(req.ReturnDate)
	if err != nil {
		s.badRequest(c, "return_date must be YYYY-MM-DD")
		return
	}

	f, err := s.svc.MarkFloatReturned(c.Param("id"), date)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) reconcileFloat(c *gin.Context) {
	f, err := s.svc.ReconcileFloat(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) reopenFloat(c *gin.Context) {
	var req dto.ReopenFloatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	f, err := s.svc.ReopenFloat(c.Param("id"), actorOrDefault(req.Actor), req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}
