package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/castlecab/backoffice/internal/api/dto"
)

func (s *Server) resolveVendor(c *gin.Context) {
	var req dto.ResolveVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	v, created, err := s.svc.ResolveVendor(req.RawName)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResolveVendorResponse{
		VendorID:      v.ID,
		CanonicalName: v.CanonicalName,
		Aliases:       v.Aliases,
		Created:       created,
	})
}

func (s *Server) listVendors(c *gin.Context) {
	vendors, err := s.storage.ListVendors()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendors)
}

func (s *Server) getVendor(c *gin.Context) {
	v, err := s.storage.GetVendor(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) mergeVendors(c *gin.Context) {
	var req dto.MergeVendorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	if err := s.svc.MergeVendors(req.FromID, req.ToID, actorOrDefault(req.Actor)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merged_into": req.ToID})
}
