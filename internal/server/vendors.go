package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pushkarkumarvats/DIG-7/internal/database"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
)

type listVendorsQuery struct {
	Query    string `form:"query"`
	Status   string `form:"status"`
	Industry string `form:"industry"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

func (s *Server) handleListVendors(c *gin.Context) {
	var q listVendorsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBind(c, err)
		return
	}

	page, err := s.repo.ListVendors(c.Request.Context(), database.VendorFilter{
		Query:    strings.TrimSpace(q.Query),
		Status:   q.Status,
		Industry: q.Industry,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		abortStore(c, "Vendor", "", "list vendors", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetVendor(c *gin.Context) {
	id := c.Param("id")
	vendor, err := s.repo.GetVendor(c.Request.Context(), id)
	if err != nil {
		abortStore(c, "Vendor", id, "get vendor", err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}

// sanitizeVendorInput strips markup from the free-text fields.
func sanitizeVendorInput(in *database.VendorInput) {
	for _, field := range []*string{in.Name, in.Description, in.Address, in.CompanySize, in.Industry} {
		if field != nil {
			*field = security.SanitizeInput(*field)
		}
	}
}

func (s *Server) handleCreateVendor(c *gin.Context) {
	var in database.VendorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortBind(c, err)
		return
	}
	sanitizeVendorInput(&in)

	vendor, err := s.repo.CreateVendor(c.Request.Context(), in)
	if err != nil {
		abortStore(c, "Vendor", "", "create vendor", err)
		return
	}

	s.catalogueChanged()
	s.audit(c, "CREATE", "Vendor", vendor.ID, vendor.ID, gin.H{"name": vendor.Name})
	c.JSON(http.StatusCreated, vendor)
}

func (s *Server) handleUpdateVendor(c *gin.Context) {
	id := c.Param("id")

	var in database.VendorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortBind(c, err)
		return
	}
	sanitizeVendorInput(&in)

	vendor, err := s.repo.UpdateVendor(c.Request.Context(), id, in)
	if err != nil {
		abortStore(c, "Vendor", id, "update vendor", err)
		return
	}

	s.catalogueChanged()
	s.audit(c, "UPDATE", "Vendor", vendor.ID, vendor.ID, in)
	c.JSON(http.StatusOK, vendor)
}

func (s *Server) handleDeleteVendor(c *gin.Context) {
	id := c.Param("id")
	if err := s.repo.DeleteVendor(c.Request.Context(), id); err != nil {
		abortStore(c, "Vendor", id, "delete vendor", err)
		return
	}

	s.catalogueChanged()
	// The vendor row is gone, so the entry references it by entity id only.
	s.audit(c, "DELETE", "Vendor", id, "", nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
