package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pushkarkumarvats/DIG-7/internal/database"
	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
)

type auditQuery struct {
	UserID   string `form:"userId"`
	VendorID string `form:"vendorId"`
	Action   string `form:"action"`
	Limit    int    `form:"limit"`
}

func (s *Server) handleListAuditLogs(c *gin.Context) {
	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBind(c, err)
		return
	}

	logs, err := s.repo.ListAuditLogs(c.Request.Context(), database.AuditFilter{
		UserID:   q.UserID,
		VendorID: q.VendorID,
		Action:   q.Action,
		Limit:    q.Limit,
	})
	if err != nil {
		abortStore(c, "AuditLog", "", "list audit logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

type auditRequest struct {
	VendorID string          `json:"vendorId"`
	Action   string          `json:"action"`
	Entity   string          `json:"entity"`
	EntityID string          `json:"entityId"`
	Details  json.RawMessage `json:"details"`
}

// handleCreateAuditLog records a client-side action. The user is always the
// authenticated subject.
func (s *Server) handleCreateAuditLog(c *gin.Context) {
	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Action) == "" {
		fields["action"] = "action is required"
	}
	if strings.TrimSpace(req.Entity) == "" {
		fields["entity"] = "entity is required"
	}
	if len(fields) > 0 {
		apperrors.Abort(c, apperrors.NewValidationErrorWithMap(fields))
		return
	}

	entry := &database.AuditLog{
		UserID:   security.Subject(c),
		VendorID: req.VendorID,
		Action:   req.Action,
		Entity:   req.Entity,
		EntityID: req.EntityID,
		Details:  req.Details,
	}
	if err := s.repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
		abortStore(c, "AuditLog", "", "create audit log", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
