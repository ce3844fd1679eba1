package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/pushkarkumarvats/DIG-7/internal/database"
	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
)

// abortStore maps a repository error onto the response taxonomy: unknown
// ids are 404, rejected input is 400 and anything else is an unavailable
// store.
func abortStore(c *gin.Context, resource, id, operation string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		apperrors.Abort(c, apperrors.NewNotFoundError(resource, id))
	case errors.Is(err, database.ErrInvalidVendor):
		apperrors.Abort(c, apperrors.NewValidationError(err.Error()))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		apperrors.Abort(c, err)
	default:
		apperrors.Abort(c, apperrors.NewStorageError(operation, err))
	}
}

func abortBind(c *gin.Context, err error) {
	apperrors.Abort(c, apperrors.NewValidationError("Invalid request body", err.Error()))
}

// audit records an action and only logs when the write fails; the primary
// operation has already succeeded.
func (s *Server) audit(c *gin.Context, action, entity, entityID, vendorID string, details interface{}) {
	entry := &database.AuditLog{
		UserID:   security.Subject(c),
		VendorID: vendorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = raw
		}
	}
	if err := s.repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
		slog.Warn("Failed to write audit log", "action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}
