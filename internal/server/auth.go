package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleIssueToken signs a bearer token for a demo account. Outside demo
// mode tokens come from an external identity provider sharing the secret.
func (s *Server) handleIssueToken(c *gin.Context) {
	if !s.cfg.DemoMode {
		apperrors.Abort(c, apperrors.NewForbiddenError("Token issuance is disabled"))
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	user := security.ValidateDemoUser(strings.TrimSpace(req.Email), req.Password)
	if user == nil {
		s.logger.SecurityLogger("login_failed", c.ClientIP(), c.GetHeader("User-Agent"),
			map[string]interface{}{"email": req.Email})
		apperrors.Abort(c, apperrors.NewUnauthorizedError("Invalid credentials"))
		return
	}

	token, expires, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("issue token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expires,
		"user":      user,
	})
}

func (s *Server) handleDemoUsers(c *gin.Context) {
	if !s.cfg.DemoMode {
		apperrors.Abort(c, apperrors.NewForbiddenError("Demo mode is disabled"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"mode":    "demo",
		"users":   security.DemoUsers(),
	})
}
