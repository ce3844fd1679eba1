package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/resilience"
)

// handleHealth reports ok unless the vendor store is unreachable. A
// struggling oracle or Redis only degrades the report, since both have
// local fallbacks.
func (s *Server) handleHealth(c *gin.Context) {
	services := s.degradation.GetAllServiceHealth()

	status := "ok"
	code := http.StatusOK
	for _, svc := range services {
		if svc.Level == resilience.LevelNormal {
			continue
		}
		status = "degraded"
	}
	if !s.degradation.IsServiceAvailable(DatabaseService) {
		code = http.StatusServiceUnavailable
	}

	dbStatus := "ok"
	if err := s.repo.Ping(c.Request.Context()); err != nil {
		dbStatus = "unreachable"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
		"database":  dbStatus,
		"oracle":    gin.H{"breaker": s.gateway.Breaker().State().String()},
		"redis":     s.redis.IsEnabled(),
		"services":  services,
		"metrics":   s.metrics.GetStats(),
	})
}

func (s *Server) handleServiceHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services":         s.degradation.GetAllServiceHealth(),
		"circuit_breakers": s.breakers.GetStats(),
		"rate_limiter":     s.limiter.GetStats(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

// handleResetService clears a service's error counters after an operator
// has dealt with the cause. Circuit breakers are left to recover on their own.
func (s *Server) handleResetService(c *gin.Context) {
	name := c.Param("name")
	if !s.degradation.ResetService(name) {
		apperrors.Abort(c, apperrors.NewNotFoundError("Service", name))
		return
	}
	s.audit(c, "RESET", "Service", name, "", nil)

	health, _ := s.degradation.GetServiceHealth(name)
	c.JSON(http.StatusOK, gin.H{"service": health})
}
