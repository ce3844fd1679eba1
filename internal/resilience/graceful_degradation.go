package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pushkarkumarvats/DIG-7/internal/errors"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

func (l DegradationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// DegradationConfig holds configuration for graceful degradation
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval" mapstructure:"health_check_interval"`
	DegradedThreshold   float64       `json:"degraded_threshold" mapstructure:"degraded_threshold"`   // Error rate threshold (0.0-1.0)
	CriticalThreshold   float64       `json:"critical_threshold" mapstructure:"critical_threshold"`   // Error rate threshold (0.0-1.0)
	EmergencyThreshold  float64       `json:"emergency_threshold" mapstructure:"emergency_threshold"` // Error rate threshold (0.0-1.0)
	HealthCheckTimeout  time.Duration `json:"health_check_timeout" mapstructure:"health_check_timeout"`
	MaxDegradedDuration time.Duration `json:"max_degraded_duration" mapstructure:"max_degraded_duration"` // Max time in degraded state before emergency
	// RecoveryTimeWindow is the span the error rate is measured over. Counts
	// restart once it elapses; zero keeps them for the process lifetime.
	RecoveryTimeWindow time.Duration `json:"recovery_time_window" mapstructure:"recovery_time_window"`
}

func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		HealthCheckTimeout:  5 * time.Second,
		MaxDegradedDuration: 10 * time.Minute,
		RecoveryTimeWindow:  5 * time.Minute,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     error            `json:"-"`
	LastErrorTime time.Time        `json:"last_error_time"`
	DegradedSince *time.Time       `json:"degraded_since,omitempty"`
	WindowStart   time.Time        `json:"window_start"`
	StatusMessage string           `json:"status_message"`
}

// DegradationManager tracks request outcomes per upstream service. A
// degraded service keeps being called; callers use the level for reporting.
type DegradationManager struct {
	config       DegradationConfig
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
	mutex        sync.RWMutex
	now          func() time.Time
}

// HealthCheckFunc represents a function that checks service health
type HealthCheckFunc func(ctx context.Context) error

func NewDegradationManager(config DegradationConfig) *DegradationManager {
	return &DegradationManager{
		config:       config,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
		now:          time.Now,
	}
}

// RegisterService registers a service with its health check function
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.services[serviceName] = &ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		StatusMessage: "Service is healthy",
	}

	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	slog.Info("Registered service for degradation management", "service", serviceName)
}

// RecordRequest records a request and its success/failure
func (dm *DegradationManager) RecordRequest(serviceName string, success bool) {
	if success {
		dm.record(serviceName, nil)
		return
	}
	dm.record(serviceName, errors.NewInternalError("Service request failed", nil))
}

// RecordError records a failed request with its cause.
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	dm.record(serviceName, err)
}

func (dm *DegradationManager) record(serviceName string, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	now := dm.now()
	if window := dm.config.RecoveryTimeWindow; window > 0 &&
		(service.WindowStart.IsZero() || now.Sub(service.WindowStart) >= window) {
		service.TotalRequests = 0
		service.ErrorCount = 0
		service.WindowStart = now
	}

	service.TotalRequests++
	if err != nil {
		service.ErrorCount++
		service.LastError = err
		service.LastErrorTime = now
	}
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)

	dm.updateDegradationLevel(service)
}

func (dm *DegradationManager) updateDegradationLevel(service *ServiceHealth) {
	oldLevel := service.Level
	now := dm.now()

	var newLevel DegradationLevel
	var statusMessage string

	switch {
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		newLevel = LevelEmergency
		statusMessage = "Service is in emergency state - high error rate"
	case service.ErrorRate >= dm.config.CriticalThreshold:
		newLevel = LevelCritical
		statusMessage = "Service is in critical state - elevated error rate"
	case service.ErrorRate >= dm.config.DegradedThreshold:
		newLevel = LevelDegraded
		statusMessage = "Service is degraded - moderate error rate"
	default:
		newLevel = LevelNormal
		statusMessage = "Service is healthy"
	}

	if newLevel == LevelDegraded && service.DegradedSince != nil &&
		now.Sub(*service.DegradedSince) > dm.config.MaxDegradedDuration {
		newLevel = LevelEmergency
		statusMessage = "Service has been degraded too long - entering emergency state"
	}

	if newLevel == LevelDegraded && oldLevel != LevelDegraded {
		service.DegradedSince = &now
	} else if newLevel != LevelDegraded {
		service.DegradedSince = nil
	}

	service.Level = newLevel
	service.StatusMessage = statusMessage

	if oldLevel != newLevel {
		slog.Warn("Service degradation level changed",
			"service", service.ServiceName,
			"old_level", oldLevel.String(),
			"new_level", newLevel.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}

// GetServiceHealth returns a copy of the health status of a service
func (dm *DegradationManager) GetServiceHealth(serviceName string) (*ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return nil, false
	}
	snapshot := *service
	return &snapshot, true
}

func (dm *DegradationManager) GetAllServiceHealth() map[string]*ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make(map[string]*ServiceHealth, len(dm.services))
	for name, service := range dm.services {
		snapshot := *service
		result[name] = &snapshot
	}
	return result
}

// IsServiceAvailable reports false only for unknown services and services
// in emergency state.
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return false
	}
	return service.Level != LevelEmergency
}

// StartHealthChecks runs the registered health checks until ctx is done.
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.performHealthChecks(ctx)
		}
	}
}

func (dm *DegradationManager) performHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for serviceName, healthCheck := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.RecordError(name, errors.WrapError(err, "health check failed for service %s", name))
			} else {
				dm.RecordRequest(name, true)
			}
		}(serviceName, healthCheck)
	}
	wg.Wait()
}

// ResetService clears a service's counters and returns it to normal. It
// reports false when the service was never registered.
func (dm *DegradationManager) ResetService(serviceName string) bool {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return false
	}
	*service = ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		StatusMessage: "Service is healthy",
	}
	slog.Info("Service health reset", "service", serviceName)
	return true
}

// GracefulShutdown logs the final status of every service.
func (dm *DegradationManager) GracefulShutdown() {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	slog.Info("Degradation manager shutting down", "services", len(dm.services))
	for name, service := range dm.services {
		slog.Info("Final service status",
			"service", name,
			"level", service.Level.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}
