package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCallTimeout is the cancellation cause callers attach to the per-call
// deadline of a guarded request, via context.WithTimeoutCause. Only that
// deadline counts against the dependency. Cancellation or expiry of the
// caller's own context does not.
var ErrCallTimeout = errors.New("call timeout exceeded")

// ErrCallerDone marks a request abandoned because the caller's context ended.
var ErrCallerDone = errors.New("caller context done")

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold uint32        `json:"failure_threshold" mapstructure:"failure_threshold"` // Consecutive failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout" mapstructure:"recovery_timeout"`   // Open duration before a half-open trial call
	HalfOpenRequests uint32        `json:"half_open_requests" mapstructure:"half_open_requests"`
	Interval         time.Duration `json:"interval" mapstructure:"interval"` // Count reset period while closed

	// OnStateChange is invoked after every transition, in addition to logging.
	OnStateChange func(name string, from, to gobreaker.State) `json:"-" mapstructure:"-"`
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenRequests: 1,
		Interval:         time.Minute,
	}
}

// CircuitBreaker guards calls to one external dependency.
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = defaults.RecoveryTimeout
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = defaults.HalfOpenRequests
	}

	threshold := config.FailureThreshold
	hook := config.OnStateChange

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: config.HalfOpenRequests,
		Interval:    config.Interval,
		Timeout:     config.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if hook != nil {
				hook(name, from, to)
			}
		},
	})

	return &CircuitBreaker{name: name, cb: cb}
}

// isSuccessful keeps the caller's own cancellation from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, ErrCallerDone) || errors.Is(err, context.Canceled)
}

// callerDone reports whether ctx ended for a reason other than the per-call
// deadline.
func callerDone(ctx context.Context) bool {
	return ctx.Err() != nil && !errors.Is(context.Cause(ctx), ErrCallTimeout)
}

// Call executes fn unless the breaker is open. A rejected call returns an
// error for which IsOpen reports true and fn is not run.
func (cb *CircuitBreaker) Call(fn func() error) error {
	_, err := cb.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (cb *CircuitBreaker) Name() string { return cb.name }

func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.cb.State()
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	return int(cb.cb.Counts().ConsecutiveFailures)
}

// IsOpen reports whether err is a rejection by an open or saturated breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// CircuitBreakerRegistry hands out one breaker per dependency name and
// reports all of them on /health/services.
type CircuitBreakerRegistry struct {
	breakers map[string]*CircuitBreaker
	mutex    sync.RWMutex
}

func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (r *CircuitBreakerRegistry) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if breaker, exists := r.breakers[name]; exists {
		return breaker
	}

	breaker := NewCircuitBreaker(name, config)
	r.breakers[name] = breaker
	return breaker
}

// GetStats returns statistics for all circuit breakers
func (r *CircuitBreakerRegistry) GetStats() map[string]interface{} {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]interface{}, len(r.breakers))
	for name, breaker := range r.breakers {
		stats[name] = map[string]interface{}{
			"state":    breaker.State().String(),
			"failures": breaker.Failures(),
		}
	}
	return stats
}
