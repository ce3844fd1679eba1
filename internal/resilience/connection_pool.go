package resilience

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// StatusError reports a response the pool treated as an upstream failure.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// ConnectionPool shares one keep-alive transport across requests to a single
// upstream and routes every request through a circuit breaker.
type ConnectionPool struct {
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration

	circuitBreaker *CircuitBreaker
	transport      *http.Transport
	client         *http.Client
}

// NewConnectionPool creates a new connection pool with circuit breaker.
// Request deadlines come from the caller's context only.
func NewConnectionPool(maxIdle, maxActive int, idleTimeout time.Duration, cb *CircuitBreaker) *ConnectionPool {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   max(maxIdle/2, 1),
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		maxIdle:        maxIdle,
		maxActive:      maxActive,
		idleTimeout:    idleTimeout,
		circuitBreaker: cb,
		transport:      transport,
		client:         &http.Client{Transport: transport},
	}
}

func (cp *ConnectionPool) CircuitBreaker() *CircuitBreaker { return cp.circuitBreaker }

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"max_idle":              cp.maxIdle,
		"max_active":            cp.maxActive,
		"idle_timeout_ms":       cp.idleTimeout.Milliseconds(),
		"circuit_breaker_state": cp.circuitBreaker.State().String(),
	}
}

// DoRequest executes an HTTP request with circuit breaker protection. A 5xx
// response counts as a breaker failure and is returned as a *StatusError
// with the body already closed; any other response is handed back to the
// caller, who must close it. ctx should carry its per-call deadline with
// ErrCallTimeout as the cause; a failure after the caller's own context
// ended is reported as ErrCallerDone and not held against the dependency.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	if callerDone(ctx) {
		return nil, fmt.Errorf("%w: %w", ErrCallerDone, context.Cause(ctx))
	}

	var resp *http.Response

	err := cp.circuitBreaker.Call(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		r, err := cp.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			if callerDone(ctx) {
				return fmt.Errorf("%w: %w", ErrCallerDone, err)
			}
			slog.Warn("Request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		slog.Debug("Request completed", "url", url, "status", r.StatusCode, "duration_ms", duration.Milliseconds())

		if r.StatusCode >= http.StatusInternalServerError {
			_, _ = io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return &StatusError{URL: url, StatusCode: r.StatusCode}
		}

		resp = r
		return nil
	})

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Close releases idle keep-alive connections.
func (cp *ConnectionPool) Close() error {
	cp.transport.CloseIdleConnections()
	slog.Info("Connection pool closed")
	return nil
}
