// Package prediction consults the external scoring oracle and falls back to
// the local calculator whenever the oracle cannot answer in time.
package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/monitoring"
	"github.com/pushkarkumarvats/DIG-7/internal/resilience"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

type Gateway struct {
	cfg         Config
	calc        *scoring.Calculator
	pool        *resilience.ConnectionPool
	logger      *monitoring.Logger
	metrics     *monitoring.Metrics
	degradation *resilience.DegradationManager
	breakers    *resilience.CircuitBreakerRegistry
}

type Option func(*Gateway)

func WithLogger(l *monitoring.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithDegradation registers the oracle with dm and reports every remote
// attempt to it.
func WithDegradation(dm *resilience.DegradationManager) Option {
	return func(g *Gateway) { g.degradation = dm }
}

// WithBreakers takes the oracle breaker from reg so it is reported next to
// any other guarded dependency.
func WithBreakers(reg *resilience.CircuitBreakerRegistry) Option {
	return func(g *Gateway) { g.breakers = reg }
}

func NewGateway(cfg Config, calc *scoring.Calculator, opts ...Option) *Gateway {
	defaults := DefaultConfig()
	if cfg.PredictTimeout <= 0 {
		cfg.PredictTimeout = defaults.PredictTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaults.BatchTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = defaults.HealthTimeout
	}
	if cfg.FallbackModelVersion == "" {
		cfg.FallbackModelVersion = defaults.FallbackModelVersion
	}
	if cfg.FallbackConfidence == 0 {
		cfg.FallbackConfidence = defaults.FallbackConfidence
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaults.BatchConcurrency
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	g := &Gateway{
		cfg:    cfg,
		calc:   calc,
		logger: &monitoring.Logger{Logger: slog.Default()},
	}
	for _, opt := range opts {
		opt(g)
	}

	breakerCfg := cfg.Breaker
	if g.metrics != nil {
		breakerCfg.OnStateChange = g.metrics.BreakerStateHook()
	}
	if g.breakers == nil {
		g.breakers = resilience.NewCircuitBreakerRegistry()
	}
	breaker := g.breakers.GetOrCreate(ServiceName, breakerCfg)
	g.pool = resilience.NewConnectionPool(10, 20, 90*time.Second, breaker)

	if g.degradation != nil {
		g.degradation.RegisterService(ServiceName, g.HealthCheck)
	}
	return g
}

func (g *Gateway) Config() Config { return g.cfg }

// Breaker exposes the oracle breaker for health reporting.
func (g *Gateway) Breaker() *resilience.CircuitBreaker { return g.pool.CircuitBreaker() }

func (g *Gateway) Close() error { return g.pool.Close() }

// Predict never fails: any remote error yields the local computation.
func (g *Gateway) Predict(ctx context.Context, records scoring.VendorRecordSet) Prediction {
	return g.Attempt(ctx, records).Prediction
}

// Attempt asks the oracle once and reports which path produced the result.
func (g *Gateway) Attempt(ctx context.Context, records scoring.VendorRecordSet) Outcome {
	start := time.Now()

	pred, err := g.remotePredict(ctx, records)
	g.recordRemote(err)

	outcome := Outcome{Kind: KindRemote, Prediction: pred}
	if err != nil {
		outcome = Outcome{Kind: KindFallback, Prediction: g.fallback(records), Err: err}
	}

	duration := time.Since(start)
	if g.metrics != nil {
		g.metrics.RecordPrediction(string(outcome.Kind), duration)
	}
	g.logger.PredictionLogger(string(outcome.Kind), outcome.Prediction.TotalScore,
		outcome.Prediction.Confidence, outcome.Prediction.ModelVersion, duration, outcome.Err)

	return outcome
}

func (g *Gateway) fallback(records scoring.VendorRecordSet) Prediction {
	return Prediction{
		ScoreResult:  g.calc.Compute(records),
		Confidence:   g.cfg.FallbackConfidence,
		ModelVersion: g.cfg.FallbackModelVersion,
	}
}

func (g *Gateway) remotePredict(ctx context.Context, records scoring.VendorRecordSet) (Prediction, error) {
	var pred Prediction
	err := g.call(ctx, g.cfg.PredictTimeout, http.MethodPost, "/predict",
		predictRequest{VendorData: withEmptySlices(records)}, &pred)
	return pred, err
}

// PredictBatch asks the oracle for every vendor at once. If that fails each
// vendor goes through Predict concurrently; Success is false only for
// vendors whose fallback itself blew up.
func (g *Gateway) PredictBatch(ctx context.Context, items []BatchItem) []BatchResult {
	vendors := make([]BatchItem, len(items))
	for i, it := range items {
		vendors[i] = BatchItem{ID: it.ID, Data: withEmptySlices(it.Data)}
	}

	var resp batchResponse
	err := g.call(ctx, g.cfg.BatchTimeout, http.MethodPost, "/batch-predict", batchRequest{Vendors: vendors}, &resp)
	g.recordRemote(err)
	if err == nil {
		if g.metrics != nil {
			g.metrics.RecordBatch(string(KindRemote), len(items))
		}
		return resp.Results
	}

	g.logger.Warn("Batch prediction failed, scoring vendors individually", "vendors", len(items), "error", err)
	if g.metrics != nil {
		g.metrics.RecordBatch(string(KindFallback), len(items))
	}

	results := make([]BatchResult, len(items))
	var eg errgroup.Group
	eg.SetLimit(g.cfg.BatchConcurrency)

	for i, item := range items {
		eg.Go(func() error {
			apperrors.SafeExecute(func() {
				var pred Prediction
				if ctx.Err() != nil {
					// The caller is gone; answer locally without touching the oracle.
					pred = g.fallback(item.Data)
				} else {
					pred = g.Predict(ctx, item.Data)
				}
				results[i] = BatchResult{VendorID: item.ID, TotalScore: pred.TotalScore, Score: &pred, Success: true}
			}, func(r interface{}) {
				g.logger.Error("Per-vendor prediction panicked", "vendor_id", item.ID, "panic", r)
				results[i] = BatchResult{VendorID: item.ID, Success: false}
			})
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

// CheckHealth is true only when the oracle reports status "healthy" and an
// explicit model_loaded=true.
func (g *Gateway) CheckHealth(ctx context.Context) bool {
	return g.HealthCheck(ctx) == nil
}

// HealthCheck is CheckHealth with the reason for an unhealthy answer.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	var health healthResponse
	if err := g.call(ctx, g.cfg.HealthTimeout, http.MethodGet, "/health", nil, &health); err != nil {
		return err
	}
	if health.Status != "healthy" {
		return fmt.Errorf("oracle status %q", health.Status)
	}
	if health.ModelLoaded == nil || !*health.ModelLoaded {
		return fmt.Errorf("oracle model not loaded")
	}
	return nil
}

func (g *Gateway) call(ctx context.Context, timeout time.Duration, method, path string, payload, out interface{}) error {
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, resilience.ErrCallTimeout)
	defer cancel()

	var body []byte
	headers := map[string]string{"Accept": "application/json"}
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		headers["Content-Type"] = "application/json"
	}

	endpoint := g.cfg.BaseURL + path
	start := time.Now()

	resp, err := g.pool.DoRequest(ctx, method, endpoint, body, headers)
	if err != nil {
		g.logger.ExternalAPILogger(ServiceName, method, endpoint, 0, time.Since(start), false)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer apperrors.SafeClose(resp.Body, "oracle response body")

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	g.logger.ExternalAPILogger(ServiceName, method, endpoint, resp.StatusCode, time.Since(start), ok)
	if !ok {
		return &resilience.StatusError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// recordRemote reports an attempt to the degradation manager. Attempts the
// caller abandoned say nothing about the oracle and are skipped.
func (g *Gateway) recordRemote(err error) {
	if g.degradation == nil || errors.Is(err, resilience.ErrCallerDone) {
		return
	}
	if err != nil {
		g.degradation.RecordError(ServiceName, err)
		return
	}
	g.degradation.RecordRequest(ServiceName, true)
}

// withEmptySlices keeps the oracle from seeing null where it expects a list.
func withEmptySlices(r scoring.VendorRecordSet) scoring.VendorRecordSet {
	if r.PerformanceRecords == nil {
		r.PerformanceRecords = []scoring.PerformanceRecord{}
	}
	if r.ExternalReviews == nil {
		r.ExternalReviews = []scoring.ExternalReview{}
	}
	if r.CapabilityFeatures == nil {
		r.CapabilityFeatures = []scoring.CapabilityFeature{}
	}
	if r.ActiveRisks == nil {
		r.ActiveRisks = []scoring.RiskEntry{}
	}
	return r
}
