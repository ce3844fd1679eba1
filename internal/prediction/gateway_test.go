package prediction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkarkumarvats/DIG-7/internal/monitoring"
	"github.com/pushkarkumarvats/DIG-7/internal/resilience"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

func sampleRecords() scoring.VendorRecordSet {
	years, team := 10, 75
	return scoring.VendorRecordSet{
		PerformanceRecords: []scoring.PerformanceRecord{
			{DeliverySuccessRate: 95, QualityScore: 90, CostEfficiency: 85, ComplianceScore: 92},
		},
		ExternalReviews:    []scoring.ExternalReview{{Rating: 4.5, Sentiment: scoring.SentimentPositive}},
		CapabilityFeatures: []scoring.CapabilityFeature{{Certifications: []string{"A"}, YearsInBusiness: &years, TeamSize: &team}},
		ActiveRisks:        []scoring.RiskEntry{{RiskLevel: scoring.RiskLow, Severity: 2}},
	}
}

func newGateway(t *testing.T, baseURL string, mutate func(*Config), opts ...Option) *Gateway {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	if mutate != nil {
		mutate(&cfg)
	}
	g := NewGateway(cfg, scoring.NewCalculator(scoring.DefaultWeights()), opts...)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func expectedFallback(records scoring.VendorRecordSet) Prediction {
	return Prediction{
		ScoreResult:  scoring.NewCalculator(scoring.DefaultWeights()).Compute(records),
		Confidence:   0.75,
		ModelVersion: "fallback",
	}
}

func TestPredict_RemoteSuccess(t *testing.T) {
	var received map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalScore":85.5,"reliabilityScore":80,"costScore":70,"capabilityScore":90,` +
			`"performanceScore":88,"reputationScore":91,"riskScore":12,"confidence":0.92,"modelVersion":"1.0.0"}`))
	}))
	defer server.Close()

	g := newGateway(t, server.URL, nil)
	outcome := g.Attempt(context.Background(), sampleRecords())

	assert.Equal(t, KindRemote, outcome.Kind)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 85.5, outcome.Prediction.TotalScore)
	assert.Equal(t, 0.92, outcome.Prediction.Confidence)
	assert.Equal(t, "1.0.0", outcome.Prediction.ModelVersion)
	assert.Equal(t, 12.0, outcome.Prediction.RiskScore)

	require.Contains(t, received, "vendorData")
	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(received["vendorData"], &data))
	for _, key := range []string{"internalRecords", "externalReviews", "features", "risks"} {
		assert.Contains(t, data, key)
	}
}

func TestPredict_EmptyListsAreSentAsArrays(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = w.Write([]byte(`{"totalScore":50,"confidence":0.9}`))
	}))
	defer server.Close()

	g := newGateway(t, server.URL, nil)
	g.Predict(context.Background(), scoring.VendorRecordSet{})

	assert.JSONEq(t, `{"vendorData":{"internalRecords":[],"externalReviews":[],"features":[],"risks":[]}}`, body)
}

func TestPredict_Fallback(t *testing.T) {
	records := sampleRecords()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		mutate  func(*Config)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "client error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{not json`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			mutate: func(c *Config) { c.PredictTimeout = 50 * time.Millisecond },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			g := newGateway(t, server.URL, tt.mutate)
			start := time.Now()
			outcome := g.Attempt(context.Background(), records)

			assert.Equal(t, KindFallback, outcome.Kind)
			assert.Error(t, outcome.Err)
			assert.Equal(t, expectedFallback(records), outcome.Prediction)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestPredict_UnreachableOracle(t *testing.T) {
	g := newGateway(t, "http://127.0.0.1:1", nil)
	records := sampleRecords()

	pred := g.Predict(context.Background(), records)
	assert.Equal(t, expectedFallback(records), pred)
}

func TestPredict_OpenBreakerSkipsOracle(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	g := newGateway(t, server.URL, func(c *Config) {
		c.Breaker = resilience.CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour}
	})

	for i := 0; i < 4; i++ {
		outcome := g.Attempt(context.Background(), scoring.VendorRecordSet{})
		assert.Equal(t, KindFallback, outcome.Kind)
	}
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "open", g.Breaker().State().String())
}

func TestPredict_ReportsToDegradationAndMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	dm := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())
	metrics := monitoring.NewMetrics()
	g := newGateway(t, server.URL, nil, WithDegradation(dm), WithMetrics(metrics))

	g.Predict(context.Background(), scoring.VendorRecordSet{})

	health, ok := dm.GetServiceHealth(ServiceName)
	require.True(t, ok)
	assert.Equal(t, int64(1), health.ErrorCount)
	assert.Equal(t, int64(1), metrics.GetStats()["prediction_fallbacks"])
}

func TestPredictBatch_Remote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batch-predict", r.URL.Path)
		var req struct {
			Vendors []struct {
				ID string `json:"id"`
			} `json:"vendors"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Vendors, 2)
		_, _ = w.Write([]byte(`{"results":[{"vendorId":"a","totalScore":81,"success":true},{"vendorId":"b","totalScore":64,"success":true}]}`))
	}))
	defer server.Close()

	g := newGateway(t, server.URL, nil)
	results := g.PredictBatch(context.Background(), []BatchItem{{ID: "a"}, {ID: "b"}})

	require.Len(t, results, 2)
	assert.Equal(t, BatchResult{VendorID: "a", TotalScore: 81, Success: true}, results[0])
	assert.Equal(t, 64.0, results[1].TotalScore)
}

func TestPredictBatch_FallsBackPerVendor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := newGateway(t, server.URL, nil)
	records := sampleRecords()
	items := []BatchItem{{ID: "a", Data: records}, {ID: "b"}, {ID: "c", Data: records}}

	results := g.PredictBatch(context.Background(), items)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, items[i].ID, r.VendorID)
		assert.True(t, r.Success)
		require.NotNil(t, r.Score)
		assert.Equal(t, "fallback", r.Score.ModelVersion)
		assert.Equal(t, r.Score.TotalScore, r.TotalScore)
	}
	assert.Equal(t, 50.0, results[1].TotalScore)
	assert.Equal(t, expectedFallback(records), *results[0].Score)
}

func TestPredictBatch_PanickingFallbackMarksFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://127.0.0.1:1"
	g := NewGateway(cfg, nil)
	defer g.Close()

	results := g.PredictBatch(context.Background(), []BatchItem{{ID: "x"}, {ID: "y"}})

	require.Len(t, results, 2)
	assert.Equal(t, BatchResult{VendorID: "x"}, results[0])
	assert.Equal(t, BatchResult{VendorID: "y"}, results[1])
}

// switchableOracle stalls every call until the client gives up, or answers
// like a healthy oracle once healthy is set.
func switchableOracle(healthy *atomic.Bool, predictHits *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/predict" {
			predictHits.Add(1)
		}
		if !healthy.Load() {
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write([]byte(`{"totalScore":91.5,"confidence":0.9,"modelVersion":"v2.1.0"}`))
	})
}

func TestPredictBatch_ExpiredCallerLeavesBreakerClosed(t *testing.T) {
	var healthy atomic.Bool
	var predictHits atomic.Int32
	server := httptest.NewServer(switchableOracle(&healthy, &predictHits))
	defer server.Close()

	dm := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())
	g := newGateway(t, server.URL, func(c *Config) {
		c.BatchTimeout = 300 * time.Millisecond
		c.Breaker = resilience.CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour}
	}, WithDegradation(dm))

	items := make([]BatchItem, 6)
	for i := range items {
		items[i] = BatchItem{ID: string(rune('a' + i)), Data: sampleRecords()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	results := g.PredictBatch(ctx, items)

	require.Len(t, results, len(items))
	for _, r := range results {
		assert.True(t, r.Success)
		require.NotNil(t, r.Score)
		assert.Equal(t, "fallback", r.Score.ModelVersion)
	}
	assert.Equal(t, int32(0), predictHits.Load())
	assert.Equal(t, "closed", g.Breaker().State().String())
	assert.Equal(t, 0, g.Breaker().Failures())

	health, ok := dm.GetServiceHealth(ServiceName)
	require.True(t, ok)
	assert.Equal(t, int64(0), health.ErrorCount)

	healthy.Store(true)
	pred := g.Predict(context.Background(), sampleRecords())
	assert.Equal(t, "v2.1.0", pred.ModelVersion)
	assert.Equal(t, 91.5, pred.TotalScore)
}

func TestPredict_CanceledCallerSkipsOracle(t *testing.T) {
	var healthy atomic.Bool
	var predictHits atomic.Int32
	healthy.Store(true)
	server := httptest.NewServer(switchableOracle(&healthy, &predictHits))
	defer server.Close()

	g := newGateway(t, server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := sampleRecords()
	outcome := g.Attempt(ctx, records)

	assert.Equal(t, KindFallback, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, resilience.ErrCallerDone)
	assert.Equal(t, expectedFallback(records), outcome.Prediction)
	assert.Equal(t, int32(0), predictHits.Load())
	assert.Equal(t, 0, g.Breaker().Failures())
}

func TestPredict_OwnTimeoutCountsAgainstOracle(t *testing.T) {
	var healthy atomic.Bool
	var predictHits atomic.Int32
	server := httptest.NewServer(switchableOracle(&healthy, &predictHits))
	defer server.Close()

	g := newGateway(t, server.URL, func(c *Config) {
		c.PredictTimeout = 50 * time.Millisecond
		c.Breaker = resilience.CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour}
	})

	for i := 0; i < 2; i++ {
		outcome := g.Attempt(context.Background(), scoring.VendorRecordSet{})
		assert.Equal(t, KindFallback, outcome.Kind)
		assert.NotErrorIs(t, outcome.Err, resilience.ErrCallerDone)
	}
	assert.Equal(t, int32(2), predictHits.Load())
	assert.Equal(t, "open", g.Breaker().State().String())
}

func TestNewGateway_RegistersBreaker(t *testing.T) {
	reg := resilience.NewCircuitBreakerRegistry()
	g := newGateway(t, "http://127.0.0.1:1", nil, WithBreakers(reg))

	stats := reg.GetStats()
	require.Contains(t, stats, ServiceName)
	assert.Same(t, g.Breaker(), reg.GetOrCreate(ServiceName, resilience.DefaultCircuitBreakerConfig()))
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected bool
	}{
		{"healthy with model", http.StatusOK, `{"status":"healthy","model_loaded":true}`, true},
		{"model flag missing", http.StatusOK, `{"status":"healthy"}`, false},
		{"model not loaded", http.StatusOK, `{"status":"healthy","model_loaded":false}`, false},
		{"degraded status", http.StatusOK, `{"status":"degraded","model_loaded":true}`, false},
		{"server error", http.StatusInternalServerError, `{"status":"healthy","model_loaded":true}`, false},
		{"garbage", http.StatusOK, `<html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			g := newGateway(t, server.URL, nil)
			assert.Equal(t, tt.expected, g.CheckHealth(context.Background()))
		})
	}
}

func TestCheckHealth_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	g := newGateway(t, server.URL, func(c *Config) { c.HealthTimeout = 50 * time.Millisecond })
	assert.False(t, g.CheckHealth(context.Background()))
}

func TestNewGateway_Defaults(t *testing.T) {
	g := NewGateway(Config{BaseURL: "http://oracle:5000/"}, scoring.NewCalculator(scoring.DefaultWeights()))
	defer g.Close()

	cfg := g.Config()
	assert.Equal(t, "http://oracle:5000", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.PredictTimeout)
	assert.Equal(t, 30*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 3*time.Second, cfg.HealthTimeout)
	assert.Equal(t, 0.75, cfg.FallbackConfidence)
	assert.Equal(t, "fallback", cfg.FallbackModelVersion)
}
