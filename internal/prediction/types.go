package prediction

import (
	"time"

	"github.com/pushkarkumarvats/DIG-7/internal/resilience"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

// ServiceName identifies the oracle in degradation and breaker reports.
const ServiceName = "prediction-oracle"

// Prediction is a score plus the provenance reported by whoever produced it.
type Prediction struct {
	scoring.ScoreResult
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"modelVersion,omitempty"`
}

type Kind string

const (
	KindRemote   Kind = "remote"
	KindFallback Kind = "fallback"
)

// Outcome records which path produced a prediction. Err is the remote
// failure that caused a fallback and is nil for remote outcomes.
type Outcome struct {
	Kind       Kind
	Prediction Prediction
	Err        error
}

type BatchItem struct {
	ID   string                  `json:"id"`
	Data scoring.VendorRecordSet `json:"data"`
}

type BatchResult struct {
	VendorID   string      `json:"vendorId"`
	TotalScore float64     `json:"totalScore"`
	Score      *Prediction `json:"score,omitempty"`
	Success    bool        `json:"success"`
}

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	PredictTimeout time.Duration `mapstructure:"predict_timeout"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout"`

	FallbackConfidence   float64 `mapstructure:"fallback_confidence"`
	FallbackModelVersion string  `mapstructure:"fallback_model_version"`

	// BatchConcurrency bounds the per-vendor fan-out when a batch call fails.
	BatchConcurrency int `mapstructure:"batch_concurrency"`

	Breaker resilience.CircuitBreakerConfig `mapstructure:"breaker"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:              "http://localhost:5000",
		PredictTimeout:       5 * time.Second,
		BatchTimeout:         30 * time.Second,
		HealthTimeout:        3 * time.Second,
		FallbackConfidence:   0.75,
		FallbackModelVersion: "fallback",
		BatchConcurrency:     8,
		Breaker:              resilience.DefaultCircuitBreakerConfig(),
	}
}

type predictRequest struct {
	VendorData scoring.VendorRecordSet `json:"vendorData"`
}

type batchRequest struct {
	Vendors []BatchItem `json:"vendors"`
}

type batchResponse struct {
	Results []BatchResult `json:"results"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded *bool  `json:"model_loaded"`
}
