package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pushkarkumarvats/DIG-7/internal/database"
	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/prediction"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

type vendorIDRequest struct {
	VendorID string `json:"vendorId"`
}

func bindVendorID(c *gin.Context) (string, bool) {
	var req vendorIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return "", false
	}
	id := strings.TrimSpace(req.VendorID)
	if id == "" {
		apperrors.Abort(c, apperrors.NewValidationError("vendorId is required"))
		return "", false
	}
	return id, true
}

// handleScoreVendor scores one vendor, explains the result and stores it.
func (s *Server) handleScoreVendor(c *gin.Context) {
	vendorID, ok := bindVendorID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	records, err := s.repo.LoadRecordSet(ctx, vendorID)
	if err != nil {
		abortStore(c, "Vendor", vendorID, "load vendor records", err)
		return
	}

	pred := s.gateway.Predict(ctx, records)
	indicators := s.explain.RiskIndicators(pred.ScoreResult)
	explainability := s.explain.Explain(pred.ScoreResult)

	score, err := newVendorScore(vendorID, pred, explainability)
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("encode score", err))
		return
	}
	if err := s.repo.SaveScore(ctx, score); err != nil {
		abortStore(c, "Vendor", vendorID, "save score", err)
		return
	}
	s.catalogueChanged()

	s.audit(c, "SCORE", "VendorScore", score.ID, vendorID, gin.H{
		"totalScore":   score.TotalScore,
		"modelVersion": score.ModelVersion,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"vendorId":       vendorID,
		"scores":         score,
		"riskIndicators": indicators,
		"explainability": explainability,
	})
}

func newVendorScore(vendorID string, pred prediction.Prediction, explain scoring.Explainability) (*database.VendorScore, error) {
	total := pred.TotalScore
	confidence := pred.Confidence

	score := &database.VendorScore{
		VendorID:          vendorID,
		TotalScore:        pred.TotalScore,
		ReliabilityScore:  pred.ReliabilityScore,
		CostScore:         pred.CostScore,
		CapabilityScore:   pred.CapabilityScore,
		PerformanceScore:  pred.PerformanceScore,
		ReputationScore:   pred.ReputationScore,
		RiskScore:         pred.RiskScore,
		MLPredictionScore: &total,
		Confidence:        &confidence,
		ModelVersion:      pred.ModelVersion,
	}

	if pred.Breakdown != nil {
		raw, err := json.Marshal(pred.Breakdown)
		if err != nil {
			return nil, err
		}
		score.Breakdown = raw
	}
	factors, err := json.Marshal(explain)
	if err != nil {
		return nil, err
	}
	score.RankingFactors = factors
	return score, nil
}

func (s *Server) handlePredict(c *gin.Context) {
	vendorID, ok := bindVendorID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	records, err := s.repo.LoadRecordSet(ctx, vendorID)
	if err != nil {
		abortStore(c, "Vendor", vendorID, "load vendor records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"vendorId":   vendorID,
		"prediction": s.gateway.Predict(ctx, records),
	})
}

type batchRequest struct {
	VendorIDs []string `json:"vendorIds"`
}

const maxBatchSize = 100

func (s *Server) handlePredictBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}
	if len(req.VendorIDs) == 0 {
		apperrors.Abort(c, apperrors.NewValidationError("vendorIds is required"))
		return
	}
	if len(req.VendorIDs) > maxBatchSize {
		apperrors.Abort(c, apperrors.NewValidationError("too many vendorIds", maxBatchSize))
		return
	}

	ctx := c.Request.Context()
	items := make([]prediction.BatchItem, 0, len(req.VendorIDs))
	for _, id := range req.VendorIDs {
		records, err := s.repo.LoadRecordSet(ctx, id)
		if err != nil {
			abortStore(c, "Vendor", id, "load vendor records", err)
			return
		}
		items = append(items, prediction.BatchItem{ID: id, Data: records})
	}

	start := time.Now()
	results := s.gateway.PredictBatch(ctx, items)
	s.logger.Info("Batch prediction completed", "items", len(items), "duration_ms", time.Since(start).Milliseconds())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

func (s *Server) handleOracleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"healthy":   s.gateway.CheckHealth(c.Request.Context()),
		"breaker":   s.gateway.Breaker().State().String(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
