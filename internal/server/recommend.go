package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/prediction"
	"github.com/pushkarkumarvats/DIG-7/internal/recommend"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

type recommendRequest struct {
	Requirement string   `json:"requirement"`
	Category    string   `json:"category"`
	MaxResults  int      `json:"maxResults"`
	MinScore    *float64 `json:"minScore"`
	// LiveScoring overrides the server default for this request.
	LiveScoring *bool `json:"liveScoring"`
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	requirement := strings.TrimSpace(req.Requirement)
	if requirement == "" {
		apperrors.Abort(c, apperrors.NewValidationError("Requirement is required"))
		return
	}
	if err := s.cfg.Security.ValidateInput(requirement); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError(err.Error()))
		return
	}

	start := time.Now()
	ctx := c.Request.Context()

	candidates, err := s.repo.Candidates(ctx, strings.TrimSpace(req.Category))
	if err != nil {
		abortStore(c, "Vendor", "", "load candidates", err)
		return
	}

	live := s.cfg.LiveScoring
	if req.LiveScoring != nil {
		live = *req.LiveScoring
	}
	if live {
		if err := s.scoreLive(ctx, candidates); err != nil {
			abortStore(c, "Vendor", "", "load vendor records", err)
			return
		}
	}

	opts := recommend.DefaultOptions()
	if req.MaxResults > 0 {
		opts.MaxResults = req.MaxResults
	}
	if req.MinScore != nil {
		opts.MinScore = *req.MinScore
	}

	result := s.ranker.Recommend(requirement, candidates, opts)

	elapsed := time.Since(start)
	s.metrics.RecordRecommendation(result.Recommendation.QualifiedCandidates, elapsed)
	s.logger.RecommendationLogger(requirement, result.Recommendation.TotalCandidates,
		result.Recommendation.QualifiedCandidates, elapsed)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"recommendation":  result.Recommendation,
		"reasoning":       result.Reasoning,
		"rankingCriteria": result.RankingCriteria,
	})
}

// scoreLive replaces each candidate's stored composite with a fresh
// prediction over its full record set. Vendors whose prediction failed keep
// their stored score.
func (s *Server) scoreLive(ctx context.Context, candidates []recommend.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	items := make([]prediction.BatchItem, 0, len(candidates))
	for _, cand := range candidates {
		records, err := s.repo.LoadRecordSet(ctx, cand.ID)
		if err != nil {
			return err
		}
		items = append(items, prediction.BatchItem{ID: cand.ID, Data: records})
	}

	byID := make(map[string]scoring.ScoreResult, len(items))
	for _, res := range s.gateway.PredictBatch(ctx, items) {
		switch {
		case !res.Success:
		case res.Score != nil:
			byID[res.VendorID] = res.Score.ScoreResult
		default:
			// The oracle may answer a batch with totals only.
			byID[res.VendorID] = scoring.ScoreResult{TotalScore: res.TotalScore}
		}
	}
	for i := range candidates {
		if result, ok := byID[candidates[i].ID]; ok {
			candidates[i].Composite = &result
		}
	}
	return nil
}
