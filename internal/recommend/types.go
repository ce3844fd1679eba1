package recommend

import "github.com/pushkarkumarvats/DIG-7/internal/scoring"

// Candidate is a vendor as seen by the ranker. Composite is nil when the
// vendor has never been scored.
type Candidate struct {
	ID             string
	Name           string
	Description    string
	Industry       string
	Feature        *scoring.CapabilityFeature
	Composite      *scoring.ScoreResult
	RiskLevel      scoring.RiskLevel
	ContractValues []float64
}

func (c Candidate) text() scoring.VendorText {
	return scoring.VendorText{Name: c.Name, Description: c.Description, Feature: c.Feature}
}

type Options struct {
	MinScore   float64 `json:"minScore"`
	MaxResults int     `json:"maxResults"`
}

func DefaultOptions() Options {
	return Options{MinScore: 50, MaxResults: 10}
}

// Blend weights the stored composite against requirement similarity.
type Blend struct {
	Composite  float64 `mapstructure:"composite" json:"mlScoreWeight"`
	Similarity float64 `mapstructure:"similarity" json:"similarityWeight"`
}

func DefaultBlend() Blend {
	return Blend{Composite: 0.6, Similarity: 0.4}
}

type Ranked struct {
	Candidate       Candidate
	CombinedScore   float64
	SimilarityScore float64
	MLScore         float64
	MatchReasons    []string
}

type VendorSummary struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Score           float64           `json:"score"`
	MLScore         float64           `json:"mlScore"`
	SimilarityScore float64           `json:"similarityScore"`
	MatchReasons    []string          `json:"matchReasons"`
	RiskLevel       scoring.RiskLevel `json:"riskLevel"`
	EstimatedCost   string            `json:"estimatedCost"`
	Strengths       []string          `json:"strengths"`
	Certifications  []string          `json:"certifications"`
}

type Criterion struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

type ComparisonMatrix struct {
	Vendors  []string    `json:"vendors"`
	Criteria []Criterion `json:"criteria"`
}

type Recommendation struct {
	Requirement         string           `json:"requirement"`
	TotalCandidates     int              `json:"totalCandidates"`
	QualifiedCandidates int              `json:"qualifiedCandidates"`
	TopVendors          []VendorSummary  `json:"topVendors"`
	ComparisonMatrix    ComparisonMatrix `json:"comparisonMatrix"`
}

type RankingCriteria struct {
	MLScoreWeight     float64 `json:"mlScoreWeight"`
	SimilarityWeight  float64 `json:"similarityWeight"`
	MinScoreThreshold float64 `json:"minScoreThreshold"`
}

// Result is the full answer to a recommendation request.
type Result struct {
	Recommendation  Recommendation  `json:"recommendation"`
	Reasoning       string          `json:"reasoning"`
	RankingCriteria RankingCriteria `json:"rankingCriteria"`
}
