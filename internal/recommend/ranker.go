// Package recommend ranks candidate vendors against a free-text requirement
// and explains the outcome.
package recommend

import (
	"slices"

	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

type Ranker struct {
	blend Blend
}

func NewRanker(blend Blend) *Ranker {
	return &Ranker{blend: blend}
}

func (r *Ranker) Blend() Blend { return r.blend }

// Rank scores every candidate, drops those below opts.MinScore and returns
// at most opts.MaxResults in descending order of combined score. Ties keep
// their input order.
func (r *Ranker) Rank(requirement string, candidates []Candidate, opts Options) []Ranked {
	opts = opts.normalize()

	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		item := r.score(requirement, c)
		if item.CombinedScore >= opts.MinScore {
			ranked = append(ranked, item)
		}
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.CombinedScore > b.CombinedScore:
			return -1
		case a.CombinedScore < b.CombinedScore:
			return 1
		}
		return 0
	})

	if len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults]
	}
	return ranked
}

func (r *Ranker) score(requirement string, c Candidate) Ranked {
	similarity := scoring.Similarity(requirement, c.text())

	combined := similarity
	ml := 0.0
	if c.Composite != nil {
		ml = c.Composite.TotalScore
		combined = ml*r.blend.Composite + similarity*r.blend.Similarity
	}

	return Ranked{
		Candidate:       c,
		CombinedScore:   scoring.Round2(combined),
		SimilarityScore: scoring.Round2(similarity),
		MLScore:         ml,
		MatchReasons:    MatchReasons(requirement, c),
	}
}

// Recommend ranks the candidates and assembles summaries, the comparison
// matrix and the narrative reasoning.
func (r *Ranker) Recommend(requirement string, candidates []Candidate, opts Options) Result {
	opts = opts.normalize()
	ranked := r.Rank(requirement, candidates, opts)

	top := make([]VendorSummary, 0, len(ranked))
	for _, item := range ranked {
		top = append(top, summarize(item))
	}

	return Result{
		Recommendation: Recommendation{
			Requirement:         requirement,
			TotalCandidates:     len(candidates),
			QualifiedCandidates: len(ranked),
			TopVendors:          top,
			ComparisonMatrix:    BuildMatrix(ranked),
		},
		Reasoning: Reasoning(requirement, ranked),
		RankingCriteria: RankingCriteria{
			MLScoreWeight:     r.blend.Composite,
			SimilarityWeight:  r.blend.Similarity,
			MinScoreThreshold: opts.MinScore,
		},
	}
}

func (o Options) normalize() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultOptions().MaxResults
	}
	return o
}

func summarize(item Ranked) VendorSummary {
	c := item.Candidate
	risk := c.RiskLevel
	if risk == "" {
		risk = scoring.RiskLow
	}
	certs := []string{}
	if c.Feature != nil && c.Feature.Certifications != nil {
		certs = c.Feature.Certifications
	}
	return VendorSummary{
		ID:              c.ID,
		Name:            c.Name,
		Score:           item.CombinedScore,
		MLScore:         item.MLScore,
		SimilarityScore: item.SimilarityScore,
		MatchReasons:    item.MatchReasons,
		RiskLevel:       risk,
		EstimatedCost:   EstimateCost(c.ContractValues),
		Strengths:       Strengths(c),
		Certifications:  certs,
	}
}
