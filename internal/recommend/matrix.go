package recommend

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	matrixWidth     = 5
	alternatives    = 2
	missingRiskBase = 50
)

// BuildMatrix lays out the top vendors side by side. Vendors without a
// stored composite show 0 for each sub-score and a neutral risk.
func BuildMatrix(ranked []Ranked) ComparisonMatrix {
	if len(ranked) > matrixWidth {
		ranked = ranked[:matrixWidth]
	}

	names := make([]string, 0, len(ranked))
	overall := make([]float64, 0, len(ranked))
	reliability := make([]float64, 0, len(ranked))
	capability := make([]float64, 0, len(ranked))
	cost := make([]float64, 0, len(ranked))
	risk := make([]float64, 0, len(ranked))

	for _, item := range ranked {
		names = append(names, item.Candidate.Name)
		overall = append(overall, item.CombinedScore)

		s := item.Candidate.Composite
		if s == nil {
			reliability = append(reliability, 0)
			capability = append(capability, 0)
			cost = append(cost, 0)
			risk = append(risk, 100-missingRiskBase)
			continue
		}
		reliability = append(reliability, s.ReliabilityScore)
		capability = append(capability, s.CapabilityScore)
		cost = append(cost, s.CostScore)
		r := s.RiskScore
		if r == 0 {
			r = missingRiskBase
		}
		risk = append(risk, 100-r)
	}

	return ComparisonMatrix{
		Vendors: names,
		Criteria: []Criterion{
			{Name: "Overall Score", Values: overall},
			{Name: "Reliability", Values: reliability},
			{Name: "Capability", Values: capability},
			{Name: "Cost Efficiency", Values: cost},
			{Name: "Risk Level", Values: risk},
		},
	}
}

// Reasoning summarizes the ranking in a few sentences.
func Reasoning(requirement string, ranked []Ranked) string {
	if len(ranked) == 0 {
		return "No vendors match the specified requirements. Consider broadening your search criteria."
	}

	top := ranked[0]
	parts := []string{
		fmt.Sprintf("Based on the requirement \"%s\", we analyzed %d qualified vendors.", requirement, len(ranked)),
		fmt.Sprintf("Top recommendation: %s with a combined score of %s/100.",
			top.Candidate.Name, strconv.FormatFloat(top.CombinedScore, 'f', -1, 64)),
		fmt.Sprintf("This vendor scores %.1f on performance metrics and %.1f on requirement matching.",
			top.MLScore, top.SimilarityScore),
	}

	if len(top.MatchReasons) > 0 {
		parts = append(parts, fmt.Sprintf("Key strengths: %s.", strings.Join(top.MatchReasons, "; ")))
	}

	if len(ranked) > 1 {
		end := min(len(ranked), 1+alternatives)
		names := make([]string, 0, alternatives)
		for _, item := range ranked[1:end] {
			names = append(names, item.Candidate.Name)
		}
		parts = append(parts, fmt.Sprintf("Alternative options include %s for comparison.", strings.Join(names, " and ")))
	}

	return strings.Join(parts, " ")
}
