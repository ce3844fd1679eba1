package scoring

type IndicatorType string

const (
	IndicatorHighRisk       IndicatorType = "HIGH_RISK"
	IndicatorLowReliability IndicatorType = "LOW_RELIABILITY"
	IndicatorCostConcern    IndicatorType = "COST_CONCERN"
)

type RiskIndicator struct {
	Type    IndicatorType `json:"type"`
	Message string        `json:"message"`
}

type Explainability struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// ExplainPolicy holds the thresholds used to describe a score to a reviewer.
type ExplainPolicy struct {
	HighRiskAbove       float64
	LowReliabilityBelow float64
	CostConcernBelow    float64

	StrengthAbove     float64
	CostWeaknessBelow float64
	RiskWeaknessAbove float64
	CriticalProjects  float64
	StandardProjects  float64
}

func DefaultExplainPolicy() ExplainPolicy {
	return ExplainPolicy{
		HighRiskAbove:       50,
		LowReliabilityBelow: 60,
		CostConcernBelow:    50,
		StrengthAbove:       80,
		CostWeaknessBelow:   60,
		RiskWeaknessAbove:   40,
		CriticalProjects:    80,
		StandardProjects:    60,
	}
}

func (p ExplainPolicy) RiskIndicators(s ScoreResult) []RiskIndicator {
	indicators := []RiskIndicator{}
	if s.RiskScore > p.HighRiskAbove {
		indicators = append(indicators, RiskIndicator{Type: IndicatorHighRisk, Message: "Vendor has high risk indicators"})
	}
	if s.ReliabilityScore < p.LowReliabilityBelow {
		indicators = append(indicators, RiskIndicator{Type: IndicatorLowReliability, Message: "Vendor reliability is below threshold"})
	}
	if s.CostScore < p.CostConcernBelow {
		indicators = append(indicators, RiskIndicator{Type: IndicatorCostConcern, Message: "Cost efficiency is below average"})
	}
	return indicators
}

func (p ExplainPolicy) Explain(s ScoreResult) Explainability {
	e := Explainability{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}

	if s.ReliabilityScore > p.StrengthAbove {
		e.Strengths = append(e.Strengths, "High reliability with consistent delivery")
	}
	if s.CapabilityScore > p.StrengthAbove {
		e.Strengths = append(e.Strengths, "Strong technical capabilities and certifications")
	}
	if s.ReputationScore > p.StrengthAbove {
		e.Strengths = append(e.Strengths, "Excellent reputation and customer reviews")
	}

	if s.CostScore < p.CostWeaknessBelow {
		e.Weaknesses = append(e.Weaknesses, "Cost efficiency needs improvement")
	}
	if s.RiskScore > p.RiskWeaknessAbove {
		e.Weaknesses = append(e.Weaknesses, "Some risk factors identified")
	}

	switch {
	case s.TotalScore > p.CriticalProjects:
		e.Recommendations = append(e.Recommendations, "Highly recommended for critical projects")
	case s.TotalScore > p.StandardProjects:
		e.Recommendations = append(e.Recommendations, "Suitable for standard projects with monitoring")
	default:
		e.Recommendations = append(e.Recommendations, "Consider alternative vendors or additional due diligence")
	}

	return e
}
