// Package scoring turns a vendor's sub-records into weighted sub-scores and
// a composite score, and measures lexical overlap between a requirement and
// a vendor's descriptive text.
package scoring

import "math"

// Calculator is stateless apart from its weights and safe for concurrent use.
type Calculator struct {
	w Weights
}

func NewCalculator(w Weights) *Calculator {
	return &Calculator{w: w}
}

func (c *Calculator) Weights() Weights { return c.w }

type subScores struct {
	reliability, cost, capability, performance, reputation, risk float64
}

// Compute never fails: empty inputs resolve to the configured defaults.
func (c *Calculator) Compute(records VendorRecordSet) ScoreResult {
	s := subScores{
		reliability: c.reliability(records.PerformanceRecords),
		cost:        c.cost(records.PerformanceRecords),
		capability:  c.capability(records.CapabilityFeatures),
		performance: c.performance(records.PerformanceRecords),
		reputation:  c.reputation(records.ExternalReviews),
		risk:        c.risk(records.ActiveRisks),
	}

	total := c.w.Reliability*s.reliability +
		c.w.Capability*s.capability +
		c.w.Cost*s.cost +
		c.w.RiskInverse*(100-s.risk) +
		c.w.Reputation*s.reputation

	return ScoreResult{
		TotalScore:       Round2(total),
		ReliabilityScore: Round2(s.reliability),
		CostScore:        Round2(s.cost),
		CapabilityScore:  Round2(s.capability),
		PerformanceScore: Round2(s.performance),
		ReputationScore:  Round2(s.reputation),
		RiskScore:        Round2(s.risk),
		Breakdown:        c.breakdown(s),
	}
}

// Display-only splits of the cost and capability scores.
const (
	costEfficiencyShare  = 0.6
	costValueShare       = 0.4
	capabilityCertShare  = 0.4
	capabilityExperience = 0.3
	capabilityTeamShare  = 0.3
)

func (c *Calculator) breakdown(s subScores) *Breakdown {
	return &Breakdown{
		Reliability: ReliabilityBreakdown{
			DeliverySuccess: s.reliability * c.w.DeliveryShare,
			QualityMetrics:  s.reliability * c.w.QualityShare,
			Compliance:      s.reliability * c.w.ComplianceShare,
		},
		Cost: CostBreakdown{
			Efficiency:    s.cost * costEfficiencyShare,
			ValueForMoney: s.cost * costValueShare,
		},
		Capability: CapabilityBreakdown{
			Certifications: s.capability * capabilityCertShare,
			Experience:     s.capability * capabilityExperience,
			TeamCapacity:   s.capability * capabilityTeamShare,
		},
	}
}

func (c *Calculator) reliability(records []PerformanceRecord) float64 {
	if len(records) == 0 {
		return c.w.Defaults.Reliability
	}
	delivery := mean(project(records, func(r PerformanceRecord) float64 { return r.DeliverySuccessRate }))
	quality := mean(project(records, func(r PerformanceRecord) float64 { return r.QualityScore }))
	compliance := mean(project(records, func(r PerformanceRecord) float64 { return r.ComplianceScore }))
	return c.w.DeliveryShare*delivery + c.w.QualityShare*quality + c.w.ComplianceShare*compliance
}

func (c *Calculator) cost(records []PerformanceRecord) float64 {
	if len(records) == 0 {
		return c.w.Defaults.Cost
	}
	return mean(project(records, func(r PerformanceRecord) float64 { return r.CostEfficiency }))
}

// performance is reported for display only.
func (c *Calculator) performance(records []PerformanceRecord) float64 {
	if len(records) == 0 {
		return c.w.Defaults.Performance
	}
	delivery := mean(project(records, func(r PerformanceRecord) float64 { return r.DeliverySuccessRate }))
	quality := mean(project(records, func(r PerformanceRecord) float64 { return r.QualityScore }))
	return (delivery + quality) / 2
}

// capability only looks at the first feature record.
func (c *Calculator) capability(features []CapabilityFeature) float64 {
	if len(features) == 0 {
		return c.w.Defaults.Capability
	}
	f := features[0]
	t := c.w.Capabilities

	score := t.Base
	score += math.Min(float64(len(f.Certifications))*t.PerCertificate, t.CertificateCap)

	if f.YearsInBusiness != nil && *f.YearsInBusiness != 0 {
		score += math.Min(float64(*f.YearsInBusiness)*t.PerYear, t.ExperienceCap)
	}

	if f.TeamSize != nil {
		for _, tier := range t.TeamSizeBonuses {
			if *f.TeamSize > tier.Above {
				score += tier.Bonus
				break
			}
		}
	}

	return math.Min(score, t.Max)
}

func (c *Calculator) reputation(reviews []ExternalReview) float64 {
	if len(reviews) == 0 {
		return c.w.Defaults.Reputation
	}
	avgRating := mean(project(reviews, func(r ExternalReview) float64 { return r.Rating }))
	ratingScore := avgRating / c.w.RatingScale * 100

	tagged, positive := 0, 0
	for _, r := range reviews {
		if r.Sentiment == "" {
			continue
		}
		tagged++
		if r.Sentiment == SentimentPositive {
			positive++
		}
	}
	if tagged == 0 {
		return ratingScore
	}

	sentimentScore := float64(positive) / float64(tagged) * 100
	return c.w.RatingShare*ratingScore + c.w.SentimentShare*sentimentScore
}

// risk is "badness": higher means riskier.
func (c *Calculator) risk(risks []RiskEntry) float64 {
	if len(risks) == 0 {
		return c.w.Defaults.Risk
	}
	levels := project(risks, func(r RiskEntry) float64 {
		if v, ok := c.w.RiskLevels[r.RiskLevel]; ok {
			return v
		}
		return c.w.UnknownRisk
	})
	severities := project(risks, func(r RiskEntry) float64 { return float64(r.Severity) * c.w.SeverityUnit })
	return (mean(levels) + mean(severities)) / 2
}
