package database

import (
	"context"
	"encoding/json"

	"github.com/pushkarkumarvats/DIG-7/internal/recommend"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

// RecordSet converts the attached rows into the scoring input. Risks are
// passed through as loaded, so callers wanting only ACTIVE risks must load
// them that way.
func (d *VendorDetail) RecordSet() scoring.VendorRecordSet {
	set := scoring.VendorRecordSet{
		PerformanceRecords: make([]scoring.PerformanceRecord, 0, len(d.InternalRecords)),
		ExternalReviews:    make([]scoring.ExternalReview, 0, len(d.ExternalReviews)),
		CapabilityFeatures: make([]scoring.CapabilityFeature, 0, len(d.Features)),
		ActiveRisks:        make([]scoring.RiskEntry, 0, len(d.Risks)),
	}

	for _, p := range d.InternalRecords {
		set.PerformanceRecords = append(set.PerformanceRecords, scoring.PerformanceRecord{
			DeliverySuccessRate: p.DeliverySuccessRate,
			QualityScore:        p.QualityScore,
			CostEfficiency:      p.CostEfficiency,
			ComplianceScore:     p.ComplianceScore,
		})
	}
	for _, r := range d.ExternalReviews {
		set.ExternalReviews = append(set.ExternalReviews, scoring.ExternalReview{
			Rating:    r.Rating,
			Sentiment: scoring.Sentiment(r.Sentiment),
		})
	}
	for _, f := range d.Features {
		set.CapabilityFeatures = append(set.CapabilityFeatures, f.toScoring())
	}
	for _, k := range d.Risks {
		set.ActiveRisks = append(set.ActiveRisks, scoring.RiskEntry{
			RiskLevel: scoring.RiskLevel(k.RiskLevel),
			Severity:  k.Severity,
		})
	}
	return set
}

func (f CapabilityFeature) toScoring() scoring.CapabilityFeature {
	return scoring.CapabilityFeature{
		Certifications:  nonNil(f.Certifications),
		YearsInBusiness: f.YearsInBusiness,
		TeamSize:        f.TeamSize,
		Services:        nonNil(f.Services),
		Technologies:    nonNil(f.Technologies),
		ExpertiseAreas:  nonNil(f.ExpertiseAreas),
	}
}

func nonNil(l StringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

// Candidate converts a detail loaded by ListCandidates for the ranker.
// The composite is the latest stored score, if any.
func (d *VendorDetail) Candidate() recommend.Candidate {
	c := recommend.Candidate{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		Industry:       d.Industry,
		ContractValues: make([]float64, 0, len(d.InternalRecords)),
	}

	if len(d.Features) > 0 {
		f := d.Features[0].toScoring()
		c.Feature = &f
	}
	if s := d.LatestScore(); s != nil {
		result := s.ScoreResult()
		c.Composite = &result
	}
	if len(d.Risks) > 0 {
		c.RiskLevel = scoring.RiskLevel(d.Risks[0].RiskLevel)
	}
	for _, p := range d.InternalRecords {
		c.ContractValues = append(c.ContractValues, p.ContractValue)
	}
	return c
}

func (s *VendorScore) ScoreResult() scoring.ScoreResult {
	result := scoring.ScoreResult{
		TotalScore:       s.TotalScore,
		ReliabilityScore: s.ReliabilityScore,
		CostScore:        s.CostScore,
		CapabilityScore:  s.CapabilityScore,
		PerformanceScore: s.PerformanceScore,
		ReputationScore:  s.ReputationScore,
		RiskScore:        s.RiskScore,
	}
	if len(s.Breakdown) > 0 {
		var b scoring.Breakdown
		if err := json.Unmarshal(s.Breakdown, &b); err == nil {
			result.Breakdown = &b
		}
	}
	return result
}

// LoadRecordSet returns the scoring input for one vendor: every performance
// record and review, its features and only its ACTIVE risks.
func (r *Repository) LoadRecordSet(ctx context.Context, id string) (scoring.VendorRecordSet, error) {
	d, err := r.LoadVendorRecords(ctx, id)
	if err != nil {
		return scoring.VendorRecordSet{}, err
	}
	return d.RecordSet(), nil
}

// Candidates loads and converts every rankable vendor.
func (r *Repository) Candidates(ctx context.Context, industry string) ([]recommend.Candidate, error) {
	details, err := r.ListCandidates(ctx, industry)
	if err != nil {
		return nil, err
	}
	out := make([]recommend.Candidate, 0, len(details))
	for i := range details {
		out = append(out, details[i].Candidate())
	}
	return out, nil
}
