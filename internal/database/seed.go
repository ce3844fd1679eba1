package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
)

type seedVendor struct {
	vendor  Vendor
	records []PerformanceRecord
	reviews []ExternalReview
	feature CapabilityFeature
	risk    VendorRisk
}

func intPtr(v int) *int { return &v }

func seedData() []seedVendor {
	base := []struct {
		name, website, description, size, industry, founded string
		verified                                            bool
		quality, delivery, cost, compliance                 float64
		rating                                              float64
		risk                                                string
		severity, team, years                               int
		contract                                            float64
		services, technologies, expertise                   []string
	}{
		{
			name: "TechSolutions Inc", website: "https://techsolutions.example.com",
			description: "Leading IT services provider specializing in cloud infrastructure and DevOps",
			size:        "500-1000", industry: "IT Services", founded: "2010", verified: true,
			quality: 92, delivery: 95, cost: 84, compliance: 97, rating: 4.8,
			risk: string(scoring.RiskLow), severity: 1, team: 120, years: 14, contract: 180000,
			services:     []string{"Consulting", "Implementation", "Support"},
			technologies: []string{"AWS", "Kubernetes", "Terraform"},
			expertise:    []string{"Cloud Migration", "DevOps"},
		},
		{
			name: "CloudMasters Pro", website: "https://cloudmasters.example.com",
			description: "AWS and Azure certified cloud migration experts",
			size:        "100-250", industry: "Cloud Computing", founded: "2015", verified: true,
			quality: 88, delivery: 90, cost: 79, compliance: 93, rating: 4.6,
			risk: string(scoring.RiskLow), severity: 2, team: 60, years: 9, contract: 95000,
			services:     []string{"Migration", "Managed Services"},
			technologies: []string{"AWS", "Azure", "Docker"},
			expertise:    []string{"Cloud Migration", "Cost Optimization"},
		},
		{
			name: "DataSecure Systems", website: "https://datasecure.example.com",
			description: "Cybersecurity and data protection specialists",
			size:        "250-500", industry: "Cybersecurity", founded: "2012", verified: true,
			quality: 90, delivery: 87, cost: 72, compliance: 99, rating: 4.7,
			risk: string(scoring.RiskMedium), severity: 2, team: 85, years: 12, contract: 130000,
			services:     []string{"Security Audit", "Penetration Testing", "Compliance"},
			technologies: []string{"SIEM", "Zero Trust"},
			expertise:    []string{"Security", "Data Protection"},
		},
		{
			name: "AgileDevs Co", website: "https://agiledevs.example.com",
			description: "Software development and agile consulting",
			size:        "50-100", industry: "Software Development", founded: "2018", verified: false,
			quality: 81, delivery: 83, cost: 88, compliance: 86, rating: 4.3,
			risk: string(scoring.RiskMedium), severity: 3, team: 40, years: 6, contract: 45000,
			services:     []string{"Development", "Agile Coaching"},
			technologies: []string{"Go", "React", "PostgreSQL"},
			expertise:    []string{"Web Applications", "Automation"},
		},
		{
			name: "MarketBoost Digital", website: "https://marketboost.example.com",
			description: "Digital marketing and SEO services",
			size:        "10-50", industry: "Digital Marketing", founded: "2019", verified: true,
			quality: 76, delivery: 78, cost: 91, compliance: 82, rating: 4.2,
			risk: string(scoring.RiskHigh), severity: 4, team: 15, years: 5, contract: 20000,
			services:     []string{"SEO", "Content Marketing"},
			technologies: []string{"Google Analytics"},
			expertise:    []string{"Marketing", "Analytics"},
		},
	}

	out := make([]seedVendor, 0, len(base))
	for _, b := range base {
		out = append(out, seedVendor{
			vendor: Vendor{
				Name:        b.name,
				Website:     b.website,
				Description: b.description,
				CompanySize: b.size,
				Industry:    b.industry,
				Founded:     b.founded,
				Status:      VendorActive,
				IsVerified:  b.verified,
			},
			records: []PerformanceRecord{
				{
					ProjectName: "Infrastructure Modernization", ProjectCategory: b.industry,
					ContractValue: b.contract, DeliverySuccessRate: b.delivery, QualityScore: b.quality,
					CostEfficiency: b.cost, ComplianceScore: b.compliance,
				},
				{
					ProjectName: "Security Audit Implementation", ProjectCategory: "Security",
					ContractValue: b.contract * 0.6, DeliverySuccessRate: b.delivery - 2, QualityScore: b.quality + 2,
					CostEfficiency: b.cost - 3, ComplianceScore: b.compliance, IncidentCount: 1,
				},
			},
			reviews: []ExternalReview{
				{Source: "Google", Rating: b.rating, ReviewCount: 120, Sentiment: string(scoring.SentimentPositive)},
				{Source: "Clutch", Rating: b.rating - 0.2, ReviewCount: 45, Sentiment: string(scoring.SentimentPositive)},
				{Source: "G2", Rating: b.rating - 0.4, ReviewCount: 80, Sentiment: string(scoring.SentimentNeutral)},
			},
			feature: CapabilityFeature{
				Services:        b.services,
				Technologies:    b.technologies,
				Certifications:  StringList{"ISO 9001", "ISO 27001", "SOC 2"},
				ExpertiseAreas:  b.expertise,
				YearsInBusiness: intPtr(b.years),
				TeamSize:        intPtr(b.team),
			},
			risk: VendorRisk{
				RiskLevel:    b.risk,
				RiskCategory: "Operational",
				Description:  "Minor delays observed in past projects",
				Severity:     b.severity,
				Status:       RiskActive,
			},
		})
	}
	return out
}

// Seed loads the demo vendors and scores each one with calc. It does
// nothing when the vendors table already has rows and reports how many
// vendors it inserted.
func (r *Repository) Seed(ctx context.Context, calc *scoring.Calculator) (int, error) {
	var existing int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vendors`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("failed to count vendors: %w", err)
	}
	if existing > 0 {
		slog.Info("Skipping seed, vendors already present", "count", existing)
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	data := seedData()
	for _, sv := range data {
		now := r.now()
		v := sv.vendor
		v.ID = newID()
		v.CreatedAt, v.UpdatedAt = now, now
		if err := insertVendor(ctx, tx, v); err != nil {
			return 0, err
		}

		detail := VendorDetail{Vendor: v}
		for _, p := range sv.records {
			p.ID, p.VendorID, p.CreatedAt = newID(), v.ID, now
			if err := insertRecord(ctx, tx, p); err != nil {
				return 0, err
			}
			detail.InternalRecords = append(detail.InternalRecords, p)
		}
		for _, rv := range sv.reviews {
			rv.ID, rv.VendorID, rv.CreatedAt = newID(), v.ID, now
			if err := insertReview(ctx, tx, rv); err != nil {
				return 0, err
			}
			detail.ExternalReviews = append(detail.ExternalReviews, rv)
		}
		f := sv.feature
		f.ID, f.VendorID, f.CreatedAt = newID(), v.ID, now
		if err := insertFeature(ctx, tx, f); err != nil {
			return 0, err
		}
		detail.Features = append(detail.Features, f)

		k := sv.risk
		k.ID, k.VendorID, k.CreatedAt = newID(), v.ID, now
		if err := insertRisk(ctx, tx, k); err != nil {
			return 0, err
		}
		detail.Risks = append(detail.Risks, k)

		result := calc.Compute(detail.RecordSet())
		breakdown, err := json.Marshal(result.Breakdown)
		if err != nil {
			return 0, fmt.Errorf("failed to encode breakdown: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO vendor_scores (
			id, vendor_id, total_score, reliability_score, cost_score, capability_score,
			performance_score, reputation_score, risk_score, breakdown, model_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newID(), v.ID, result.TotalScore, result.ReliabilityScore, result.CostScore, result.CapabilityScore,
			result.PerformanceScore, result.ReputationScore, result.RiskScore, string(breakdown), "seed", now)
		if err != nil {
			return 0, fmt.Errorf("failed to seed score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}

	slog.Info("Seeded demo vendors", "count", len(data))
	return len(data), nil
}

func insertRecord(ctx context.Context, ex execer, p PerformanceRecord) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO performance_records (id, vendor_id, project_name, project_category, contract_value,
			delivery_success_rate, quality_score, cost_efficiency, compliance_score, incident_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.VendorID, p.ProjectName, p.ProjectCategory, p.ContractValue,
		p.DeliverySuccessRate, p.QualityScore, p.CostEfficiency, p.ComplianceScore, p.IncidentCount, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert performance record: %w", err)
	}
	return nil
}

func insertReview(ctx context.Context, ex execer, rv ExternalReview) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO external_reviews (id, vendor_id, source, rating, review_count, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rv.ID, rv.VendorID, rv.Source, rv.Rating, rv.ReviewCount, nullString(rv.Sentiment), rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func insertFeature(ctx context.Context, ex execer, f CapabilityFeature) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO capability_features (id, vendor_id, services, technologies, certifications,
			expertise_areas, years_in_business, team_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.VendorID, f.Services, f.Technologies, f.Certifications,
		f.ExpertiseAreas, f.YearsInBusiness, f.TeamSize, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feature: %w", err)
	}
	return nil
}

func insertRisk(ctx context.Context, ex execer, k VendorRisk) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO vendor_risks (id, vendor_id, risk_level, risk_category, description, severity, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.VendorID, k.RiskLevel, k.RiskCategory, k.Description, k.Severity, string(k.Status), k.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert risk: %w", err)
	}
	return nil
}

// AddPerformanceRecord, AddReview, AddFeature and AddRisk attach sub-records
// to an existing vendor.
func (r *Repository) AddPerformanceRecord(ctx context.Context, p *PerformanceRecord) error {
	p.ID, p.CreatedAt = newID(), r.now()
	return insertRecord(ctx, r.db, *p)
}

func (r *Repository) AddReview(ctx context.Context, rv *ExternalReview) error {
	rv.ID, rv.CreatedAt = newID(), r.now()
	return insertReview(ctx, r.db, *rv)
}

func (r *Repository) AddFeature(ctx context.Context, f *CapabilityFeature) error {
	f.ID, f.CreatedAt = newID(), r.now()
	return insertFeature(ctx, r.db, *f)
}

func (r *Repository) AddRisk(ctx context.Context, k *VendorRisk) error {
	k.ID, k.CreatedAt = newID(), r.now()
	if k.Status == "" {
		k.Status = RiskActive
	}
	return insertRisk(ctx, r.db, *k)
}
