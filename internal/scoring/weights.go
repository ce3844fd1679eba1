package scoring

import "fmt"

// Weights holds every tunable constant used by the Calculator: blend
// weights, capability tiers and per-factor defaults for empty inputs.
type Weights struct {
	// Composite blend. Risk is applied as (100 - risk).
	Reliability float64 `mapstructure:"reliability" json:"reliability"`
	Capability  float64 `mapstructure:"capability" json:"capability"`
	Cost        float64 `mapstructure:"cost" json:"cost"`
	RiskInverse float64 `mapstructure:"risk_inverse" json:"riskInverse"`
	Reputation  float64 `mapstructure:"reputation" json:"reputation"`

	// Reliability = delivery/quality/compliance averages.
	DeliveryShare   float64 `mapstructure:"delivery_share" json:"deliveryShare"`
	QualityShare    float64 `mapstructure:"quality_share" json:"qualityShare"`
	ComplianceShare float64 `mapstructure:"compliance_share" json:"complianceShare"`

	// Reputation = rating/sentiment blend when any sentiment is present.
	RatingShare    float64 `mapstructure:"rating_share" json:"ratingShare"`
	SentimentShare float64 `mapstructure:"sentiment_share" json:"sentimentShare"`
	RatingScale    float64 `mapstructure:"rating_scale" json:"ratingScale"`

	Capabilities CapabilityTiers `mapstructure:"capability_tiers" json:"capabilityTiers"`

	RiskLevels   map[RiskLevel]float64 `mapstructure:"risk_levels" json:"riskLevels"`
	UnknownRisk  float64               `mapstructure:"unknown_risk" json:"unknownRisk"`
	SeverityUnit float64               `mapstructure:"severity_unit" json:"severityUnit"`

	Defaults Defaults `mapstructure:"defaults" json:"defaults"`
}

type CapabilityTiers struct {
	Base            float64    `mapstructure:"base" json:"base"`
	PerCertificate  float64    `mapstructure:"per_certificate" json:"perCertificate"`
	CertificateCap  float64    `mapstructure:"certificate_cap" json:"certificateCap"`
	PerYear         float64    `mapstructure:"per_year" json:"perYear"`
	ExperienceCap   float64    `mapstructure:"experience_cap" json:"experienceCap"`
	TeamSizeBonuses []TeamTier `mapstructure:"team_size_bonuses" json:"teamSizeBonuses"`
	Max             float64    `mapstructure:"max" json:"max"`
}

// TeamTier grants Bonus when team size is strictly greater than Above.
// Tiers are checked in order; the first match wins.
type TeamTier struct {
	Above int     `mapstructure:"above" json:"above"`
	Bonus float64 `mapstructure:"bonus" json:"bonus"`
}

type Defaults struct {
	Reliability float64 `mapstructure:"reliability" json:"reliability"`
	Cost        float64 `mapstructure:"cost" json:"cost"`
	Capability  float64 `mapstructure:"capability" json:"capability"`
	Performance float64 `mapstructure:"performance" json:"performance"`
	Reputation  float64 `mapstructure:"reputation" json:"reputation"`
	Risk        float64 `mapstructure:"risk" json:"risk"`
}

// DefaultWeights returns the production weighting. With every input empty it
// yields a total of 50 and a risk of 10.
func DefaultWeights() Weights {
	return Weights{
		Reliability: 0.35,
		Capability:  0.25,
		Cost:        0.20,
		RiskInverse: 0.10,
		Reputation:  0.10,

		DeliveryShare:   0.5,
		QualityShare:    0.3,
		ComplianceShare: 0.2,

		RatingShare:    0.6,
		SentimentShare: 0.4,
		RatingScale:    5,

		Capabilities: CapabilityTiers{
			Base:           50,
			PerCertificate: 5,
			CertificateCap: 20,
			PerYear:        2,
			ExperienceCap:  20,
			TeamSizeBonuses: []TeamTier{
				{Above: 100, Bonus: 10},
				{Above: 50, Bonus: 7},
				{Above: 20, Bonus: 5},
			},
			Max: 100,
		},
		RiskLevels: map[RiskLevel]float64{
			RiskLow:      10,
			RiskMedium:   30,
			RiskHigh:     60,
			RiskCritical: 90,
		},
		UnknownRisk:  30,
		SeverityUnit: 10,

		Defaults: Defaults{
			Reliability: 50,
			Cost:        50,
			Capability:  50,
			Performance: 50,
			Reputation:  50,
			Risk:        10,
		},
	}
}

// Validate checks that the composite blend sums to one.
func (w Weights) Validate() error {
	sum := w.Reliability + w.Capability + w.Cost + w.RiskInverse + w.Reputation
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("composite weights must sum to 1, got %.3f", sum)
	}
	if w.RatingScale <= 0 {
		return fmt.Errorf("rating scale must be positive, got %.2f", w.RatingScale)
	}
	return nil
}
