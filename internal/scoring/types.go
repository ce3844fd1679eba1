package scoring

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// PerformanceRecord is one internal delivery record. Percentages are 0-100
// and are taken as-is.
type PerformanceRecord struct {
	DeliverySuccessRate float64 `json:"deliverySuccessRate"`
	QualityScore        float64 `json:"qualityScore"`
	CostEfficiency      float64 `json:"costEfficiency"`
	ComplianceScore     float64 `json:"complianceScore"`
}

// ExternalReview carries a 0-5 rating. An empty Sentiment means the review
// was never tagged.
type ExternalReview struct {
	Rating    float64   `json:"rating"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
}

type CapabilityFeature struct {
	Certifications  []string `json:"certifications"`
	YearsInBusiness *int     `json:"yearsInBusiness"`
	TeamSize        *int     `json:"teamSize"`
	Services        []string `json:"services,omitempty"`
	Technologies    []string `json:"technologies,omitempty"`
	ExpertiseAreas  []string `json:"expertiseAreas,omitempty"`
}

type RiskEntry struct {
	RiskLevel RiskLevel `json:"riskLevel"`
	Severity  int       `json:"severity"`
}

// VendorRecordSet is the snapshot of a vendor's sub-records used for scoring.
// The JSON names match the prediction oracle's request body.
type VendorRecordSet struct {
	PerformanceRecords []PerformanceRecord `json:"internalRecords"`
	ExternalReviews    []ExternalReview    `json:"externalReviews"`
	CapabilityFeatures []CapabilityFeature `json:"features"`
	ActiveRisks        []RiskEntry         `json:"risks"`
}

type ReliabilityBreakdown struct {
	DeliverySuccess float64 `json:"deliverySuccess"`
	QualityMetrics  float64 `json:"qualityMetrics"`
	Compliance      float64 `json:"compliance"`
}

type CostBreakdown struct {
	Efficiency    float64 `json:"efficiency"`
	ValueForMoney float64 `json:"valueForMoney"`
}

type CapabilityBreakdown struct {
	Certifications float64 `json:"certifications"`
	Experience     float64 `json:"experience"`
	TeamCapacity   float64 `json:"teamCapacity"`
}

// Breakdown is explanatory only and never feeds back into the total.
type Breakdown struct {
	Reliability ReliabilityBreakdown `json:"reliability"`
	Cost        CostBreakdown        `json:"cost"`
	Capability  CapabilityBreakdown  `json:"capability"`
}

type ScoreResult struct {
	TotalScore       float64    `json:"totalScore"`
	ReliabilityScore float64    `json:"reliabilityScore"`
	CostScore        float64    `json:"costScore"`
	CapabilityScore  float64    `json:"capabilityScore"`
	PerformanceScore float64    `json:"performanceScore"`
	ReputationScore  float64    `json:"reputationScore"`
	RiskScore        float64    `json:"riskScore"`
	Breakdown        *Breakdown `json:"breakdown,omitempty"`
}
