package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type VendorStatus string

const (
	VendorActive      VendorStatus = "ACTIVE"
	VendorInactive    VendorStatus = "INACTIVE"
	VendorPending     VendorStatus = "PENDING"
	VendorBlacklisted VendorStatus = "BLACKLISTED"
)

func (s VendorStatus) Valid() bool {
	switch s {
	case VendorActive, VendorInactive, VendorPending, VendorBlacklisted:
		return true
	}
	return false
}

type RiskStatus string

const (
	RiskActive    RiskStatus = "ACTIVE"
	RiskMitigated RiskStatus = "MITIGATED"
	RiskResolved  RiskStatus = "RESOLVED"
)

// StringList is a []string stored as a JSON array in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	out := []string{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

type Vendor struct {
	ID          string       `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Website     string       `json:"website,omitempty" db:"website"`
	Description string       `json:"description,omitempty" db:"description"`
	Email       string       `json:"email,omitempty" db:"email"`
	Phone       string       `json:"phone,omitempty" db:"phone"`
	Address     string       `json:"address,omitempty" db:"address"`
	CompanySize string       `json:"companySize,omitempty" db:"company_size"`
	Industry    string       `json:"industry,omitempty" db:"industry"`
	Founded     string       `json:"founded,omitempty" db:"founded"`
	Status      VendorStatus `json:"status" db:"status"`
	IsVerified  bool         `json:"isVerified" db:"is_verified"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

type PerformanceRecord struct {
	ID                  string    `json:"id" db:"id"`
	VendorID            string    `json:"vendorId" db:"vendor_id"`
	ProjectName         string    `json:"projectName" db:"project_name"`
	ProjectCategory     string    `json:"projectCategory,omitempty" db:"project_category"`
	ContractValue       float64   `json:"contractValue" db:"contract_value"`
	DeliverySuccessRate float64   `json:"deliverySuccessRate" db:"delivery_success_rate"`
	QualityScore        float64   `json:"qualityScore" db:"quality_score"`
	CostEfficiency      float64   `json:"costEfficiency" db:"cost_efficiency"`
	ComplianceScore     float64   `json:"complianceScore" db:"compliance_score"`
	IncidentCount       int       `json:"incidentCount" db:"incident_count"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
}

type ExternalReview struct {
	ID          string    `json:"id" db:"id"`
	VendorID    string    `json:"vendorId" db:"vendor_id"`
	Source      string    `json:"source" db:"source"`
	Rating      float64   `json:"rating" db:"rating"`
	ReviewCount int       `json:"reviewCount" db:"review_count"`
	Sentiment   string    `json:"sentiment,omitempty" db:"sentiment"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type CapabilityFeature struct {
	ID              string     `json:"id" db:"id"`
	VendorID        string     `json:"vendorId" db:"vendor_id"`
	Services        StringList `json:"services" db:"services"`
	Technologies    StringList `json:"technologies" db:"technologies"`
	Certifications  StringList `json:"certifications" db:"certifications"`
	ExpertiseAreas  StringList `json:"expertiseAreas" db:"expertise_areas"`
	YearsInBusiness *int       `json:"yearsInBusiness" db:"years_in_business"`
	TeamSize        *int       `json:"teamSize" db:"team_size"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

type VendorRisk struct {
	ID           string     `json:"id" db:"id"`
	VendorID     string     `json:"vendorId" db:"vendor_id"`
	RiskLevel    string     `json:"riskLevel" db:"risk_level"`
	RiskCategory string     `json:"riskCategory,omitempty" db:"risk_category"`
	Description  string     `json:"description,omitempty" db:"description"`
	Severity     int        `json:"severity" db:"severity"`
	Status       RiskStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// VendorScore is one persisted scoring run. Breakdown and RankingFactors
// are kept as raw JSON.
type VendorScore struct {
	ID                string          `json:"id" db:"id"`
	VendorID          string          `json:"vendorId" db:"vendor_id"`
	TotalScore        float64         `json:"totalScore" db:"total_score"`
	ReliabilityScore  float64         `json:"reliabilityScore" db:"reliability_score"`
	CostScore         float64         `json:"costScore" db:"cost_score"`
	CapabilityScore   float64         `json:"capabilityScore" db:"capability_score"`
	PerformanceScore  float64         `json:"performanceScore" db:"performance_score"`
	ReputationScore   float64         `json:"reputationScore" db:"reputation_score"`
	RiskScore         float64         `json:"riskScore" db:"risk_score"`
	MLPredictionScore *float64        `json:"mlPredictionScore,omitempty" db:"ml_prediction_score"`
	Confidence        *float64        `json:"confidence,omitempty" db:"confidence"`
	Breakdown         json.RawMessage `json:"scoreBreakdown,omitempty" db:"breakdown"`
	RankingFactors    json.RawMessage `json:"rankingFactors,omitempty" db:"ranking_factors"`
	ModelVersion      string          `json:"modelVersion,omitempty" db:"model_version"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
}

type AuditLog struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"userId,omitempty" db:"user_id"`
	VendorID   string          `json:"vendorId,omitempty" db:"vendor_id"`
	VendorName string          `json:"vendorName,omitempty"`
	Action     string          `json:"action" db:"action"`
	Entity     string          `json:"entity" db:"entity"`
	EntityID   string          `json:"entityId,omitempty" db:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time       `json:"timestamp" db:"created_at"`
}

// VendorDetail is a vendor with its related rows attached. Which relations
// are filled, and how many rows each holds, depends on the query.
type VendorDetail struct {
	Vendor
	InternalRecords []PerformanceRecord `json:"internalRecords"`
	ExternalReviews []ExternalReview    `json:"externalReviews"`
	Features        []CapabilityFeature `json:"features"`
	Risks           []VendorRisk        `json:"risks"`
	Scores          []VendorScore       `json:"scores"`
	AuditLogs       []AuditLog          `json:"auditLogs,omitempty"`
}

// LatestScore returns the most recent score attached to the detail, if any.
func (d *VendorDetail) LatestScore() *VendorScore {
	if len(d.Scores) == 0 {
		return nil
	}
	return &d.Scores[0]
}

type VendorFilter struct {
	Query    string
	Status   string
	Industry string
	Page     int
	Limit    int
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func (f VendorFilter) normalized() VendorFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	return f
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type VendorPage struct {
	Vendors    []VendorDetail `json:"vendors"`
	Pagination Pagination     `json:"pagination"`
}

// VendorInput carries the writable vendor fields. Nil pointers are left
// untouched on update.
type VendorInput struct {
	Name        *string       `json:"name"`
	Website     *string       `json:"website"`
	Description *string       `json:"description"`
	Email       *string       `json:"email"`
	Phone       *string       `json:"phone"`
	Address     *string       `json:"address"`
	CompanySize *string       `json:"companySize"`
	Industry    *string       `json:"industry"`
	Founded     *string       `json:"founded"`
	Status      *VendorStatus `json:"status"`
	IsVerified  *bool         `json:"isVerified"`
}

type AuditFilter struct {
	UserID   string
	VendorID string
	Action   string
	Limit    int
}

const defaultAuditLimit = 50

func newID() string {
	return uuid.New().String()
}
