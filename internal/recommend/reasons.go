package recommend

import "strings"

const (
	highPerformanceAbove = 85
	strengthAbove        = 85
	lowRiskBelow         = 20
	establishedYears     = 10
	wellCertifiedCount   = 3
	shownCertifications  = 3
)

// MatchReasons lists why a vendor fits the requirement. It always returns at
// least one reason.
func MatchReasons(requirement string, c Candidate) []string {
	req := strings.ToLower(requirement)
	var reasons []string

	if c.Feature != nil {
		if hits := containedIn(req, c.Feature.Technologies); len(hits) > 0 {
			reasons = append(reasons, "Expertise in "+strings.Join(hits, ", "))
		}
		if hits := containedIn(req, c.Feature.Services); len(hits) > 0 {
			reasons = append(reasons, "Offers "+strings.Join(hits, ", "))
		}
	}

	if c.Industry != "" && strings.Contains(req, strings.ToLower(c.Industry)) {
		reasons = append(reasons, "Specialized in "+c.Industry)
	}

	if c.Feature != nil && len(c.Feature.Certifications) > 0 {
		certs := c.Feature.Certifications
		if len(certs) > shownCertifications {
			certs = certs[:shownCertifications]
		}
		reasons = append(reasons, "Certified: "+strings.Join(certs, ", "))
	}

	if c.Composite != nil && c.Composite.TotalScore > highPerformanceAbove {
		reasons = append(reasons, "High overall performance score")
	}

	if len(reasons) == 0 {
		return []string{"General capability match"}
	}
	return reasons
}

func containedIn(haystack string, terms []string) []string {
	var hits []string
	for _, t := range terms {
		if t != "" && strings.Contains(haystack, strings.ToLower(t)) {
			hits = append(hits, t)
		}
	}
	return hits
}

// EstimateCost buckets the average contract value.
func EstimateCost(contractValues []float64) string {
	if len(contractValues) == 0 {
		return "Contact for quote"
	}
	sum := 0.0
	for _, v := range contractValues {
		sum += v
	}
	avg := sum / float64(len(contractValues))

	switch {
	case avg > 200000:
		return "High ($200k+)"
	case avg > 100000:
		return "Medium ($100k-$200k)"
	default:
		return "Competitive (< $100k)"
	}
}

func Strengths(c Candidate) []string {
	strengths := []string{}

	if s := c.Composite; s != nil {
		if s.ReliabilityScore > strengthAbove {
			strengths = append(strengths, "High Reliability")
		}
		if s.CapabilityScore > strengthAbove {
			strengths = append(strengths, "Strong Capabilities")
		}
		if s.ReputationScore > strengthAbove {
			strengths = append(strengths, "Excellent Reputation")
		}
		if s.RiskScore < lowRiskBelow {
			strengths = append(strengths, "Low Risk")
		}
	}

	if f := c.Feature; f != nil {
		if f.YearsInBusiness != nil && *f.YearsInBusiness > establishedYears {
			strengths = append(strengths, "Established Provider")
		}
		if len(f.Certifications) > wellCertifiedCount {
			strengths = append(strengths, "Well Certified")
		}
	}

	return strengths
}
