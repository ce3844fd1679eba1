package scoring

import "strings"

// VendorText is the descriptive text a requirement is matched against.
type VendorText struct {
	Name        string
	Description string
	Feature     *CapabilityFeature
}

func (v VendorText) haystack() string {
	parts := []string{v.Name, v.Description}
	if v.Feature != nil {
		parts = append(parts,
			strings.Join(v.Feature.Services, " "),
			strings.Join(v.Feature.Technologies, " "),
			strings.Join(v.Feature.ExpertiseAreas, " "),
		)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Similarity returns the percentage of whitespace-separated requirement
// tokens that occur as substrings of the vendor text, ignoring case.
// A requirement with no tokens scores 0.
func Similarity(requirement string, vendor VendorText) float64 {
	tokens := strings.Fields(strings.ToLower(requirement))
	if len(tokens) == 0 {
		return 0
	}

	text := vendor.haystack()
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens)) * 100
}
