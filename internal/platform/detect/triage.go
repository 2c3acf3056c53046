package detect

import (
	"fmt"
	"strings"
)

// Risk tiers assigned to findings.
const (
	RiskHigh   = "High Risk"
	RiskMedium = "Medium"
	RiskInfo   = "Info"
)

// Tier keywords are matched by substring against the lowercased class name.
// High-risk keywords are checked first so a class like "caries_deep" lands
// in the high tier even though it also contains a medium keyword.
var (
	highRiskConditions   = []string{"abscess", "periapical", "caries_deep", "fracture"}
	mediumRiskConditions = []string{"caries", "cavity", "decay"}
)

// DetermineRisk maps a detection class name to a risk tier.
func DetermineRisk(className string) string {
	lower := strings.ToLower(className)

	for _, cond := range highRiskConditions {
		if strings.Contains(lower, cond) {
			return RiskHigh
		}
	}
	for _, cond := range mediumRiskConditions {
		if strings.Contains(lower, cond) {
			return RiskMedium
		}
	}
	return RiskInfo
}

var descriptions = map[string]string{
	"caries":     "Dental caries detected. Tooth tissue damaged by bacterial infection.",
	"cavity":     "Cavity detected. Loss of tooth structure caused by decay.",
	"abscess":    "Abscess detected. Infected inflammatory site, may require urgent care.",
	"periapical": "Periapical lesion detected. Sign of infection at the root apex.",
	"filling":    "Filling detected. Existing restoration.",
	"implant":    "Implant detected. Dental implant structure.",
	"crown":      "Crown detected. Dental prosthesis.",
}

var recommendations = map[string]string{
	"caries":     "See a dentist for examination and treatment planning.",
	"cavity":     "Filling treatment may be needed. Consult a dentist.",
	"abscess":    "URGENT: See a dentist as soon as possible. Antibiotic treatment may be needed.",
	"periapical": "Root canal treatment may be needed. A dental examination is essential.",
	"filling":    "The condition of the existing filling should be checked.",
	"implant":    "Should be monitored with regular checkups.",
	"crown":      "Should be monitored with regular dental checkups.",
}

// DescriptionFor returns the description for the first keyword contained in
// the class name, or a generic line naming the class.
func DescriptionFor(className string) string {
	lower := strings.ToLower(className)
	for _, key := range triageKeys {
		if strings.Contains(lower, key) {
			return descriptions[key]
		}
	}
	return fmt.Sprintf("%s detected.", className)
}

// RecommendationsFor returns the recommendation for the first keyword
// contained in the class name, or a generic referral line.
func RecommendationsFor(className string) string {
	lower := strings.ToLower(className)
	for _, key := range triageKeys {
		if strings.Contains(lower, key) {
			return recommendations[key]
		}
	}
	return "Consult a dentist for a detailed examination."
}

// triageKeys fixes the lookup order so substring matches are deterministic.
var triageKeys = []string{"caries", "cavity", "abscess", "periapical", "filling", "implant", "crown"}
