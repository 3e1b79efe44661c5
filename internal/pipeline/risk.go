// file: internal/pipeline/risk.go

package pipeline

import "credit-agent/internal/policy"

// RiskCategory buckets a FICO score against the policy thresholds.
type RiskCategory string

const (
	RiskVeryLow  RiskCategory = "VERY_LOW_RISK"
	RiskLow      RiskCategory = "LOW_RISK"
	RiskModerate RiskCategory = "MODERATE_RISK"
	RiskHigh     RiskCategory = "HIGH_RISK"
	RiskVeryHigh RiskCategory = "VERY_HIGH_RISK"
)

// ClassifyRisk maps a score to its category. Thresholds are inclusive lower
// bounds.
func ClassifyRisk(score int, p *policy.Policy) RiskCategory {
	switch {
	case score >= p.Risk.VeryLow:
		return RiskVeryLow
	case score >= p.Risk.Low:
		return RiskLow
	case score >= p.Risk.Moderate:
		return RiskModerate
	case score >= p.Risk.High:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}
