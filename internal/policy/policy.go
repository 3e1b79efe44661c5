// file: internal/policy/policy.go

// Package policy holds the decision thresholds of the evaluation pipeline.
// The zero configuration is the product's standard policy; a YAML file can
// override individual values for sandbox experiments.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the complete set of decision parameters.
type Policy struct {
	Decision DecisionPolicy `yaml:"decision"`
	Risk     RiskPolicy     `yaml:"risk"`

	// FallbackTermMonths is the recommended term when the loan estimator
	// call fails.
	FallbackTermMonths int `yaml:"fallbackTermMonths"`
}

// DecisionPolicy gates the pipeline and the final verdict.
type DecisionPolicy struct {
	// MinScore is the phase-3 gate: below it the application is rejected.
	MinScore int `yaml:"minScore"`

	// ApprovalScore is the minimum score for automatic approval.
	ApprovalScore int `yaml:"approvalScore"`

	// ManualReviewScore is the minimum score that routes to manual review
	// instead of rejection.
	ManualReviewScore int `yaml:"manualReviewScore"`

	// MaxAutoApproveAmount is the largest requested amount eligible for
	// automatic approval; above it every application goes to manual review.
	MaxAutoApproveAmount float64 `yaml:"maxAutoApproveAmount"`
}

// RiskPolicy sets the inclusive lower bounds of the risk categories.
type RiskPolicy struct {
	VeryLow  int `yaml:"veryLow"`
	Low      int `yaml:"low"`
	Moderate int `yaml:"moderate"`
	High     int `yaml:"high"`
}

// Default returns the standard policy.
func Default() *Policy {
	return &Policy{
		Decision: DecisionPolicy{
			MinScore:             550,
			ApprovalScore:        700,
			ManualReviewScore:    650,
			MaxAutoApproveAmount: 500000,
		},
		Risk: RiskPolicy{
			VeryLow:  800,
			Low:      700,
			Moderate: 650,
			High:     550,
		},
		FallbackTermMonths: 12,
	}
}

// Load reads a policy file, filling unset values from the default policy.
// An empty path returns the default policy.
func Load(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// Validate checks the thresholds are coherent.
func (p *Policy) Validate() error {
	if p.Decision.MinScore <= 0 {
		return fmt.Errorf("minScore must be positive")
	}
	if p.Decision.ManualReviewScore < p.Decision.MinScore {
		return fmt.Errorf("manualReviewScore (%d) must be >= minScore (%d)",
			p.Decision.ManualReviewScore, p.Decision.MinScore)
	}
	if p.Decision.ApprovalScore < p.Decision.ManualReviewScore {
		return fmt.Errorf("approvalScore (%d) must be >= manualReviewScore (%d)",
			p.Decision.ApprovalScore, p.Decision.ManualReviewScore)
	}
	if p.Decision.MaxAutoApproveAmount <= 0 {
		return fmt.Errorf("maxAutoApproveAmount must be positive")
	}
	if !(p.Risk.VeryLow >= p.Risk.Low && p.Risk.Low >= p.Risk.Moderate && p.Risk.Moderate >= p.Risk.High) {
		return fmt.Errorf("risk thresholds must be non-increasing: veryLow >= low >= moderate >= high")
	}
	if p.FallbackTermMonths <= 0 {
		return fmt.Errorf("fallbackTermMonths must be positive")
	}
	return nil
}
