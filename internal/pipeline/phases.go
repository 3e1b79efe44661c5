// file: internal/pipeline/phases.go

package pipeline

import "time"

// Verdict is the final status of an evaluation.
type Verdict string

const (
	VerdictApproved     Verdict = "APPROVED"
	VerdictManualReview Verdict = "MANUAL_REVIEW"
	VerdictRejected     Verdict = "REJECTED"
)

// PhaseStatus is the outcome of a single phase.
type PhaseStatus string

const (
	PhaseContinue PhaseStatus = "CONTINUE"
	PhaseRejected PhaseStatus = "REJECTED"
)

// Phase names in execution order.
const (
	PhaseValidation     = "validation"
	PhaseCompliance     = "compliance"
	PhaseCreditAnalysis = "credit_analysis"
	PhaseAmount         = "amount_calculation"
	PhaseFinalDecision  = "final_decision"
)

const totalPhases = 5

// PhaseResult records one executed phase. Exactly one of the typed output
// fields is set, matching the phase name.
type PhaseResult struct {
	Phase  int         `json:"phase"`
	Name   string      `json:"name"`
	Status PhaseStatus `json:"status"`

	// Warnings carries signature-verification warnings from bureau calls
	// made during this phase. They never change the phase outcome.
	Warnings []string `json:"warnings,omitempty"`

	Validation *ValidationResult `json:"validation,omitempty"`
	Compliance *ComplianceResult `json:"compliance,omitempty"`
	Credit     *CreditAnalysis   `json:"creditAnalysis,omitempty"`
	Amount     *AmountEstimate   `json:"amountEstimate,omitempty"`
	Decision   *FinalDecision    `json:"finalDecision,omitempty"`
}

// ValidationResult holds the three identity checks of phase 1.
type ValidationResult struct {
	IdentityVerified    bool `json:"identityVerified"`
	BankAccountVerified bool `json:"bankAccountVerified"`
	EmploymentVerified  bool `json:"employmentVerified"`
}

// ComplianceResult holds the fraud and sanctions screening of phase 2.
type ComplianceResult struct {
	FraudDetected   bool `json:"fraudDetected"`
	SanctionsListed bool `json:"sanctionsListed"`
}

// CreditAnalysis holds the scores and report data of phase 3.
type CreditAnalysis struct {
	FicoScore      int          `json:"ficoScore"`
	FintechScore   int          `json:"fintechScore"`
	RiskCategory   RiskCategory `json:"riskCategory"`
	CreditAccounts int          `json:"creditAccounts"`
	ActiveDebts    int          `json:"activeDebts"`
	DebtToIncome   float64      `json:"debtToIncome"`
}

// AmountEstimate holds the loan estimator output of phase 4. When the
// estimator call fails the estimate degrades to a zero amount with the
// policy fallback term.
type AmountEstimate struct {
	MaxAmount             float64 `json:"maxAmount"`
	SuggestedRate         string  `json:"suggestedRate"`
	RecommendedTermMonths int     `json:"recommendedTermMonths"`
	EstimatorAvailable    bool    `json:"estimatorAvailable"`
}

// FinalDecision holds the phase-5 verdict data.
type FinalDecision struct {
	ReportID   string          `json:"reportId"`
	Verdict    Verdict         `json:"verdict"`
	Conditions *LoanConditions `json:"conditions,omitempty"`
}

// LoanConditions are the terms attached to an approved application.
type LoanConditions struct {
	ApprovedAmount float64 `json:"approvedAmount"`
	InterestRate   string  `json:"interestRate"`
	TermMonths     int     `json:"termMonths"`
	MonthlyPayment float64 `json:"monthlyPayment"`
}

// EvaluationRecord is the immutable result of one pipeline run. CurrentPhase
// is "n/5" where n is the last phase that executed; phases after a terminal
// rejection are absent from Phases.
type EvaluationRecord struct {
	ApplicationID string        `json:"applicationId"`
	Status        Verdict       `json:"status"`
	CurrentPhase  string        `json:"currentPhase"`
	Phases        []PhaseResult `json:"phases"`
	Summary       string        `json:"summary"`
	NextSteps     []string      `json:"nextSteps"`
	CreatedAt     time.Time     `json:"createdAt"`
}
