// file: internal/pipeline/response.go

package pipeline

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewApplicationID returns a fresh application identifier, e.g.
// "CRED-2026-3F9A1".
func NewApplicationID() string {
	return "CRED-" + idSuffix()
}

// NewReportID returns a fresh report identifier, e.g. "REP-2026-3F9A1".
func NewReportID() string {
	return "REP-" + idSuffix()
}

func idSuffix() string {
	id := uuid.New()
	return fmt.Sprintf("%d-%s", time.Now().Year(),
		strings.ToUpper(hex.EncodeToString(id[:])[:5]))
}

// MonthlyPayment computes the amortized monthly payment for a loan. The rate
// is the bureau's suggested annual rate string ("14.5%"); an empty or
// unparseable rate degrades to straight-line division.
func MonthlyPayment(amount float64, annualRate string, termMonths int) float64 {
	if amount <= 0 || termMonths <= 0 {
		return 0
	}

	rate := parseRate(annualRate)
	if rate <= 0 {
		return round2(amount / float64(termMonths))
	}

	monthly := rate / 100 / 12
	factor := math.Pow(1+monthly, float64(termMonths))
	return round2(amount * monthly * factor / (factor - 1))
}

func parseRate(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0
	}
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return rate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// buildNarrative produces the human-facing summary and next steps for a
// finished record.
func buildNarrative(record *EvaluationRecord, credit *CreditAnalysis) (string, []string) {
	switch record.Status {
	case VerdictApproved:
		summary := fmt.Sprintf(
			"Application approved: FICO score %d (%s), approved amount $%.2f MXN.",
			credit.FicoScore, credit.RiskCategory, approvedAmount(record))
		return summary, []string{
			"Send the formal offer to the applicant by email",
			"Request the digital signature of the contract",
			"Schedule the disbursement upon signature",
		}

	case VerdictManualReview:
		reason := "requires analyst judgment"
		if credit != nil {
			reason = fmt.Sprintf("FICO score %d classified as %s", credit.FicoScore, credit.RiskCategory)
		}
		summary := fmt.Sprintf("Application routed to manual review: %s.", reason)
		return summary, []string{
			"Assign the case to a credit analyst",
			"Request additional income documentation",
			"Resolve within 48 hours",
		}

	default:
		summary := fmt.Sprintf(
			"Application rejected at phase %s of the evaluation.", record.CurrentPhase)
		return summary, []string{
			"Notify the applicant of the rejection",
			"Include the legally required rejection reasons",
		}
	}
}

func approvedAmount(record *EvaluationRecord) float64 {
	last := record.Phases[len(record.Phases)-1]
	if last.Decision != nil && last.Decision.Conditions != nil {
		return last.Decision.Conditions.ApprovedAmount
	}
	return 0
}
