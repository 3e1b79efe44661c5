// file: internal/pipeline/application.go

package pipeline

import (
	"fmt"
	"strings"
)

// CreditApplication is the immutable input of one evaluation. CURP and RFC
// are the Mexican personal and tax identifiers used as the applicant key
// across all bureau calls.
type CreditApplication struct {
	CURP            string  `json:"curp"`
	RFC             string  `json:"rfc"`
	FullName        string  `json:"fullName"`
	BankAccount     string  `json:"bankAccount"`
	BankCode        string  `json:"bankCode"`
	MonthlyIncome   float64 `json:"monthlyIncome"`
	RequestedAmount float64 `json:"requestedAmount"`
	TermMonths      int     `json:"termMonths"`
	Email           string  `json:"email,omitempty"`
	State           string  `json:"state,omitempty"`
}

// InputError marks malformed or incomplete application data and names the
// offending field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid application field %q: %s", e.Field, e.Message)
}

// Validate checks the application for required fields.
func (a *CreditApplication) Validate() error {
	switch {
	case a.CURP == "":
		return &InputError{Field: "curp", Message: "required"}
	case a.RFC == "":
		return &InputError{Field: "rfc", Message: "required"}
	case a.FullName == "":
		return &InputError{Field: "fullName", Message: "required"}
	case a.BankAccount == "":
		return &InputError{Field: "bankAccount", Message: "required"}
	case a.MonthlyIncome <= 0:
		return &InputError{Field: "monthlyIncome", Message: "must be positive"}
	case a.RequestedAmount <= 0:
		return &InputError{Field: "requestedAmount", Message: "must be positive"}
	case a.TermMonths <= 0:
		return &InputError{Field: "termMonths", Message: "must be positive"}
	}
	return nil
}

// bankCode returns the applicant's bank code, defaulting to Banamex ("012")
// as the bureau sandbox expects.
func (a *CreditApplication) bankCode() string {
	if a.BankCode == "" {
		return "012"
	}
	return a.BankCode
}

// state returns the applicant's state, defaulting to CDMX.
func (a *CreditApplication) state() string {
	if a.State == "" {
		return "CDMX"
	}
	return a.State
}

// names splits the full name into the first and last word, the form the
// employment and sanctions endpoints expect.
func (a *CreditApplication) names() (firstName, lastName string) {
	parts := strings.Fields(a.FullName)
	if len(parts) == 0 {
		return "", ""
	}
	firstName = parts[0]
	if len(parts) > 1 {
		lastName = parts[len(parts)-1]
	}
	return firstName, lastName
}
